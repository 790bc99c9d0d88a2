// Package jwt issues and verifies the signed session tokens accepted by the
// session guard. A token attests a subject and an expiry and nothing else;
// roles are always read from the identity store.
package jwt

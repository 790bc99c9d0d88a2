package middleware

import (
	"errors"
	"net/http"

	goGate "github.com/MrEthical07/goGate"
	"go.uber.org/zap"
)

const (
	msgInvalidToken    = "Invalid JWT token"
	msgInvalidAPIKey   = "Invalid or missing API key"
	msgUnauthenticated = "unauthorized"
	msgForbidden       = "You are not authorized to access this resource"
	msgUnavailable     = "service unavailable"
	msgInternal        = "internal server error"
)

// StatusCode maps a gateway error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, goGate.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, goGate.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, goGate.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, goGate.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// reject records err on rc and writes the plain text rejection. unauthMsg is
// used for 401 responses; other statuses carry a fixed body.
func reject(w http.ResponseWriter, gw *goGate.Gateway, rc *goGate.RequestContext, guard string, err error, unauthMsg string) {
	rc.Reject(err)

	status := StatusCode(err)
	msg := unauthMsg
	switch status {
	case http.StatusForbidden:
		msg = msgForbidden
	case http.StatusServiceUnavailable:
		msg = msgUnavailable
	case http.StatusInternalServerError:
		msg = msgInternal
	}

	gw.Logger().Debug("request rejected",
		zap.String("guard", guard),
		zap.Int("status", status),
		zap.String("path", rc.Path),
		zap.String("request_id", rc.RequestID))

	http.Error(w, msg, status)
}

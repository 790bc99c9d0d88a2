package main

import (
	"errors"
	"fmt"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/counter"
	"github.com/MrEthical07/goGate/identity"
	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
)

// newTokenCommand issues a session token for an existing subject without a
// password check. It only needs the signing secret.
func newTokenCommand(load loader) *cobra.Command {
	var (
		subject int64
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if subject <= 0 {
				return errors.New("--subject must be a positive user id")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			gw, err := goGate.New().
				WithConfig(cfg.Gateway).
				WithIdentityStore(identity.NewMemory()).
				WithCounterStore(counter.NewMemory(clock.New())).
				Build()
			if err != nil {
				return err
			}
			defer gw.Close()

			token, err := gw.IssueSessionTTL(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&subject, "subject", 0, "user id the token attests")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime; 0 uses the configured TTL")
	return cmd
}

// Command gateway serves the guarded account and metered API routes and
// carries the operator tooling around them.
package main

import (
	"fmt"
	"os"

	"github.com/MrEthical07/goGate/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type loader func() (config.Config, error)

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:           "gateway",
		Short:         "API gateway with session, API key, role and rate limit guards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().Bool("log-development", false, "human readable development logging")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.development", root.PersistentFlags().Lookup("log-development"))

	load := func() (config.Config, error) {
		return config.Load(v, configFile)
	}

	root.AddCommand(
		newServeCommand(v, load),
		newMigrateCommand(load),
		newTokenCommand(load),
	)
	return root
}

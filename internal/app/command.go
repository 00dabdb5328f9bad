package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/config"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/utilities"
)

// NewRootCmd builds the CLI. Without a subcommand it behaves like serve.
func NewRootCmd() *cobra.Command {
	var envFiles []string

	withApp := func(fn func(a *App, ctx context.Context) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFiles...)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
				return err
			}
			lg, err := utilities.Init(cfg.Log)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
				return err
			}
			defer func() { _ = lg.Sync() }()
			sugar := lg.Sugar()

			a, err := New(cfg, sugar)
			if err != nil {
				sugar.Errorw("startup failed", "err", err)
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					sugar.Warnw("close", "err", err)
				}
			}()

			sugar.Infow("starting", "command", cmd.Name())
			if err := fn(a, cmd.Context()); err != nil {
				sugar.Errorw("exited with error", "command", cmd.Name(), "err", err)
				return err
			}
			sugar.Info("goodbye")
			return nil
		}
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP auth service and the CDC consumer",
		RunE:  withApp((*App).Serve),
	}
	consume := &cobra.Command{
		Use:   "consume",
		Short: "Run only the CDC consumer",
		RunE:  withApp((*App).Consume),
	}
	initDB := &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema and exit",
		RunE:  withApp((*App).InitDB),
	}

	root := &cobra.Command{
		Use:           "service-auth-cdc",
		Short:         "Account auth service with a CDC event consumer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	root.AddCommand(serve, consume, initDB)
	return root
}

package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"xray-ip-diag/app"
)

// rootCmd runs one interactive diagnostic
var rootCmd = &cobra.Command{
	Use:   "xray-ip-diag",
	Short: "Check a VLESS share link through a local xray instance",
	Long: `Parses a VLESS share link, starts xray with a local SOCKS5 inbound and
looks up the public IP through it. Everything is asked interactively.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Execute runs the root command. A user interrupt is not an error.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func run(cmd *cobra.Command, _ []string) error {
	logger, err := app.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	application := app.NewApplication(app.DefaultOptions(logger)...)
	if err := application.Err(); err != nil {
		return err
	}

	diag, err := application.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		application.Reporter().Interrupted()
		return nil
	}
	if err != nil {
		return err
	}

	logger.Debug("run completed",
		zap.Bool("success", diag.Success),
		zap.String("failed_step", string(diag.FailedStep)))
	return nil
}

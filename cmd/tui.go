package main

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/briefer/internal/tui"
	"github.com/spf13/cobra"
)

func tuiCMD(cfgPath *string) *cobra.Command {
	var logFile string
	var cmd = &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), *cfgPath, logFile)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "briefer.log", "log destination while the menu owns the terminal")
	return cmd
}

func runTUI(ctx context.Context, cfgPath, logFile string) error {
	if logFile == "" {
		logFile = "briefer.log"
	}
	a, err := newApp(ctx, cfgPath, logFile)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Close(closeCtx)
	}()
	return tui.Run(ctx, tui.Deps{
		Config:   a.cfg,
		Registry: a.registry,
		Vault:    a.vault,
		Runner:   a,
	})
}

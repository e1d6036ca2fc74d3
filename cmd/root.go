package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCMD().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func rootCMD() *cobra.Command {
	var cfgPath string
	var useTUI bool
	var root = &cobra.Command{
		Use:           "briefer",
		Short:         "Personal news briefing agent",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Without a subcommand: one briefing run, or the terminal menu with --tui.
		RunE: func(cmd *cobra.Command, args []string) error {
			if useTUI {
				return runTUI(cmd.Context(), cfgPath, "")
			}
			return runOnce(cmd, cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "settings file (default ./settings.json)")
	root.Flags().BoolVar(&useTUI, "tui", false, "open the terminal menu")

	root.AddCommand(
		runCMD(&cfgPath),
		serveCMD(&cfgPath),
		tuiCMD(&cfgPath),
		sourcesCMD(&cfgPath),
		reportsCMD(&cfgPath),
	)
	return root
}

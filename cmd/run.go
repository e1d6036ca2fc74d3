package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func runCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate today's briefing once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, *cfgPath)
		},
	}
}

func runOnce(cmd *cobra.Command, cfgPath string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Close(closeCtx)
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Running Daily Briefing...")
	res, err := a.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s", describeRunError(err))
	}
	fmt.Fprintf(out, "Briefing complete: %s (%d turns, %s)\n", res.Filename, res.Turns, res.Duration.Round(time.Millisecond))
	if res.Summary != "" {
		fmt.Fprintln(out, res.Summary)
	}
	return nil
}

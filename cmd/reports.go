package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func reportsCMD(cfgPath *string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "reports",
		Short: "Browse briefings saved in the vault",
	}

	var list = &cobra.Command{
		Use:   "list",
		Short: "List saved briefings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBase(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			reports, err := b.vault.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No briefings found.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
			for _, r := range reports {
				fmt.Fprintf(w, "%s\t%d\t%s\n", r.Name, r.Size, r.ModTime.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	var raw bool
	var show = &cobra.Command{
		Use:   "show <name>",
		Short: "Print one briefing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBase(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			content, err := b.vault.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !raw {
				if out, err := glamour.Render(content, "dark"); err == nil {
					content = out
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}
	show.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")

	cmd.AddCommand(list, show)
	return cmd
}

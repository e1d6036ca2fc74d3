package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mohammad-safakhou/briefer/internal/sources"
	"github.com/spf13/cobra"
)

func sourcesCMD(cfgPath *string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "sources",
		Short: "Inspect and edit the source registry",
	}

	var list = &cobra.Command{
		Use:   "list",
		Short: "List sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBase(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			srcs, err := b.registry.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ACTIVE\tNAME\tURL")
			for _, s := range srcs {
				mark := " "
				if s.Active {
					mark = "x"
				}
				fmt.Fprintf(w, "[%s]\t%s\t%s\n", mark, s.Name, s.URL)
			}
			return w.Flush()
		},
	}

	var inactive bool
	var add = &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBase(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			src, err := b.registry.Add(cmd.Context(), args[0], args[1], !inactive)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", src.Name, src.URL)
			return nil
		},
	}
	add.Flags().BoolVar(&inactive, "inactive", false, "add the source paused")

	var remove = &cobra.Command{
		Use:   "remove <url|name>",
		Short: "Remove a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBase(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			src, err := b.registry.Remove(cmd.Context(), matchArg(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", src.Name)
			return nil
		},
	}

	var toggle = &cobra.Command{
		Use:   "toggle <url|name>",
		Short: "Flip a source between active and paused",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBase(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			src, err := b.registry.Toggle(cmd.Context(), matchArg(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Toggled %s -> %t\n", src.Name, src.Active)
			return nil
		},
	}

	var setActive = &cobra.Command{
		Use:   "set-active <url|name> <true|false>",
		Short: "Set whether a source is active",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("%w: active must be true or false", sources.ErrInvalidArgument)
			}
			b, err := loadBase(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			src, err := b.registry.SetActive(cmd.Context(), matchArg(args[0]), active)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s -> %t\n", src.Name, src.Active)
			return nil
		},
	}

	cmd.AddCommand(list, add, remove, toggle, setActive)
	return cmd
}

// matchArg treats arguments with a scheme as URLs and anything else as a name.
func matchArg(arg string) sources.Match {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "://") {
		return sources.Match{URL: arg}
	}
	return sources.Match{Name: arg}
}

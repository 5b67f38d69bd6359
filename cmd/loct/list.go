package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oukeidos/loct/internal/language"
	"github.com/oukeidos/loct/internal/metadata"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List supported languages and models",
		Run: func(cmd *cobra.Command, args []string) {
			langs := language.GetSupportedLanguages()
			fmt.Fprintln(cmd.OutOrStdout(), "Supported Languages:")
			for _, l := range langs {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-25s [%s]\n", l.Name, l.ID)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Models:")
			for _, m := range metadata.Models {
				def := ""
				if m.ID == metadata.DefaultModelID {
					def = " (default)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %-28s %-10s %s%s\n", m.ID, m.Provider, m.Label, def)
			}
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

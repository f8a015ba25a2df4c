package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/geostat-labs/svindex/internal/census"
)

// NewGeographiesCommand creates the geographies command.
func NewGeographiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "geographies",
		Short: "List supported geography levels and their key columns",
		Run: func(cmd *cobra.Command, _ []string) {
			w := table.NewWriter()
			w.SetOutputMirror(cmd.OutOrStdout())
			w.SetStyle(table.StyleLight)
			w.AppendHeader(table.Row{"geography", "key columns"})

			for _, name := range census.Names() {
				keys, err := census.Geokeys(name)
				if err != nil {
					continue
				}
				w.AppendRow(table.Row{name, strings.Join(keys, ", ")})
			}
			w.Render()
		},
	}
}

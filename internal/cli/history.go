package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/returnsdesk/oem-returns/internal/domain"
)

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the change history of a return",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := opts.client().History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, "(no changes recorded)")
				return nil
			}
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"When", "Field", "From", "To", "By"})
			for _, e := range entries {
				t.AppendRow(table.Row{
					e.CreatedAt.Format("2006-01-02 15:04"),
					string(e.Field),
					domain.Display(e.OldValue),
					domain.Display(e.NewValue),
					domain.Display(e.ChangedBy),
				})
			}
			t.Render()
			return nil
		},
	}
}

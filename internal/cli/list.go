package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/returnsdesk/oem-returns/internal/api/dto"
	"github.com/returnsdesk/oem-returns/internal/client"
	"github.com/returnsdesk/oem-returns/internal/domain"
)

func newListCommand(opts *globalOptions) *cobra.Command {
	params := client.ListParams{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show a page of OEM returns",
		Example: `  # Open and pending returns assigned to nobody
  oemctl list --status Open,Pending --agent unassigned

  # Second page, 50 rows
  oemctl list --page 2 --page-size 50`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := opts.client().List(cmd.Context(), params)
			if err != nil {
				return err
			}
			renderReturns(cmd.OutOrStdout(), page)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&params.Statuses, "status", nil, "Filter by status (comma separated)")
	cmd.Flags().StringVar(&params.Agent, "agent", "", `Filter by designated agent ("unassigned" for none)`)
	cmd.Flags().StringVar(&params.Priority, "priority", "", "Filter by priority")
	cmd.Flags().StringVar(&params.Search, "search", "", "Search order number, SKU, customer or ticket link")
	cmd.Flags().IntVar(&params.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&params.PageSize, "page-size", 25, "Rows per page")
	return cmd
}

func renderReturns(w io.Writer, page *dto.ReturnListResponse) {
	if len(page.Data) == 0 {
		_, _ = fmt.Fprintln(w, "(0 returns)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Ticket", "Order #", "SKU", "Customer", "Priority", "OM Request", "Status", "OM Update", "Last Follow-up", "Request Date", "OM Agent"})
	for _, r := range page.Data {
		status := r.Status
		t.AppendRow(table.Row{
			r.ID,
			domain.Display(r.TicketLink),
			domain.Display(r.OrderNumber),
			domain.Display(r.SKU),
			domain.Display(r.CustomerName),
			domain.Display(r.Priority),
			domain.Display(r.OMRequest),
			domain.Display(&status),
			domain.Display(r.OMUpdate),
			domain.Display(r.LastFollowUp),
			domain.Display(r.RequestDate),
			domain.Display(r.DesignatedOMAgent),
		})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "page %d, %d of %d returns\n", page.Meta.Page, len(page.Data), page.Meta.Total)
}

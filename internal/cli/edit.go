package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/returnsdesk/oem-returns/internal/domain"
	"github.com/returnsdesk/oem-returns/internal/editsession"
)

type editOptions struct {
	status   string
	omUpdate string
	agent    string
	dryRun   bool
}

func newEditCommand(opts *globalOptions) *cobra.Command {
	eo := &editOptions{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change status, OM update or agent of a return",
		Long: `Fetches the return, applies the given flags to a local draft and sends
only the fields that differ from the stored record. An empty --agent clears
the designated agent.`,
		Example: `  oemctl edit 6f1c2a4e-8a53-4d7b-9b1e-0c7f4e1d2a90 --status Closed
  oemctl edit 6f1c2a4e-8a53-4d7b-9b1e-0c7f4e1d2a90 --agent "" --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, eo, args[0])
		},
	}
	cmd.Flags().StringVar(&eo.status, "status", "", "New status")
	cmd.Flags().StringVar(&eo.omUpdate, "om-update", "", "New OM update note")
	cmd.Flags().StringVar(&eo.agent, "agent", "", "New designated OM agent (empty clears)")
	cmd.Flags().BoolVar(&eo.dryRun, "dry-run", false, "Print the patch without sending it")
	return cmd
}

func runEdit(cmd *cobra.Command, opts *globalOptions, eo *editOptions, id string) error {
	ctx := cmd.Context()
	api := opts.client()

	record, err := api.Get(ctx, id)
	if err != nil {
		return err
	}

	session := editsession.New(api)
	if err := session.Open(*record); err != nil {
		return err
	}
	defer session.Close()

	edits := []struct {
		flag  string
		field domain.Field
		value string
	}{
		{"status", domain.FieldStatus, eo.status},
		{"om-update", domain.FieldOMUpdate, eo.omUpdate},
		{"agent", domain.FieldDesignatedOMAgent, eo.agent},
	}
	for _, e := range edits {
		if !cmd.Flags().Changed(e.flag) {
			continue
		}
		if err := session.SetField(e.field, e.value); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	patch := session.ComputePatch()
	if patch.IsEmpty() {
		_, _ = fmt.Fprintln(out, "no changes")
		return nil
	}
	if eo.dryRun {
		raw, err := json.Marshal(patch)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(raw))
		return nil
	}

	outcome, err := session.Save(ctx)
	if err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}
	_, _ = fmt.Fprintf(out, "%s: %s (%d field(s))\n", id, outcome, len(patch))
	return nil
}

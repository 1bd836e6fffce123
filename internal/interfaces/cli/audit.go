package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jurisflow/prazo/internal/domain/deadline"
	"github.com/jurisflow/prazo/internal/domain/settings"
)

// auditExport is the complete exported trail: every computed deadline with
// its audit entries, plus the configuration history that was in force.
type auditExport struct {
	Deadlines     []deadline.ComputedDeadline `json:"deadlines"`
	Configuration []settings.ConfigurationSet `json:"configuration_history"`
}

// newAuditCmd builds the audit command group.
func newAuditCmd(deps Dependencies, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Export the computation audit trail",
	}
	cmd.AddCommand(newAuditExportCmd(deps, opts))
	return cmd
}

func newAuditExportCmd(deps Dependencies, opts *RootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all computed deadlines and configuration history as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			deadlines, err := deps.Deadlines.List()
			if err != nil {
				return err
			}
			current, err := deps.Settings.Get()
			if err != nil {
				return err
			}
			history, err := deps.Settings.History()
			if err != nil {
				return err
			}

			export := auditExport{
				Deadlines:     deadlines,
				Configuration: append([]settings.ConfigurationSet{current}, history...),
			}
			data, err := json.MarshalIndent(export, "", "  ")
			if err != nil {
				return err
			}

			if outPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d deadlines to %s\n", len(deadlines), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "write to file instead of stdout")
	return cmd
}

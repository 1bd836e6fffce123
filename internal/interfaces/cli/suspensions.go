package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/internal/domain/suspension"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// suspensionList renders registered periods as a table.
type suspensionList struct {
	Suspensions []suspension.Period `json:"suspensions"`
}

func (l suspensionList) TableHeaders() []string {
	return []string{"ID", "SCOPE", "START", "END", "REASON"}
}

func (l suspensionList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Suspensions))
	for _, p := range l.Suspensions {
		rows = append(rows, []string{
			string(p.ID),
			string(p.Scope),
			p.Start.String(),
			p.End.String(),
			p.Reason,
		})
	}
	return rows
}

func (l suspensionList) String() string {
	if len(l.Suspensions) == 0 {
		return "no suspension periods registered"
	}
	return formatTable(l.TableHeaders(), l.TableRows())
}

// newSuspensionsCmd builds the suspensions command group.
func newSuspensionsCmd(deps Dependencies, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suspensions",
		Short: "Register and list deadline suspension periods",
	}
	cmd.AddCommand(newSuspensionsAddCmd(deps, opts), newSuspensionsListCmd(deps, opts))
	return cmd
}

func newSuspensionsAddCmd(deps Dependencies, opts *RootOptions) *cobra.Command {
	var (
		scope  string
		start  string
		end    string
		reason string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a suspension period (inclusive bounds)",
		Example: `  prazo suspensions add --scope global \
      --start 2025-12-20 --end 2026-01-20 --reason "recesso forense"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := common.ParseDate(start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			endDate, err := common.ParseDate(end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}

			period, err := deps.Suspensions.Add(suspension.Period{
				Scope:  calendar.Scope(scope),
				Start:  startDate,
				End:    endDate,
				Reason: reason,
			})
			if err != nil {
				return err
			}
			return printResult(cmd, opts,
				fmt.Sprintf("registered suspension %s: %s from %s to %s", period.ID, period.Scope, period.Start, period.End))
		},
	}

	f := cmd.Flags()
	f.StringVar(&scope, "scope", string(suspension.ScopeGlobal), "tribunal scope, or global")
	f.StringVar(&start, "start", "", "first suspended day (YYYY-MM-DD)")
	f.StringVar(&end, "end", "", "last suspended day (YYYY-MM-DD)")
	f.StringVar(&reason, "reason", "", "why the period is suspended")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newSuspensionsListCmd(deps Dependencies, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered suspension periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd, opts, suspensionList{Suspensions: deps.Suspensions.List()})
		},
	}
}

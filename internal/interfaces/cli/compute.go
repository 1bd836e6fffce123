package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/internal/domain/deadline"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// computeResult wraps a ComputedDeadline for table output.
type computeResult struct {
	deadline.ComputedDeadline
}

func (r computeResult) TableHeaders() []string {
	return []string{"ID", "DUE DATE", "BASE DAYS", "MULT", "RULE VER", "SCOPE", "STATUS"}
}

func (r computeResult) TableRows() [][]string {
	status := "requires confirmation"
	if r.Authoritative {
		status = "authoritative"
	}
	if r.BestEffort {
		status += " (best effort)"
	}
	return [][]string{{
		string(r.ID),
		r.DueDate.String(),
		fmt.Sprintf("%d", r.BaseDays),
		fmt.Sprintf("%.2f", float64(r.MultiplierHundredths)/100),
		fmt.Sprintf("%d", r.RuleVersion),
		string(r.EffectiveScope),
		status,
	}}
}

func (r computeResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "due date:     %s\n", r.DueDate)
	fmt.Fprintf(&sb, "base days:    %d (%s)\n", r.BaseDays, r.Unit)
	fmt.Fprintf(&sb, "multiplier:   %.2f -> %d days\n", float64(r.MultiplierHundredths)/100, r.MultipliedDays)
	fmt.Fprintf(&sb, "rule version: %d\n", r.RuleVersion)
	fmt.Fprintf(&sb, "scope:        %s\n", r.EffectiveScope)
	if r.BestEffort {
		sb.WriteString("best effort:  yes\n")
	}
	sb.WriteString("audit trail:\n")
	for _, entry := range r.Audit {
		fmt.Fprintf(&sb, "  - [%s] %s\n", entry.Kind, entry.Detail)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// newComputeCmd builds the compute command.
func newComputeCmd(deps Dependencies, opts *RootOptions) *cobra.Command {
	var (
		baseDate    string
		processType string
		eventKind   string
		scope       string
		roles       []string
		ruleVersion int
	)

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a deadline from a trigger event",
		Example: `  prazo compute --base-date 2025-01-02 --event-kind contestacao \
      --process-type civil --scope BR-SP --role co-defendant`,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := common.ParseDate(baseDate)
			if err != nil {
				return fmt.Errorf("invalid --base-date: %w", err)
			}

			result, err := deps.Calculator.Compute(deadline.TriggerEvent{
				BaseDate:            base,
				ProcessTypeID:       processType,
				EventKind:           eventKind,
				PartyRoles:          roles,
				Scope:               calendar.Scope(scope),
				RuleVersionOverride: ruleVersion,
			})
			if err != nil {
				return err
			}
			if err := deps.Deadlines.Save(result); err != nil {
				return err
			}
			return printResult(cmd, opts, computeResult{result})
		},
	}

	f := cmd.Flags()
	f.StringVar(&baseDate, "base-date", "", "publication/intimation date (YYYY-MM-DD)")
	f.StringVar(&processType, "process-type", "", "process type id (empty uses the configured default)")
	f.StringVar(&eventKind, "event-kind", "", "event kind (e.g. contestacao, recurso)")
	f.StringVar(&scope, "scope", "", "tribunal scope code (e.g. BR-SP-TJSP)")
	f.StringSliceVar(&roles, "role", nil, "party role, repeatable (worst-case multiplier wins)")
	f.IntVar(&ruleVersion, "rule-version", 0, "pin a rule-set version (0 = active)")
	_ = cmd.MarkFlagRequired("base-date")
	_ = cmd.MarkFlagRequired("event-kind")
	_ = cmd.MarkFlagRequired("scope")

	return cmd
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jurisflow/prazo/internal/domain/rules"
)

// ruleVersionList renders rule versions as a table.
type ruleVersionList struct {
	Versions []ruleVersionRow `json:"versions"`
}

type ruleVersionRow struct {
	Version      int    `json:"version"`
	Active       bool   `json:"active"`
	ProcessTypes int    `json:"process_types"`
	PublishedAt  string `json:"published_at"`
}

func (l ruleVersionList) TableHeaders() []string {
	return []string{"VERSION", "ACTIVE", "PROCESS TYPES", "PUBLISHED AT"}
}

func (l ruleVersionList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Versions))
	for _, v := range l.Versions {
		active := ""
		if v.Active {
			active = "*"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", v.Version),
			active,
			fmt.Sprintf("%d", v.ProcessTypes),
			v.PublishedAt,
		})
	}
	return rows
}

func (l ruleVersionList) String() string {
	return formatTable(l.TableHeaders(), l.TableRows())
}

// newRulesCmd builds the rules command group.
func newRulesCmd(deps Dependencies, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and publish rule-set versions",
	}
	cmd.AddCommand(newRulesListCmd(deps, opts), newRulesPublishCmd(deps, opts))
	return cmd
}

func newRulesListCmd(deps Dependencies, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List published rule-set versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			active := deps.Rules.ActiveVersion()
			list := ruleVersionList{}
			for _, v := range deps.Rules.ListVersions() {
				rs, err := deps.Rules.RuleSet(v)
				if err != nil {
					return err
				}
				list.Versions = append(list.Versions, ruleVersionRow{
					Version:      v,
					Active:       v == active,
					ProcessTypes: len(rs.ProcessTypes),
					PublishedAt:  rs.PublishedAt.Format("2006-01-02 15:04:05"),
				})
			}
			return printResult(cmd, opts, list)
		},
	}
}

func newRulesPublishCmd(deps Dependencies, opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Validate a draft file and publish it as the next version",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read draft: %w", err)
			}
			var draft rules.Draft
			if err := json.Unmarshal(data, &draft); err != nil {
				return fmt.Errorf("failed to decode draft: %w", err)
			}

			rs, err := deps.Rules.Publish(draft)
			if err != nil {
				return err
			}
			return printResult(cmd, opts,
				fmt.Sprintf("published rule-set version %d (%d process types)", rs.Version, len(rs.ProcessTypes)))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "draft JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/domain/criteria"
)

// NewScoresCmd creates the scores command group: recalculation, ranked
// listings, and weight normalization.
func NewScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Composite scoring and ranking operations",
		Long:  "Drive the composite scoring engine: trigger full recalculation passes,\nlist the current ranked projects, and normalize criterion weights.",
	}

	cmd.AddCommand(
		newScoresRecalculateCmd(),
		newScoresRankedCmd(),
		newScoresNormalizeCmd(),
	)

	return cmd
}

func newScoresRecalculateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate",
		Short: "Run a full scoring and ranking pass",
		Long:  "Score every project with at least one criterion score against the active\ncriteria set, rank them, and replace the rank cache.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			b, err := openBackends(cliCtx)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			summary, err := b.planningService().RecalculateAll(ctx)
			if err != nil {
				return err
			}

			PrintSuccess(cmd, fmt.Sprintf("recalculated %d project(s), %d failed, epoch %s",
				summary.Processed, summary.Failed, summary.Epoch))
			return PrintResult(cmd, rankedTable(summary.Ranked))
		},
	}
}

func newScoresRankedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ranked",
		Short: "List projects ranked by composite score",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			b, err := openBackends(cliCtx)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			ranked, err := b.planningService().GetRankedProjects(ctx)
			if err != nil {
				return err
			}
			if len(ranked) == 0 {
				PrintSuccess(cmd, "no ranked projects; run 'capline scores recalculate' first")
				return nil
			}

			return PrintResult(cmd, rankedTable(ranked))
		},
	}
}

func newScoresNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Normalize active criterion weights to sum to 100",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			b, err := openBackends(cliCtx)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			normalized, err := b.planningService().NormalizeWeights(ctx)
			if err != nil {
				return err
			}

			return PrintResult(cmd, criteriaTable(normalized))
		},
	}
}

// rankedTable renders ranked projects for table output.
type rankedTable []planning.RankedProject

func (t rankedTable) TableHeaders() []string {
	return []string{"RANK", "PROJECT", "SCORE", "TOTAL COST"}
}

func (t rankedTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		cost := "-"
		if p.TotalCost != nil {
			cost = strconv.FormatFloat(*p.TotalCost, 'f', 2, 64)
		}
		rows = append(rows, []string{
			strconv.Itoa(p.Rank),
			p.ProjectName,
			strconv.FormatFloat(p.CompositeScore, 'f', 2, 64),
			cost,
		})
	}
	return rows
}

// criteriaTable renders criteria for table output.
type criteriaTable []criteria.Criterion

func (t criteriaTable) TableHeaders() []string {
	return []string{"NAME", "CATEGORY", "WEIGHT", "ACTIVE"}
}

func (t criteriaTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, c := range t {
		rows = append(rows, []string{
			c.Name,
			c.Category,
			strconv.FormatFloat(c.Weight, 'f', 2, 64),
			strconv.FormatBool(c.IsActive),
		})
	}
	return rows
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/planva/capline/internal/application/forecasting"
	"github.com/planva/capline/internal/domain/forecast"
)

// NewForecastCmd creates the forecast command group: run generation,
// listing, and snapshot intake.
func NewForecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Portfolio condition forecasting",
		Long:  "Generate maintenance cost and condition forecasts from portfolio\nsnapshot history, and record new snapshots.",
	}

	cmd.AddCommand(
		newForecastGenerateCmd(),
		newForecastListCmd(),
		newForecastSnapshotCmd(),
	)

	return cmd
}

func newForecastGenerateCmd() *cobra.Command {
	var (
		years    int
		scenario string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a forecast run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			if years == 0 {
				years = cliCtx.Config.Engine.DefaultForecastYears
			}

			b, err := openBackends(cliCtx)
			if err != nil {
				return err
			}
			defer b.Close()

			svc := b.forecastingService()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			if all {
				runs, err := svc.GenerateAllScenarios(ctx, years)
				if err != nil {
					return err
				}
				for _, run := range runs {
					PrintSuccess(cmd, fmt.Sprintf("run %s (%s): %d point(s)",
						run.RunID, run.Scenario, len(run.Points)))
				}
				return nil
			}

			run, err := svc.Generate(ctx, forecasting.GenerateInput{
				ForecastYears: years,
				Scenario:      forecast.Scenario(scenario),
			})
			if err != nil {
				return err
			}

			PrintSuccess(cmd, fmt.Sprintf("run %s (%s)", run.RunID, run.Scenario))
			return PrintResult(cmd, pointsTable(run.Points))
		},
	}

	f := cmd.Flags()
	f.IntVar(&years, "years", 0, "forecast horizon in years (default: from config)")
	f.StringVar(&scenario, "scenario", string(forecast.ScenarioMostLikely), "scenario (best_case, most_likely, worst_case)")
	f.BoolVar(&all, "all", false, "generate all three scenarios")

	return cmd
}

func newForecastListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent forecast points",
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

			points, err := b.forecastingService().ListRecent(ctx, limit)
			if err != nil {
				return err
			}

			return PrintResult(cmd, pointsTable(points))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of points to return")

	return cmd
}

func newForecastSnapshotCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record a portfolio snapshot from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read snapshot file: %w", err)
			}

			var snap forecast.Snapshot
			if err := json.Unmarshal(raw, &snap); err != nil {
				return fmt.Errorf("invalid snapshot JSON: %w", err)
			}

			b, err := openBackends(cliCtx)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			if err := b.forecastingService().RecordSnapshot(ctx, &snap); err != nil {
				return err
			}

			PrintSuccess(cmd, fmt.Sprintf("snapshot %s recorded (FCI %.2f)", snap.ID, snap.PortfolioFCI))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the snapshot JSON file [REQUIRED]")
	cmd.MarkFlagRequired("file")

	return cmd
}

// pointsTable renders forecast points for table output.
type pointsTable []forecast.Point

func (t pointsTable) TableHeaders() []string {
	return []string{"YEAR", "SCENARIO", "COST", "FCI", "FAILURE %", "RISK", "CONFIDENCE %"}
}

func (t pointsTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		rows = append(rows, []string{
			strconv.Itoa(p.ForecastYear),
			string(p.Scenario),
			strconv.FormatFloat(p.PredictedMaintenanceCost, 'f', 0, 64),
			strconv.FormatFloat(p.PredictedFCI, 'f', 2, 64),
			strconv.FormatFloat(p.FailureProbability, 'f', 1, 64),
			strconv.FormatFloat(p.RiskScore, 'f', 1, 64),
			strconv.FormatFloat(p.ConfidenceLevel, 'f', 0, 64),
		})
	}
	return rows
}

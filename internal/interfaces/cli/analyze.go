package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/planva/capline/internal/application/analysis"
	"github.com/planva/capline/pkg/types/common"
)

// NewAnalyzeCmd creates the analyze command: a one-shot investment analysis
// from flags.  By default the analysis is ephemeral; --persist stores the
// record in the database.
func NewAnalyzeCmd() *cobra.Command {
	var (
		projectID          string
		investment         float64
		energySavings      float64
		maintenanceSavings float64
		costAvoidance      float64
		operatingCost      float64
		discountRate       float64
		inflationRate      float64
		horizon            int
		persist            bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run an investment analysis",
		Long:  "Compute NPV, ROI, IRR, payback period, and a recommendation for a\ncandidate investment from its cash-flow parameters.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			if discountRate == 0 {
				discountRate = cliCtx.Config.Engine.DefaultDiscountRate
			}
			if inflationRate == 0 {
				inflationRate = cliCtx.Config.Engine.DefaultInflationRate
			}

			svc := analysis.NewService(nil, cliCtx.Logger, nil)
			if persist {
				b, err := openBackends(cliCtx)
				if err != nil {
					return err
				}
				defer b.Close()
				svc = b.analysisService()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			rec, err := svc.Create(ctx, analysis.CreateInput{
				ProjectID:                common.ID(projectID),
				InitialInvestment:        investment,
				AnnualEnergySavings:      energySavings,
				AnnualMaintenanceSavings: maintenanceSavings,
				AnnualCostAvoidance:      costAvoidance,
				AnnualOperatingCost:      operatingCost,
				DiscountRate:             discountRate,
				InflationRate:            inflationRate,
				HorizonYears:             horizon,
			})
			if err != nil {
				return err
			}

			return PrintResult(cmd, analysisTable{rec})
		},
	}

	f := cmd.Flags()
	f.StringVar(&projectID, "project", "", "project ID to attach the analysis to")
	f.Float64Var(&investment, "investment", 0, "initial investment amount [REQUIRED]")
	f.Float64Var(&energySavings, "energy-savings", 0, "annual energy savings")
	f.Float64Var(&maintenanceSavings, "maintenance-savings", 0, "annual maintenance savings")
	f.Float64Var(&costAvoidance, "cost-avoidance", 0, "annual cost avoidance")
	f.Float64Var(&operatingCost, "operating-cost", 0, "annual operating cost introduced by the investment")
	f.Float64Var(&discountRate, "discount-rate", 0, "discount rate in percent (default: from config)")
	f.Float64Var(&inflationRate, "inflation-rate", 0, "inflation rate as a fraction, e.g. 0.03 (default: from config)")
	f.IntVar(&horizon, "horizon", 10, "analysis horizon in years")
	f.BoolVar(&persist, "persist", false, "store the analysis record in the database")
	cmd.MarkFlagRequired("investment")

	return cmd
}

// analysisTable renders a single analysis record for table output while
// marshaling as the plain record for JSON output.
type analysisTable struct {
	*analysis.Record
}

func (t analysisTable) TableHeaders() []string {
	return []string{"NPV", "ROI %", "IRR %", "PAYBACK YRS", "RECOMMENDATION"}
}

func (t analysisTable) TableRows() [][]string {
	res := t.Result

	irr := "-"
	if res.IRR != nil {
		irr = strconv.FormatFloat(*res.IRR, 'f', 2, 64)
	}
	payback := "-"
	if res.PaybackYears != nil {
		payback = strconv.FormatFloat(*res.PaybackYears, 'f', 1, 64)
	}

	return [][]string{{
		strconv.FormatFloat(res.NPV, 'f', 2, 64),
		strconv.FormatFloat(res.ROI, 'f', 2, 64),
		irr,
		payback,
		string(res.Recommendation),
	}}
}

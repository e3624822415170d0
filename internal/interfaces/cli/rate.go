package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planva/capline/internal/domain/rating"
)

// NewRateCmd creates the rate command: pure score classification, no
// backends required.
func NewRateCmd() *cobra.Command {
	var (
		score float64
		scale string
	)

	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Classify a score into a letter grade and risk zone",
		Long:  "Map a score onto the letter-grade and risk-zone threshold tables.\nThe percent scale treats higher as better; the fci scale treats lower\nas better.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := rating.ScaleType(scale)
			if st != rating.ScalePercent && st != rating.ScaleFCI {
				return fmt.Errorf("invalid scale: %s (must be percent or fci)", scale)
			}

			return PrintResult(cmd, ratingTable{rating.Classify(score, st)})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&score, "score", 0, "score to classify [REQUIRED]")
	f.StringVar(&scale, "scale", string(rating.ScalePercent), "threshold scale (percent, fci)")
	cmd.MarkFlagRequired("score")

	return cmd
}

// ratingTable renders one classification for table output while marshaling
// as the plain result for JSON output.
type ratingTable struct {
	rating.Result
}

func (t ratingTable) TableHeaders() []string {
	return []string{"SCORE", "GRADE", "ZONE", "LABEL"}
}

func (t ratingTable) TableRows() [][]string {
	return [][]string{{
		fmt.Sprintf("%.2f", t.Score),
		string(t.LetterGrade),
		string(t.Zone),
		t.ZoneLabel,
	}}
}

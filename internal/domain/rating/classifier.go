// Package rating maps numeric scores onto letter grades and traffic-light
// status zones via ordered threshold tables.  Classification is stateless
// and recomputed on demand; results are never cached across scale types.
package rating

// LetterGrade is the A-F grade assigned to a score.
type LetterGrade string

const (
	GradeA LetterGrade = "A"
	GradeB LetterGrade = "B"
	GradeC LetterGrade = "C"
	GradeD LetterGrade = "D"
	GradeF LetterGrade = "F"
)

// Zone is a coarse traffic-light status band.
type Zone string

const (
	ZoneGreen  Zone = "green"
	ZoneYellow Zone = "yellow"
	ZoneOrange Zone = "orange"
	ZoneRed    Zone = "red"
)

// zoneLabels and zoneDescriptions give each zone its presentation strings.
var zoneLabels = map[Zone]string{
	ZoneGreen:  "Good",
	ZoneYellow: "Fair",
	ZoneOrange: "Poor",
	ZoneRed:    "Critical",
}

var zoneDescriptions = map[Zone]string{
	ZoneGreen:  "Meets expectations; routine maintenance only",
	ZoneYellow: "Minor deficiencies; monitor and plan corrective work",
	ZoneOrange: "Significant deficiencies; corrective work required",
	ZoneRed:    "Severe deficiencies; immediate attention required",
}

// GradeBand is one [Min,Max] range of an ordered letter-grade threshold
// table.  Bands are contiguous, ordered best to worst; classification is
// a linear scan returning the first containing band, so a score on a
// shared edge takes the better band.
type GradeBand struct {
	Min   float64     `json:"min"`
	Max   float64     `json:"max"`
	Grade LetterGrade `json:"grade"`
}

// ZoneBand is one [Min,Max] range of an ordered zone threshold table.
type ZoneBand struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Zone Zone    `json:"zone"`
}

// ScaleType selects which built-in threshold tables apply.  Inverted scales
// (lower is better, e.g. FCI) use structurally different tables rather than
// transforming the score; callers must select the correct scale.
type ScaleType string

const (
	// ScalePercent is the standard higher-is-better 0-100 scale.
	ScalePercent ScaleType = "percent"

	// ScaleFCI is the inverted facility condition index scale, where a
	// lower deferred-repair-to-replacement ratio is better.
	ScaleFCI ScaleType = "fci"
)

// Built-in threshold tables.  Band edges follow the usual academic bands for
// the percent scale and industry FCI bands for the inverted scale.
var (
	percentGradeBands = []GradeBand{
		{Min: 90, Max: 100, Grade: GradeA},
		{Min: 80, Max: 90, Grade: GradeB},
		{Min: 70, Max: 80, Grade: GradeC},
		{Min: 60, Max: 70, Grade: GradeD},
		{Min: 0, Max: 60, Grade: GradeF},
	}
	percentZoneBands = []ZoneBand{
		{Min: 80, Max: 100, Zone: ZoneGreen},
		{Min: 60, Max: 80, Zone: ZoneYellow},
		{Min: 40, Max: 60, Zone: ZoneOrange},
		{Min: 0, Max: 40, Zone: ZoneRed},
	}

	fciGradeBands = []GradeBand{
		{Min: 0, Max: 5, Grade: GradeA},
		{Min: 5, Max: 10, Grade: GradeB},
		{Min: 10, Max: 30, Grade: GradeC},
		{Min: 30, Max: 60, Grade: GradeD},
		{Min: 60, Max: 100, Grade: GradeF},
	}
	fciZoneBands = []ZoneBand{
		{Min: 0, Max: 5, Zone: ZoneGreen},
		{Min: 5, Max: 10, Zone: ZoneYellow},
		{Min: 10, Max: 30, Zone: ZoneOrange},
		{Min: 30, Max: 100, Zone: ZoneRed},
	}
)

// Result is a derived, stateless classification of one score.
type Result struct {
	Score           float64     `json:"score"`
	LetterGrade     LetterGrade `json:"letter_grade"`
	Zone            Zone        `json:"zone"`
	ZoneLabel       string      `json:"zone_label"`
	ZoneDescription string      `json:"zone_description"`
}

// DefaultTables returns the built-in threshold tables for a scale.  An
// unknown scale gets the percent tables.
func DefaultTables(scale ScaleType) ([]GradeBand, []ZoneBand) {
	if scale == ScaleFCI {
		return fciGradeBands, fciZoneBands
	}
	return percentGradeBands, percentZoneBands
}

// Classify maps a score onto the built-in tables for the given scale.  It
// never fails: scores outside every band, including negatives and values
// above 100, fall back to the worst grade and zone.
func Classify(score float64, scale ScaleType) Result {
	grades, zones := DefaultTables(scale)
	return ClassifyWithTables(score, grades, zones)
}

// ClassifyWithTables classifies against caller-supplied threshold tables.
// The worst entry of each table is the fallback when no band contains the
// score, so out-of-bounds inputs still produce a usable result.
func ClassifyWithTables(score float64, grades []GradeBand, zones []ZoneBand) Result {
	res := Result{
		Score:       score,
		LetterGrade: GradeF,
		Zone:        ZoneRed,
	}
	if len(grades) > 0 {
		res.LetterGrade = grades[len(grades)-1].Grade
	}
	if len(zones) > 0 {
		res.Zone = zones[len(zones)-1].Zone
	}

	for _, b := range grades {
		if score >= b.Min && score <= b.Max {
			res.LetterGrade = b.Grade
			break
		}
	}
	for _, b := range zones {
		if score >= b.Min && score <= b.Max {
			res.Zone = b.Zone
			break
		}
	}

	res.ZoneLabel = zoneLabels[res.Zone]
	res.ZoneDescription = zoneDescriptions[res.Zone]
	return res
}

package snapshot

// Period is a date range rendered as yyyy-MM-dd strings. End is exclusive.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Totals struct {
	DistanceKm  float64  `json:"distance_km"`
	DurationMin float64  `json:"duration_min"`
	Sessions    int      `json:"sessions"`
	ElevationM  float64  `json:"elevation_m"`
	AvgHR       *float64 `json:"avg_hr,omitempty"`
}

type TrainingLoad struct {
	Load7d  float64 `json:"load_7d"`
	Load28d float64 `json:"load_28d"`
	Ratio   float64 `json:"ratio"`
}

// DailyRun aggregates all runs started on one calendar day.
type DailyRun struct {
	Date        string  `json:"date"`
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
	ElevationM  float64 `json:"elevation_m"`
	AvgHR       float64 `json:"avg_hr"`
	Z1          float64 `json:"z1"`
	Z2          float64 `json:"z2"`
	Z3          float64 `json:"z3"`
	Z4          float64 `json:"z4"`
	Z5          float64 `json:"z5"`
}

// Snapshot is the activity summary sent to the coaching service.
type Snapshot struct {
	WeekLabel          string             `json:"week_label"`
	Period             Period             `json:"period"`
	Totals             Totals             `json:"totals"`
	ZonesPercent       map[string]float64 `json:"zones_percent"`
	DailyRuns          []DailyRun         `json:"daily_runs"`
	TrainingLoad       *TrainingLoad      `json:"training_load,omitempty"`
	ComparisonPrevWeek map[string]float64 `json:"comparison_prev_week,omitempty"`
}

// Covers reports whether the snapshot was built for exactly [start, end).
func (s Snapshot) Covers(p Period) bool {
	return s.Period.Start == p.Start && s.Period.End == p.End
}

package coachsvc

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fdg312/run-coach/internal/ai"
	"github.com/fdg312/run-coach/internal/snapshot"
)

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// factualReply states one measured value for the snapshot period.
func factualReply(snap snapshot.Snapshot, metric string) string {
	start, end := displayRange(snap.Period)
	totals := snap.Totals

	if totals.Sessions == 0 {
		return fmt.Sprintf("Aucune séance enregistrée sur la période du %s au %s.", start, end)
	}

	prefix := fmt.Sprintf("Sur la période du %s au %s, ", start, end)
	switch strings.ToUpper(metric) {
	case ai.MetricDistance:
		return prefix + fmt.Sprintf("tu as couru %.1f km.", totals.DistanceKm)
	case ai.MetricDuration:
		minutes := int(math.Round(totals.DurationMin))
		if hours := minutes / 60; hours > 0 {
			return prefix + fmt.Sprintf("tu as couru pendant %dh%02d.", hours, minutes%60)
		}
		return prefix + fmt.Sprintf("tu as couru pendant %d minutes.", minutes)
	case ai.MetricSessions:
		return prefix + fmt.Sprintf("tu as effectué %d séances.", totals.Sessions)
	case ai.MetricAvgHR:
		if totals.AvgHR != nil {
			return prefix + fmt.Sprintf("ta fréquence cardiaque moyenne était de %.0f bpm.", *totals.AvgHR)
		}
	case ai.MetricElevation:
		return prefix + fmt.Sprintf("tu as cumulé %.0f m de dénivelé.", totals.ElevationM)
	case ai.MetricPace:
		if totals.DistanceKm > 0 {
			pace := totals.DurationMin / totals.DistanceKm
			whole := int(pace)
			seconds := int(math.Round((pace - float64(whole)) * 60))
			if seconds == 60 {
				whole, seconds = whole+1, 0
			}
			return prefix + fmt.Sprintf("ton allure moyenne était de %d'%02d\" /km.", whole, seconds)
		}
	case ai.MetricLoad:
		if snap.TrainingLoad != nil {
			return prefix + fmt.Sprintf("ton ratio de charge aiguë/chronique est de %.2f.", snap.TrainingLoad.Ratio)
		}
	}

	return prefix + fmt.Sprintf("tu as %d séances pour %.1f km.", totals.Sessions, totals.DistanceKm)
}

// comparisonReply compares right against left on the requested metric.
func comparisonReply(left, right snapshot.Snapshot, meta map[string]string) string {
	metric := strings.ToUpper(strings.TrimSpace(meta["metric"]))
	if metric == "" {
		metric = ai.MetricDistance
	}
	unit := strings.TrimSpace(meta["unit"])
	if unit == "" || metric != ai.MetricDistance {
		unit = unitFor(metric)
	}

	lv, rv := metricValue(left, metric), metricValue(right, metric)
	delta := "pas de base de comparaison"
	if lv > 0 {
		delta = fmt.Sprintf("%+.0f%%", (rv-lv)/lv*100)
	}

	return fmt.Sprintf("%s : %s %s, %s : %s %s (%s).",
		capitalize(periodName(left)), formatValue(lv, metric), unit,
		capitalize(periodName(right)), formatValue(rv, metric), unit,
		delta,
	)
}

func metricValue(snap snapshot.Snapshot, metric string) float64 {
	switch metric {
	case ai.MetricDuration:
		return snap.Totals.DurationMin
	case ai.MetricSessions:
		return float64(snap.Totals.Sessions)
	case ai.MetricElevation:
		return snap.Totals.ElevationM
	default:
		return snap.Totals.DistanceKm
	}
}

func unitFor(metric string) string {
	switch metric {
	case ai.MetricDuration:
		return "min"
	case ai.MetricSessions:
		return "séances"
	case ai.MetricElevation:
		return "m"
	default:
		return "km"
	}
}

func formatValue(v float64, metric string) string {
	if metric == ai.MetricSessions {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

// periodName is "juin 2025" for calendar months, otherwise the snapshot label.
func periodName(snap snapshot.Snapshot) string {
	start, errStart := snapshot.ParseDate(snap.Period.Start, time.UTC)
	end, errEnd := snapshot.ParseDate(snap.Period.End, time.UTC)
	if errStart == nil && errEnd == nil && start.Day() == 1 {
		next := start.AddDate(0, 1, 0)
		if end.Equal(next) || end.Equal(next.AddDate(0, 0, -1)) {
			return fmt.Sprintf("%s %d", frenchMonths[start.Month()-1], start.Year())
		}
	}
	if snap.WeekLabel != "" {
		return snap.WeekLabel
	}
	from, to := displayRange(snap.Period)
	return fmt.Sprintf("du %s au %s", from, to)
}

// displayRange renders the exclusive end as the last included day.
func displayRange(p snapshot.Period) (string, string) {
	end, err := snapshot.ParseDate(p.End, time.UTC)
	if err != nil {
		return p.Start, p.End
	}
	start, err := snapshot.ParseDate(p.Start, time.UTC)
	if err == nil && !end.After(start.AddDate(0, 0, 1)) {
		return p.Start, p.Start
	}
	return p.Start, end.AddDate(0, 0, -1).Format(snapshot.DateLayout)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

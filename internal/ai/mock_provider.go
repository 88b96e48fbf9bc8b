package ai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// MockProvider routes questions with deterministic French keyword rules.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

var (
	weekRefPattern  = regexp.MustCompile(`cette semaine|semaine en cours|semaine actuelle|semaine derni[eè]re|il y a (\d+) semaines?`)
	monthRefPattern = regexp.MustCompile(`ce mois|mois derni[eè]r|il y a (\d+) mois`)
	yearPattern     = regexp.MustCompile(`\b(20\d{2})\b`)
)

var monthNames = map[string]int{
	"janvier": 1, "février": 2, "fevrier": 2, "mars": 3, "avril": 4, "mai": 5, "juin": 6,
	"juillet": 7, "août": 8, "aout": 8, "septembre": 9, "octobre": 10, "novembre": 11,
	"décembre": 12, "decembre": 12,
}

var smallTalkWords = map[string]bool{
	"hello": true, "salut": true, "bonjour": true, "bonsoir": true, "coucou": true, "hey": true,
	"merci": true, "ok": true, "ça": true, "ca": true, "va": true, "d": true, "accord": true,
}

// Checked in order; the first metric with a matching word wins.
var metricWords = []struct {
	metric string
	words  []string
}{
	{MetricSessions, []string{"séance", "séances", "seance", "seances", "sortie", "sorties"}},
	{MetricDuration, []string{"durée", "duree", "temps", "heures", "minutes"}},
	{MetricAvgHR, []string{"fc", "cardio", "fréquence", "frequence", "bpm"}},
	{MetricPace, []string{"allure", "rythme", "vitesse"}},
	{MetricElevation, []string{"dénivelé", "denivele", "dénivelée"}},
	{MetricLoad, []string{"charge"}},
	{MetricDistance, []string{"km", "kilomètres", "kilometres", "distance", "couru"}},
}

func (p *MockProvider) Decide(ctx context.Context, req DecideRequest) (Decision, error) {
	_ = ctx

	text := normalize(req.Message)
	words := splitWords(text)
	if len(words) == 0 || isSmallTalk(words) {
		return SmallTalk(), nil
	}

	metric := detectMetric(words)
	year := yearIn(text)
	months := monthsIn(words)
	weekOffsets := weekOffsetsIn(text)

	if isComparison(words) {
		if len(months) >= 2 {
			return Decision{Type: DecisionComparePeriods, Metric: metric, Year: year, Compare: &Comparison{Months: months[:2]}}, nil
		}
		if len(weekOffsets) >= 2 {
			return Decision{Type: DecisionComparePeriods, Metric: metric, Compare: &Comparison{WeekOffsets: weekOffsets[:2]}}, nil
		}
	}

	for _, offset := range weekOffsets {
		if offset != 0 {
			return Decision{Type: DecisionRequestWeek, Metric: metric, Offset: intPtr(offset)}, nil
		}
	}
	if len(weekOffsets) > 0 {
		return Decision{Type: DecisionAnswerNow, AnswerMode: ModeFactual, Metric: metric}, nil
	}

	if offset, ok := monthOffsetIn(text); ok {
		return Decision{Type: DecisionRequestMonthRelative, Metric: metric, Offset: intPtr(offset)}, nil
	}

	if len(months) > 0 {
		return Decision{Type: DecisionRequestMonth, Metric: metric, Month: intPtr(months[0]), Year: year}, nil
	}

	if metric != "" {
		return Decision{Type: DecisionAnswerNow, AnswerMode: ModeFactual, Metric: metric}, nil
	}
	return Decision{Type: DecisionAnswerNow, AnswerMode: ModeCoaching}, nil
}

func (p *MockProvider) Answer(ctx context.Context, req AnswerRequest) (string, error) {
	_ = ctx

	if req.Mode == ModeSmallTalk {
		return "Salut 👋 Que veux-tu analyser : ton rythme, ton volume ou ta récupération ?", nil
	}

	totals := req.Snapshot.Totals
	if totals.Sessions == 0 {
		return "Je ne vois aucune séance sur cette période. Reprends en douceur avec une sortie facile de 30 minutes.", nil
	}

	load := "N/A"
	advice := "Garde une majorité de sorties en endurance fondamentale."
	if tl := req.Snapshot.TrainingLoad; tl != nil {
		load = strconv.FormatFloat(tl.Ratio, 'f', 2, 64)
		switch {
		case tl.Ratio > 1.3:
			advice = "Ta charge monte vite, prévois une semaine plus légère."
		case tl.Ratio < 0.8:
			advice = "Ta charge baisse, tu peux remonter progressivement le volume."
		}
	}

	return fmt.Sprintf(
		"Sur %s : %d séances, %.1f km en %.0f minutes (ratio de charge %s). %s",
		req.Snapshot.WeekLabel,
		totals.Sessions,
		totals.DistanceKm,
		totals.DurationMin,
		load,
		advice,
	), nil
}

func normalize(message string) string {
	text := strings.ToLower(strings.TrimSpace(message))
	text = strings.NewReplacer("’", "'", "-", " ").Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isSmallTalk(words []string) bool {
	if len(words) > 3 {
		return false
	}
	for _, w := range words {
		if !smallTalkWords[w] {
			return false
		}
	}
	return true
}

func isComparison(words []string) bool {
	for _, w := range words {
		if strings.HasPrefix(w, "compar") || w == "vs" || w == "versus" {
			return true
		}
	}
	return false
}

func detectMetric(words []string) string {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	for _, candidate := range metricWords {
		for _, w := range candidate.words {
			if set[w] {
				return candidate.metric
			}
		}
	}
	return ""
}

func monthsIn(words []string) []int {
	var months []int
	for _, w := range words {
		if m, ok := monthNames[w]; ok {
			months = append(months, m)
		}
	}
	return months
}

func weekOffsetsIn(text string) []int {
	var offsets []int
	for _, match := range weekRefPattern.FindAllStringSubmatch(text, -1) {
		switch {
		case match[1] != "":
			n, _ := strconv.Atoi(match[1])
			offsets = append(offsets, -n)
		case strings.HasPrefix(match[0], "semaine derni"):
			offsets = append(offsets, -1)
		default:
			offsets = append(offsets, 0)
		}
	}
	return offsets
}

func monthOffsetIn(text string) (int, bool) {
	match := monthRefPattern.FindStringSubmatch(text)
	switch {
	case match == nil:
		return 0, false
	case match[1] != "":
		n, _ := strconv.Atoi(match[1])
		return -n, true
	case match[0] == "ce mois":
		return 0, true
	default:
		return -1, true
	}
}

func yearIn(text string) *int {
	match := yearPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	year, _ := strconv.Atoi(match[1])
	return &year
}

func intPtr(v int) *int {
	return &v
}

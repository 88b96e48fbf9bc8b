package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/fdg312/run-coach/internal/snapshot"
)

func TestMockDecide(t *testing.T) {
	p := NewMockProvider()

	tests := []struct {
		message    string
		wantType   string
		wantMode   string
		wantMetric string
		wantOffset *int
		wantMonth  *int
	}{
		{message: "Salut !", wantType: DecisionAnswerNow, wantMode: ModeSmallTalk},
		{message: "ça va ?", wantType: DecisionAnswerNow, wantMode: ModeSmallTalk},
		{message: "   ", wantType: DecisionAnswerNow, wantMode: ModeSmallTalk},
		{message: "Combien de km la semaine dernière ?", wantType: DecisionRequestWeek, wantMetric: MetricDistance, wantOffset: intPtr(-1)},
		{message: "Combien de séances il y a 3 semaines ?", wantType: DecisionRequestWeek, wantMetric: MetricSessions, wantOffset: intPtr(-3)},
		{message: "Quelle durée cette semaine ?", wantType: DecisionAnswerNow, wantMode: ModeFactual, wantMetric: MetricDuration},
		{message: "Combien de km ce mois-ci ?", wantType: DecisionRequestMonthRelative, wantMetric: MetricDistance, wantOffset: intPtr(0)},
		{message: "Et le mois dernier ?", wantType: DecisionRequestMonthRelative, wantOffset: intPtr(-1)},
		{message: "Ma distance il y a 2 mois", wantType: DecisionRequestMonthRelative, wantMetric: MetricDistance, wantOffset: intPtr(-2)},
		{message: "Combien de km en juin ?", wantType: DecisionRequestMonth, wantMetric: MetricDistance, wantMonth: intPtr(6)},
		{message: "Combien de séances au total ?", wantType: DecisionAnswerNow, wantMode: ModeFactual, wantMetric: MetricSessions},
		{message: "Comment s'est passée ma semaine ?", wantType: DecisionAnswerNow, wantMode: ModeCoaching},
		{message: "Est-ce que je progresse ?", wantType: DecisionAnswerNow, wantMode: ModeCoaching},
		{message: "Compare juin à juillet", wantType: DecisionComparePeriods},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got, err := p.Decide(context.Background(), DecideRequest{Message: tt.message})
			if err != nil {
				t.Fatalf("decide failed: %v", err)
			}
			if got.Type != tt.wantType {
				t.Fatalf("expected type %s, got %s", tt.wantType, got.Type)
			}
			if got.AnswerMode != tt.wantMode {
				t.Fatalf("expected mode %q, got %q", tt.wantMode, got.AnswerMode)
			}
			if got.Metric != tt.wantMetric {
				t.Fatalf("expected metric %q, got %q", tt.wantMetric, got.Metric)
			}
			if !equalIntPtr(got.Offset, tt.wantOffset) {
				t.Fatalf("expected offset %v, got %v", deref(tt.wantOffset), deref(got.Offset))
			}
			if !equalIntPtr(got.Month, tt.wantMonth) {
				t.Fatalf("expected month %v, got %v", deref(tt.wantMonth), deref(got.Month))
			}
		})
	}
}

func TestMockDecideDoesNotMistakeSemaineForMai(t *testing.T) {
	got, _ := NewMockProvider().Decide(context.Background(), DecideRequest{Message: "Bilan de ma semaine maintenant"})
	if got.Type == DecisionRequestMonth {
		t.Fatalf("expected no month request, got %+v", got)
	}
}

func TestMockDecideComparisons(t *testing.T) {
	p := NewMockProvider()

	months, _ := p.Decide(context.Background(), DecideRequest{Message: "Compare juin à juillet 2025"})
	if months.Compare == nil || len(months.Compare.Months) != 2 || months.Compare.Months[0] != 6 || months.Compare.Months[1] != 7 {
		t.Fatalf("expected months [6 7], got %+v", months.Compare)
	}
	if months.Year == nil || *months.Year != 2025 {
		t.Fatalf("expected year 2025, got %v", deref(months.Year))
	}

	weeks, _ := p.Decide(context.Background(), DecideRequest{Message: "cette semaine vs la semaine dernière"})
	if weeks.Type != DecisionComparePeriods || weeks.Compare == nil {
		t.Fatalf("expected week comparison, got %+v", weeks)
	}
	if got := weeks.Compare.WeekOffsets; len(got) != 2 || got[0] != 0 || got[1] != -1 {
		t.Fatalf("expected offsets [0 -1], got %v", got)
	}
}

func TestMockAnswer(t *testing.T) {
	p := NewMockProvider()

	small, _ := p.Answer(context.Background(), AnswerRequest{Mode: ModeSmallTalk})
	if !strings.Contains(small, "Que veux-tu analyser") {
		t.Fatalf("unexpected small talk answer: %q", small)
	}

	snap := snapshot.Snapshot{
		WeekLabel:    "2025-W28",
		Totals:       snapshot.Totals{DistanceKm: 42.5, DurationMin: 240, Sessions: 4},
		TrainingLoad: &snapshot.TrainingLoad{Ratio: 1.5},
	}
	coaching, _ := p.Answer(context.Background(), AnswerRequest{Mode: ModeCoaching, Snapshot: snap})
	if !strings.Contains(coaching, "42.5 km") || !strings.Contains(coaching, "semaine plus légère") {
		t.Fatalf("unexpected coaching answer: %q", coaching)
	}
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

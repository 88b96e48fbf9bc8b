package ai

import (
	"context"

	"github.com/fdg312/run-coach/internal/snapshot"
)

// Decision types returned by Decide.
const (
	DecisionAnswerNow            = "ANSWER_NOW"
	DecisionRequestWeek          = "REQUEST_WEEK"
	DecisionRequestMonth         = "REQUEST_MONTH"
	DecisionRequestMonthRelative = "REQUEST_MONTH_RELATIVE"
	DecisionComparePeriods       = "COMPARE_PERIODS"
)

// Answer modes for DecisionAnswerNow.
const (
	ModeFactual   = "FACTUAL"
	ModeCoaching  = "COACHING"
	ModeSmallTalk = "SMALL_TALK"
)

const (
	MetricDistance  = "DISTANCE"
	MetricDuration  = "DURATION"
	MetricSessions  = "SESSIONS"
	MetricAvgHR     = "AVG_HR"
	MetricPace      = "PACE"
	MetricElevation = "ELEVATION"
	MetricLoad      = "LOAD"
)

type Provider interface {
	Decide(ctx context.Context, req DecideRequest) (Decision, error)
	Answer(ctx context.Context, req AnswerRequest) (string, error)
}

type DecideRequest struct {
	Message     string
	PeriodStart string
	PeriodEnd   string
}

// Decision routes one user question.
type Decision struct {
	Type       string      `json:"type"`
	AnswerMode string      `json:"answer_mode,omitempty"`
	Metric     string      `json:"metric,omitempty"`
	Offset     *int        `json:"offset,omitempty"`
	Month      *int        `json:"month,omitempty"`
	Year       *int        `json:"year,omitempty"`
	Compare    *Comparison `json:"compare,omitempty"`
}

// Comparison names two months or two week offsets, left first.
type Comparison struct {
	Months      []int `json:"months,omitempty"`
	WeekOffsets []int `json:"week_offsets,omitempty"`
}

type AnswerRequest struct {
	Message  string
	Mode     string
	Snapshot snapshot.Snapshot
}

func SmallTalk() Decision {
	return Decision{Type: DecisionAnswerNow, AnswerMode: ModeSmallTalk}
}

package coachsvc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fdg312/run-coach/internal/ai"
	"github.com/fdg312/run-coach/internal/export"
	"github.com/fdg312/run-coach/internal/snapshot"
	"github.com/fdg312/run-coach/internal/storage"
	"github.com/fdg312/run-coach/internal/userctx"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrAIFailed       = errors.New("ai failed")
)

const (
	replyUnknownMonth   = "Je n’ai pas compris quel mois précis tu voulais. Peux-tu préciser (ex: 'novembre 2025') ?"
	replyUnknownCompare = "Je n’ai pas compris quelles périodes comparer. Essaie par exemple 'compare juin à juillet'."
	replyEmptyAnswer    = "Je n’ai pas de réponse pour le moment. Peux-tu reformuler ta question ?"
	decisionComparison  = "COMPARISON"
)

var currentWeekPhrases = []string{"cette semaine", "semaine en cours", "semaine actuelle"}

type Service struct {
	exchanges    storage.ExchangesStorage
	provider     ai.Provider
	defaultOwner string
	listLimit    int
	loc          *time.Location
	now          func() time.Time
	exporter     *export.Exporter
}

func NewService(exchanges storage.ExchangesStorage, provider ai.Provider, defaultOwner string, listLimit int) *Service {
	if listLimit <= 0 {
		listLimit = 50
	}
	return &Service{
		exchanges:    exchanges,
		provider:     provider,
		defaultOwner: strings.TrimSpace(defaultOwner),
		listLimit:    listLimit,
		loc:          time.Local,
		now:          time.Now,
	}
}

func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Chat answers one message or asks the client for the snapshot it needs.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" || req.Snapshot == nil {
		return ChatResponse{}, ErrInvalidRequest
	}

	if req.Snapshots != nil {
		if req.Snapshots.Left == nil || req.Snapshots.Right == nil {
			return ChatResponse{}, ErrInvalidRequest
		}
		resp := ChatResponse{Reply: comparisonReply(*req.Snapshots.Left, *req.Snapshots.Right, req.Meta)}
		s.record(ctx, message, decisionComparison, snapshot.Period{Start: req.Snapshots.Left.Period.Start, End: req.Snapshots.Right.Period.End}, resp)
		return resp, nil
	}

	decision, err := s.provider.Decide(ctx, ai.DecideRequest{
		Message:     message,
		PeriodStart: req.Snapshot.Period.Start,
		PeriodEnd:   req.Snapshot.Period.End,
	})
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%w: %v", ErrAIFailed, err)
	}
	decision = overrideCurrentWeek(message, decision)

	log.Printf("coach: decision type=%s mode=%s metric=%s", decision.Type, decision.AnswerMode, decision.Metric)

	resp, period, err := s.route(ctx, message, *req.Snapshot, decision)
	if err != nil {
		return ChatResponse{}, err
	}
	s.record(ctx, message, decision.Type, period, resp)
	return resp, nil
}

func (s *Service) route(ctx context.Context, message string, snap snapshot.Snapshot, decision ai.Decision) (ChatResponse, snapshot.Period, error) {
	metric := decision.Metric
	if metric == "" {
		metric = ai.MetricDistance
	}
	today := s.now().In(s.loc)

	switch decision.Type {
	case ai.DecisionRequestWeek:
		offset := -1
		if decision.Offset != nil {
			offset = *decision.Offset
		}
		start, end := snapshot.WeekBounds(today, offset)
		resp, period := requestOrAnswer(snap, snapshot.FormatPeriod(start, end), metric)
		return resp, period, nil

	case ai.DecisionRequestMonth:
		if decision.Month == nil || *decision.Month < 1 || *decision.Month > 12 {
			return ChatResponse{Reply: replyUnknownMonth}, snap.Period, nil
		}
		year := yearOf(snap, today)
		if decision.Year != nil && *decision.Year > 0 {
			year = *decision.Year
		}
		start, end := snapshot.MonthBounds(year, time.Month(*decision.Month), s.loc)
		resp, period := requestOrAnswer(snap, snapshot.FormatPeriod(start, end), metric)
		return resp, period, nil

	case ai.DecisionRequestMonthRelative:
		start, end := snapshot.RelativeMonthBounds(today, relativeMonthOffset(message, decision.Offset))
		resp, period := requestOrAnswer(snap, snapshot.FormatPeriod(start, end), metric)
		return resp, period, nil

	case ai.DecisionComparePeriods:
		pair, ok := s.comparisonPeriods(decision, today)
		if !ok {
			return ChatResponse{Reply: replyUnknownCompare}, snap.Period, nil
		}
		return ChatResponse{
			Type:      TypeRequestSnapshotBatch,
			Snapshots: &pair,
			Meta:      map[string]string{"metric": metric, "unit": unitFor(metric)},
		}, snapshot.Period{Start: pair.Left.Start, End: pair.Right.End}, nil
	}

	if decision.AnswerMode == ai.ModeFactual {
		return ChatResponse{Reply: factualReply(snap, metric)}, snap.Period, nil
	}

	mode := decision.AnswerMode
	if mode != ai.ModeSmallTalk {
		mode = ai.ModeCoaching
	}
	reply, err := s.provider.Answer(ctx, ai.AnswerRequest{Message: message, Mode: mode, Snapshot: snap})
	if err != nil {
		return ChatResponse{}, snapshot.Period{}, fmt.Errorf("%w: %v", ErrAIFailed, err)
	}
	if strings.TrimSpace(reply) == "" {
		log.Printf("WARN coach: provider returned an empty answer (mode=%s)", mode)
		reply = replyEmptyAnswer
	}
	return ChatResponse{Reply: reply}, snap.Period, nil
}

// requestOrAnswer answers from snap when it already covers the target period.
func requestOrAnswer(snap snapshot.Snapshot, target snapshot.Period, metric string) (ChatResponse, snapshot.Period) {
	if snap.Covers(target) {
		return ChatResponse{Reply: factualReply(snap, metric)}, target
	}
	return ChatResponse{
		Type:   TypeRequestSnapshot,
		Period: &target,
		Meta:   map[string]string{"metric": metric},
	}, target
}

func (s *Service) comparisonPeriods(decision ai.Decision, today time.Time) (PeriodPair, bool) {
	if decision.Compare == nil {
		return PeriodPair{}, false
	}

	if months := decision.Compare.Months; len(months) == 2 {
		year := today.Year()
		if decision.Year != nil && *decision.Year > 0 {
			year = *decision.Year
		}
		for _, m := range months {
			if m < 1 || m > 12 {
				return PeriodPair{}, false
			}
		}
		ls, le := snapshot.MonthBounds(year, time.Month(months[0]), s.loc)
		rs, re := snapshot.MonthBounds(year, time.Month(months[1]), s.loc)
		return PeriodPair{Left: snapshot.FormatPeriod(ls, le), Right: snapshot.FormatPeriod(rs, re)}, true
	}

	if offsets := decision.Compare.WeekOffsets; len(offsets) == 2 {
		ls, le := snapshot.WeekBounds(today, offsets[0])
		rs, re := snapshot.WeekBounds(today, offsets[1])
		return PeriodPair{Left: snapshot.FormatPeriod(ls, le), Right: snapshot.FormatPeriod(rs, re)}, true
	}
	return PeriodPair{}, false
}

// overrideCurrentWeek forces a factual answer for questions about the current week.
func overrideCurrentWeek(message string, decision ai.Decision) ai.Decision {
	if decision.Type == ai.DecisionComparePeriods {
		return decision
	}
	lowered := strings.ToLower(message)
	for _, phrase := range currentWeekPhrases {
		if strings.Contains(lowered, phrase) {
			metric := decision.Metric
			if metric == "" {
				metric = ai.MetricDistance
			}
			return ai.Decision{Type: ai.DecisionAnswerNow, AnswerMode: ai.ModeFactual, Metric: metric}
		}
	}
	return decision
}

// relativeMonthOffset trusts explicit wording over the model's offset.
func relativeMonthOffset(message string, offset *int) int {
	lowered := strings.ToLower(message)
	switch {
	case strings.Contains(lowered, "ce mois"):
		return 0
	case strings.Contains(lowered, "mois dernier"):
		return -1
	case offset != nil:
		return *offset
	default:
		return -1
	}
}

func yearOf(snap snapshot.Snapshot, today time.Time) int {
	if start, err := snapshot.ParseDate(snap.Period.Start, time.UTC); err == nil {
		return start.Year()
	}
	return today.Year()
}

func (s *Service) record(ctx context.Context, message, decisionType string, period snapshot.Period, resp ChatResponse) {
	if s.exchanges == nil {
		return
	}
	if resp.Type != "" {
		decisionType = resp.Type
	}
	exchange := &storage.Exchange{
		OwnerUserID:  s.ownerFromContext(ctx),
		Message:      message,
		DecisionType: decisionType,
		PeriodStart:  period.Start,
		PeriodEnd:    period.End,
		Reply:        resp.Reply,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.exchanges.InsertExchange(ctx, exchange); err != nil {
		log.Printf("coach: record exchange failed: %v", err)
	}
}

func (s *Service) ListExchanges(ctx context.Context, limit int) (*ListExchangesResponse, error) {
	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}
	if s.exchanges == nil {
		return &ListExchangesResponse{Exchanges: []ExchangeDTO{}}, nil
	}

	rows, err := s.exchanges.ListExchanges(ctx, s.ownerFromContext(ctx), limit)
	if err != nil {
		return nil, err
	}

	exchanges := make([]ExchangeDTO, 0, len(rows))
	for _, row := range rows {
		exchanges = append(exchanges, ExchangeDTO{
			ID:           row.ID,
			Message:      row.Message,
			DecisionType: row.DecisionType,
			PeriodStart:  row.PeriodStart,
			PeriodEnd:    row.PeriodEnd,
			Reply:        row.Reply,
			CreatedAt:    row.CreatedAt,
		})
	}
	return &ListExchangesResponse{Exchanges: exchanges}, nil
}

func (s *Service) ownerFromContext(ctx context.Context) string {
	return userctx.OwnerOr(ctx, s.defaultOwner)
}

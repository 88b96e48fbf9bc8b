package snapshot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fdg312/run-coach/internal/storage"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

var ErrInvalidRange = errors.New("invalid snapshot range")

// Provider builds snapshots from stored runs of a single owner.
type Provider struct {
	runs        storage.RunsStorage
	ownerUserID string
	loc         *time.Location
	now         func() time.Time
	cache       *expirable.LRU[string, Snapshot]
}

func NewProvider(runs storage.RunsStorage, ownerUserID string) *Provider {
	return &Provider{
		runs:        runs,
		ownerUserID: ownerUserID,
		loc:         time.Local,
		now:         time.Now,
	}
}

// WithCache memoizes snapshots per range for ttl.
func (p *Provider) WithCache(size int, ttl time.Duration) *Provider {
	if size > 0 {
		p.cache = expirable.NewLRU[string, Snapshot](size, nil, ttl)
	}
	return p
}

func (p *Provider) WithLocation(loc *time.Location) *Provider {
	if loc != nil {
		p.loc = loc
	}
	return p
}

func (p *Provider) WithClock(now func() time.Time) *Provider {
	if now != nil {
		p.now = now
	}
	return p
}

// Location is the zone used to cut days and weeks.
func (p *Provider) Location() *time.Location {
	return p.loc
}

// RecordRun stores a run and drops cached snapshots.
func (p *Provider) RecordRun(ctx context.Context, run *storage.Run) error {
	if run.OwnerUserID == "" {
		run.OwnerUserID = p.ownerUserID
	}
	if err := p.runs.InsertRun(ctx, run); err != nil {
		return err
	}
	p.Invalidate()
	return nil
}

func (p *Provider) Invalidate() {
	if p.cache != nil {
		p.cache.Purge()
	}
}

// MakeDefaultSnapshot summarises the current Monday-based week.
func (p *Provider) MakeDefaultSnapshot(ctx context.Context) (Snapshot, error) {
	start, end := WeekBounds(p.now().In(p.loc), 0)
	return p.MakeSnapshot(ctx, start, end)
}

// MakeSnapshot summarises runs started in [start, end).
func (p *Provider) MakeSnapshot(ctx context.Context, start, end time.Time) (Snapshot, error) {
	start = startOfDay(start.In(p.loc))
	end = startOfDay(end.In(p.loc))
	if !end.After(start) {
		return Snapshot{}, fmt.Errorf("%w: %s is not after %s", ErrInvalidRange, end.Format(DateLayout), start.Format(DateLayout))
	}

	key := start.Format(DateLayout) + "|" + end.Format(DateLayout)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			return cached, nil
		}
	}

	runs, err := p.runs.ListRuns(ctx, p.ownerUserID, start, end)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list runs: %w", err)
	}

	loadRuns, err := p.runs.ListRuns(ctx, p.ownerUserID, end.AddDate(0, 0, -28), end)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list load runs: %w", err)
	}

	snap := build(start, end, runs, p.loc)
	snap.TrainingLoad = trainingLoad(loadRuns, end)

	if p.cache != nil {
		p.cache.Add(key, snap)
	}
	return snap, nil
}

func build(start, end time.Time, runs []storage.Run, loc *time.Location) Snapshot {
	snap := Snapshot{
		WeekLabel:    Label(start, end),
		Period:       FormatPeriod(start, end),
		ZonesPercent: map[string]float64{"z1": 0, "z2": 0, "z3": 0, "z4": 0, "z5": 0},
		DailyRuns:    make([]DailyRun, 0),
	}

	var zones [5]float64
	var hrWeighted, hrMinutes float64
	byDate := make(map[string]int)

	for _, run := range runs {
		snap.Totals.DistanceKm += run.DistanceKm
		snap.Totals.DurationMin += run.DurationMin
		snap.Totals.ElevationM += run.ElevationM
		snap.Totals.Sessions++
		for i := range zones {
			zones[i] += run.ZoneMinutes[i]
		}
		if run.AvgHR != nil && run.DurationMin > 0 {
			hrWeighted += *run.AvgHR * run.DurationMin
			hrMinutes += run.DurationMin
		}

		date := run.StartedAt.In(loc).Format(DateLayout)
		idx, ok := byDate[date]
		if !ok {
			snap.DailyRuns = append(snap.DailyRuns, DailyRun{Date: date})
			idx = len(snap.DailyRuns) - 1
			byDate[date] = idx
		}
		day := &snap.DailyRuns[idx]
		prevMinutes := day.DurationMin
		day.DistanceKm += run.DistanceKm
		day.DurationMin += run.DurationMin
		day.ElevationM += run.ElevationM
		if run.AvgHR != nil && day.DurationMin > 0 {
			day.AvgHR = (day.AvgHR*prevMinutes + *run.AvgHR*run.DurationMin) / day.DurationMin
		}
		day.Z1 += run.ZoneMinutes[0]
		day.Z2 += run.ZoneMinutes[1]
		day.Z3 += run.ZoneMinutes[2]
		day.Z4 += run.ZoneMinutes[3]
		day.Z5 += run.ZoneMinutes[4]
	}

	if hrMinutes > 0 {
		avg := round1(hrWeighted / hrMinutes)
		snap.Totals.AvgHR = &avg
	}

	var zoneTotal float64
	for _, z := range zones {
		zoneTotal += z
	}
	if zoneTotal > 0 {
		for i, z := range zones {
			snap.ZonesPercent[fmt.Sprintf("z%d", i+1)] = round1(z / zoneTotal * 100)
		}
	}

	snap.Totals.DistanceKm = round2(snap.Totals.DistanceKm)
	snap.Totals.DurationMin = round1(snap.Totals.DurationMin)
	snap.Totals.ElevationM = round1(snap.Totals.ElevationM)
	return snap
}

// trainingLoad compares the last 7 days of running minutes with the 28-day weekly average.
func trainingLoad(runs []storage.Run, end time.Time) *TrainingLoad {
	weekStart := end.AddDate(0, 0, -7)
	var load7, load28 float64
	for _, run := range runs {
		load28 += run.DurationMin
		if !run.StartedAt.Before(weekStart) {
			load7 += run.DurationMin
		}
	}
	if load28 == 0 {
		return nil
	}
	return &TrainingLoad{
		Load7d:  round1(load7),
		Load28d: round1(load28),
		Ratio:   round2(load7 / (load28 / 4)),
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

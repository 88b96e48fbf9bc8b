package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fdg312/run-coach/internal/snapshot"
	"github.com/fdg312/run-coach/internal/storage"
)

// runRecord is one entry of a runs JSON file, as exported from the phone.
type runRecord struct {
	StartedAt   time.Time  `json:"started_at"`
	DistanceKm  float64    `json:"distance_km"`
	DurationMin float64    `json:"duration_min"`
	ElevationM  float64    `json:"elevation_m"`
	AvgHR       *float64   `json:"avg_hr,omitempty"`
	ZoneMinutes [5]float64 `json:"zone_minutes"`
}

func loadRunsFile(path string) ([]runRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read runs file: %w", err)
	}
	return parseRuns(data)
}

func parseRuns(data []byte) ([]runRecord, error) {
	var records []runRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse runs file: %w", err)
	}
	for i, r := range records {
		if r.StartedAt.IsZero() {
			return nil, fmt.Errorf("run #%d: started_at is required", i+1)
		}
		if r.DistanceKm < 0 || r.DurationMin < 0 {
			return nil, fmt.Errorf("run #%d: distance and duration must be non-negative", i+1)
		}
	}
	return records, nil
}

// importRuns records every run; duplicates are skipped.
func importRuns(ctx context.Context, health *snapshot.Provider, records []runRecord, owner string, logger *logrus.Logger) (imported, skipped int) {
	for _, r := range records {
		run := storage.Run{
			OwnerUserID: owner,
			StartedAt:   r.StartedAt,
			DistanceKm:  r.DistanceKm,
			DurationMin: r.DurationMin,
			ElevationM:  r.ElevationM,
			AvgHR:       r.AvgHR,
			ZoneMinutes: r.ZoneMinutes,
		}
		if err := health.RecordRun(ctx, &run); err != nil {
			if !errors.Is(err, storage.ErrDuplicateRun) {
				logger.WithError(err).WithField("started_at", r.StartedAt).Warn("run not imported")
			}
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <runs.json>",
		Short: "Store runs from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.DatabaseURL == "" {
				a.log.Warn("DATABASE_URL is not set: runs are kept in memory for this process only")
			}

			records, err := loadRunsFile(args[0])
			if err != nil {
				return err
			}
			imported, skipped := importRuns(ctx, a.health, records, a.cfg.Coach.OwnerUserID, a.log)
			a.log.WithFields(logrus.Fields{"imported": imported, "skipped": skipped}).Info("import finished")
			return nil
		},
	}
}

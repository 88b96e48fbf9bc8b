package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fdg312/run-coach/internal/coach"
	"github.com/fdg312/run-coach/internal/config"
	"github.com/fdg312/run-coach/internal/snapshot"
	"github.com/fdg312/run-coach/internal/storage/memory"
)

const runsJSON = `[
  {"started_at":"2025-07-07T07:00:00Z","distance_km":10,"duration_min":60,"zone_minutes":[10,20,20,10,0]},
  {"started_at":"2025-07-08T07:00:00Z","distance_km":5,"duration_min":30,"avg_hr":142}
]`

// syncBuffer is written by the loop and the reply printer at once.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestParseRuns(t *testing.T) {
	records, err := parseRuns([]byte(runsJSON))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].DistanceKm != 10 {
		t.Errorf("distance = %v", records[0].DistanceKm)
	}
	if want := [5]float64{10, 20, 20, 10, 0}; records[0].ZoneMinutes != want {
		t.Errorf("zones = %v, want %v", records[0].ZoneMinutes, want)
	}
	if records[1].AvgHR == nil || *records[1].AvgHR != 142 {
		t.Errorf("expected avg_hr 142, got %v", records[1].AvgHR)
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "missing start", body: `[{"distance_km":3}]`, wantErr: "started_at is required"},
		{name: "negative distance", body: `[{"started_at":"2025-07-07T07:00:00Z","distance_km":-1}]`, wantErr: "non-negative"},
		{name: "bad json", body: `{`, wantErr: "parse runs file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRuns([]byte(tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestImportRunsSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	records, err := parseRuns([]byte(runsJSON))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	health := snapshot.NewProvider(memory.New(), "runner").WithLocation(time.UTC)
	if imported, skipped := importRuns(ctx, health, records, "runner", quietLogger()); imported != 2 || skipped != 0 {
		t.Fatalf("first import: imported=%d skipped=%d", imported, skipped)
	}
	if imported, skipped := importRuns(ctx, health, records, "runner", quietLogger()); imported != 0 || skipped != 2 {
		t.Fatalf("second import: imported=%d skipped=%d", imported, skipped)
	}

	start := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	snap, err := health.MakeSnapshot(ctx, start, start.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if snap.Totals.DistanceKm != 15 || snap.Totals.Sessions != 2 {
		t.Fatalf("unexpected totals %+v", snap.Totals)
	}
}

func TestLoadRunsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	if err := os.WriteFile(path, []byte(runsJSON), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	records, err := loadRunsFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if _, err := loadRunsFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.Config{Coach: config.CoachConfig{ServiceURL: "http://a", TimeoutSeconds: 30, OwnerUserID: "default"}}
	applyOverrides(cfg, &options{url: "http://b/chat", token: "t", timeout: 5})

	if cfg.Coach.ServiceURL != "http://b/chat" || cfg.Coach.APIToken != "t" || cfg.Coach.TimeoutSeconds != 5 {
		t.Fatalf("flags not applied: %+v", cfg.Coach)
	}
	if cfg.Coach.OwnerUserID != "default" {
		t.Fatalf("unset flag must keep config value, got %q", cfg.Coach.OwnerUserID)
	}
}

func newTestApp(t *testing.T, serverURL string) *app {
	t.Helper()
	health := snapshot.NewProvider(memory.New(), "runner").WithLocation(time.UTC)
	return &app{
		cfg: &config.Config{
			Blob:  config.BlobConfig{Mode: config.BlobModeLocal, LocalDir: t.TempDir()},
			Coach: config.CoachConfig{OwnerUserID: "runner"},
		},
		log:      quietLogger(),
		store:    memory.New(),
		health:   health,
		dialogue: coach.NewDialogue(nil, coach.NewClient(serverURL).WithLocation(time.UTC), health),
	}
}

func TestChatLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"reply":"Bonne séance !"}`))
	}))
	t.Cleanup(srv.Close)

	a := newTestApp(t, srv.URL)
	in := strings.NewReader("salut\n\n/export csv\n/export docx\n/quit\nignored\n")
	var out syncBuffer
	if err := a.chatLoop(context.Background(), in, &out); err != nil {
		t.Fatalf("chat loop failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"coach> Bonne séance !",
		"usage: /export pdf|csv",
		"export: " + a.cfg.Blob.LocalDir + "/exports/runner/",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	turns := a.dialogue.Conversation().Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if !turns[0].IsFromUser || turns[1].Text != "Bonne séance !" {
		t.Fatalf("unexpected turns %+v", turns)
	}

	transcript := transcriptOf(turns)
	if len(transcript.Entries) != 2 {
		t.Fatalf("expected 2 transcript entries, got %d", len(transcript.Entries))
	}
	if transcript.Entries[0].Author != "Moi" || transcript.Entries[1].Author != "Coach" {
		t.Fatalf("unexpected authors %q, %q", transcript.Entries[0].Author, transcript.Entries[1].Author)
	}
}

// slowWriter stalls on every write.
type slowWriter struct {
	syncBuffer
	writes atomic.Int32
}

func (w *slowWriter) Write(p []byte) (int, error) {
	w.writes.Add(1)
	time.Sleep(2 * time.Millisecond)
	return w.syncBuffer.Write(p)
}

func TestChatLoopPrintsEveryReplyToSlowOutput(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"reply":"réponse %d"}`, n.Add(1))
	}))
	t.Cleanup(srv.Close)

	const questions = 40
	var in strings.Builder
	for i := 0; i < questions; i++ {
		fmt.Fprintf(&in, "question %d\n", i)
	}

	a := newTestApp(t, srv.URL)
	out := &slowWriter{}
	if err := a.chatLoop(context.Background(), strings.NewReader(in.String()), out); err != nil {
		t.Fatalf("chat loop failed: %v", err)
	}

	if got := strings.Count(out.String(), "coach> "); got != questions {
		t.Fatalf("expected %d printed replies, got %d", questions, got)
	}
	if got := a.dialogue.Conversation().Len(); got != 2*questions {
		t.Fatalf("expected %d turns, got %d", 2*questions, got)
	}
}

package coach

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fdg312/run-coach/internal/snapshot"
)

func TestDecodeClassification(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Kind
		wantErr error
	}{
		{name: "direct", body: `{"reply":"Bien couru !"}`, want: KindDirect},
		{name: "reply wins over request type", body: `{"reply":"ok","type":"REQUEST_SNAPSHOT","period":{"start":"2025-06-01","end":"2025-07-01"}}`, want: KindDirect},
		{name: "reply wins over batch", body: `{"reply":"ok","snapshots":{"left":{"start":"2025-06-01","end":"2025-07-01"},"right":{"start":"2025-07-01","end":"2025-08-01"}}}`, want: KindDirect},
		{name: "blank reply falls through", body: `{"reply":"  ","type":"REQUEST_SNAPSHOT","period":{"start":"2025-06-01","end":"2025-07-01"}}`, want: KindSingleRange},
		{name: "single range", body: `{"type":"REQUEST_SNAPSHOT","period":{"start":"2025-06-01","end":"2025-07-01"}}`, want: KindSingleRange},
		{name: "single range without type tag", body: `{"period":{"start":"2025-06-01","end":"2025-07-01"}}`, want: KindSingleRange},
		{name: "dual wins over single", body: `{"period":{"start":"2025-06-01","end":"2025-07-01"},"snapshots":{"left":{"start":"2025-06-01","end":"2025-07-01"},"right":{"start":"2025-07-01","end":"2025-08-01"}}}`, want: KindDualRange},
		{name: "dual range", body: `{"type":"REQUEST_SNAPSHOT_BATCH","snapshots":{"left":{"start":"2025-06-01","end":"2025-06-30"},"right":{"start":"2025-07-01","end":"2025-07-31"}},"meta":{"unit":"km"}}`, want: KindDualRange},
		{name: "empty object", body: `{}`, want: KindMalformed, wantErr: ErrUnrecognizedResponse},
		{name: "type without period", body: `{"type":"REQUEST_SNAPSHOT"}`, want: KindMalformed, wantErr: ErrUnrecognizedResponse},
		{name: "batch missing right", body: `{"type":"REQUEST_SNAPSHOT_BATCH","snapshots":{"left":{"start":"2025-06-01","end":"2025-06-30"}}}`, want: KindMalformed, wantErr: ErrUnrecognizedResponse},
		{name: "period missing end", body: `{"type":"REQUEST_SNAPSHOT","period":{"start":"2025-06-01"}}`, want: KindMalformed, wantErr: ErrUnrecognizedResponse},
		{name: "bad single date", body: `{"type":"REQUEST_SNAPSHOT","period":{"start":"01/06/2025","end":"2025-07-01"}}`, want: KindMalformed, wantErr: ErrBadPeriod},
		{name: "bad dual date", body: `{"type":"REQUEST_SNAPSHOT_BATCH","snapshots":{"left":{"start":"2025-06-01","end":"2025-06-30"},"right":{"start":"2025-13-01","end":"2025-07-31"}}}`, want: KindMalformed, wantErr: ErrBadPeriod},
		{name: "inverted range", body: `{"period":{"start":"2025-07-01","end":"2025-06-01"}}`, want: KindMalformed, wantErr: ErrBadPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Decode([]byte(tt.body), time.UTC)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if resp.Kind != tt.want {
				t.Fatalf("expected kind %s, got %s", tt.want, resp.Kind)
			}
			if tt.wantErr != nil && !errors.Is(resp.Err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, resp.Err)
			}
			if tt.wantErr == nil && resp.Err != nil {
				t.Fatalf("unexpected classification error %v", resp.Err)
			}
		})
	}
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	for _, body := range []string{`not json`, `{"reply":42}`, `{"period":"2025-06"}`} {
		if _, err := Decode([]byte(body), time.UTC); err == nil {
			t.Errorf("expected decode error for %s", body)
		}
	}
}

func TestDecodeDualRangeFields(t *testing.T) {
	body := `{"type":"REQUEST_SNAPSHOT_BATCH","snapshots":{"left":{"start":"2025-06-01","end":"2025-06-30"},"right":{"start":"2025-07-01","end":"2025-07-31"}},"meta":{"unit":"km"}}`

	resp, err := Decode([]byte(body), time.UTC)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Kind != KindDualRange {
		t.Fatalf("expected dual range, got %s", resp.Kind)
	}
	if want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC); !resp.Left.Start.Equal(want) {
		t.Errorf("left start = %v, want %v", resp.Left.Start, want)
	}
	if want := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC); !resp.Left.End.Equal(want) {
		t.Errorf("left end = %v, want %v", resp.Left.End, want)
	}
	if want := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC); !resp.Right.Start.Equal(want) {
		t.Errorf("right start = %v, want %v", resp.Right.Start, want)
	}
	if len(resp.Meta) != 1 || resp.Meta["unit"] != "km" {
		t.Errorf("unexpected meta %v", resp.Meta)
	}
}

func TestDecodeDualRangeWithoutMetaGetsEmptyMap(t *testing.T) {
	body := `{"snapshots":{"left":{"start":"2025-06-01","end":"2025-06-30"},"right":{"start":"2025-07-01","end":"2025-07-31"}}}`

	resp, err := Decode([]byte(body), time.UTC)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Kind != KindDualRange {
		t.Fatalf("expected dual range, got %s", resp.Kind)
	}
	if resp.Meta == nil || len(resp.Meta) != 0 {
		t.Fatalf("expected empty non-nil meta, got %#v", resp.Meta)
	}
}

func TestOutboundRequestJSON(t *testing.T) {
	snap := snapshot.Snapshot{WeekLabel: "2025-W28", Period: snapshot.Period{Start: "2025-07-07", End: "2025-07-14"}}

	t.Run("plain request omits comparison fields", func(t *testing.T) {
		raw, err := json.Marshal(OutboundRequest{Message: "salut", Snapshot: snap})
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		for _, key := range []string{"message", "snapshot"} {
			if _, ok := fields[key]; !ok {
				t.Errorf("expected field %q in %s", key, raw)
			}
		}
		for _, key := range []string{"snapshots", "meta"} {
			if _, ok := fields[key]; ok {
				t.Errorf("unexpected field %q in %s", key, raw)
			}
		}
	})

	t.Run("comparison request carries both", func(t *testing.T) {
		raw, err := json.Marshal(OutboundRequest{
			Message:   "compare",
			Snapshot:  snap,
			Snapshots: &ComparisonSnapshots{Left: snap, Right: snap},
		})
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var decoded struct {
			Snapshots map[string]json.RawMessage `json:"snapshots"`
			Meta      map[string]string          `json:"meta"`
		}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if _, ok := decoded.Snapshots["left"]; !ok {
			t.Error("missing snapshots.left")
		}
		if _, ok := decoded.Snapshots["right"]; !ok {
			t.Error("missing snapshots.right")
		}
		if decoded.Meta == nil {
			t.Error("expected meta object")
		}
		if !strings.Contains(string(raw), `"week_label":"2025-W28"`) {
			t.Errorf("missing default snapshot in %s", raw)
		}
	})
}

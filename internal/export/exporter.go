package export

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/fdg312/run-coach/internal/blob"
	"github.com/google/uuid"
)

const defaultPresignTTL = 900

// Result describes a stored export. URL is empty when the store cannot presign.
type Result struct {
	Key       string
	Format    Format
	SizeBytes int64
	URL       string
}

// Exporter renders transcripts and puts them into a blob store.
type Exporter struct {
	store      blob.Store
	presignTTL int
	now        func() time.Time
}

func NewExporter(store blob.Store) *Exporter {
	return &Exporter{
		store:      store,
		presignTTL: defaultPresignTTL,
		now:        time.Now,
	}
}

func (e *Exporter) WithPresignTTL(seconds int) *Exporter {
	if seconds > 0 {
		e.presignTTL = seconds
	}
	return e
}

func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// Export stores the transcript under exports/<owner>/.
func (e *Exporter) Export(ctx context.Context, owner string, t Transcript, f Format) (*Result, error) {
	data, err := Render(t, f)
	if err != nil {
		return nil, err
	}

	key := KeyFor(owner, e.now(), f)
	size, err := e.store.PutObject(ctx, key, data, f.ContentType())
	if err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}

	url, err := e.store.PresignGet(ctx, key, e.presignTTL)
	if err != nil && !errors.Is(err, blob.ErrPresignUnsupported) {
		return nil, fmt.Errorf("failed to presign export: %w", err)
	}

	return &Result{Key: key, Format: f, SizeBytes: size, URL: url}, nil
}

// Open returns the stored bytes if key belongs to owner.
func (e *Exporter) Open(ctx context.Context, owner, key string) ([]byte, Format, error) {
	if !OwnsKey(owner, key) {
		return nil, "", blob.ErrNotFound
	}
	f, err := ParseFormat(strings.TrimPrefix(path.Ext(key), "."))
	if err != nil {
		return nil, "", blob.ErrNotFound
	}
	data, err := e.store.GetObject(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return data, f, nil
}

func KeyFor(owner string, at time.Time, f Format) string {
	return fmt.Sprintf("exports/%s/%s-%s.%s", ownerSegment(owner), at.UTC().Format("20060102-150405"), uuid.NewString()[:8], f)
}

func OwnsKey(owner, key string) bool {
	prefix := "exports/" + ownerSegment(owner) + "/"
	return strings.HasPrefix(key, prefix) && !strings.Contains(key, "..")
}

// ownerSegment escapes every byte outside [A-Za-z0-9.-] as _xx, so distinct owners never share a prefix.
func ownerSegment(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "_"
	}
	var b strings.Builder
	for i := 0; i < len(owner); i++ {
		c := owner[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}

package coach

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/run-coach/internal/snapshot"
)

const (
	TypeRequestSnapshot      = "REQUEST_SNAPSHOT"
	TypeRequestSnapshotBatch = "REQUEST_SNAPSHOT_BATCH"
)

var (
	ErrUnrecognizedResponse = errors.New("unrecognized coach response")
	ErrBadPeriod            = errors.New("bad period in coach response")
)

// ComparisonSnapshots carries the two ranges requested for a comparison.
type ComparisonSnapshots struct {
	Left  snapshot.Snapshot `json:"left"`
	Right snapshot.Snapshot `json:"right"`
}

// OutboundRequest is the body posted to the coaching service.
// Snapshots and Meta are emitted together or not at all.
type OutboundRequest struct {
	Message   string
	Snapshot  snapshot.Snapshot
	Snapshots *ComparisonSnapshots
	Meta      map[string]string
}

type plainRequest struct {
	Message  string            `json:"message"`
	Snapshot snapshot.Snapshot `json:"snapshot"`
}

type comparisonRequest struct {
	Message   string               `json:"message"`
	Snapshot  snapshot.Snapshot    `json:"snapshot"`
	Snapshots *ComparisonSnapshots `json:"snapshots"`
	Meta      map[string]string    `json:"meta"`
}

func (r OutboundRequest) MarshalJSON() ([]byte, error) {
	if r.Snapshots == nil {
		return json.Marshal(plainRequest{Message: r.Message, Snapshot: r.Snapshot})
	}
	meta := r.Meta
	if meta == nil {
		meta = map[string]string{}
	}
	return json.Marshal(comparisonRequest{
		Message:   r.Message,
		Snapshot:  r.Snapshot,
		Snapshots: r.Snapshots,
		Meta:      meta,
	})
}

type wireRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (w *wireRange) complete() bool {
	return w != nil && strings.TrimSpace(w.Start) != "" && strings.TrimSpace(w.End) != ""
}

// wireResponse is the neutral decoding target; Classify picks the variant.
type wireResponse struct {
	Reply     *string           `json:"reply"`
	Type      string            `json:"type"`
	Period    *wireRange        `json:"period"`
	Snapshots *wireRangePair    `json:"snapshots"`
	Meta      map[string]string `json:"meta"`
}

type wireRangePair struct {
	Left  *wireRange `json:"left"`
	Right *wireRange `json:"right"`
}

type Kind int

const (
	KindMalformed Kind = iota
	KindDirect
	KindSingleRange
	KindDualRange
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindSingleRange:
		return "single_range"
	case KindDualRange:
		return "dual_range"
	default:
		return "malformed"
	}
}

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// InboundResponse is a classified coach response. Only the fields of its Kind are set.
type InboundResponse struct {
	Kind  Kind
	Reply string
	Range DateRange
	Left  DateRange
	Right DateRange
	Meta  map[string]string
	Err   error
}

// Decode parses a response body and classifies it.
func Decode(body []byte, loc *time.Location) (InboundResponse, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return InboundResponse{}, err
	}
	return classify(wire, loc), nil
}

// classify applies reply > dual range > single range > malformed.
func classify(wire wireResponse, loc *time.Location) InboundResponse {
	if wire.Reply != nil && strings.TrimSpace(*wire.Reply) != "" {
		return InboundResponse{Kind: KindDirect, Reply: *wire.Reply}
	}

	if wire.Snapshots != nil && wire.Snapshots.Left.complete() && wire.Snapshots.Right.complete() {
		left, err := parseRange(wire.Snapshots.Left, loc)
		if err != nil {
			return malformed(fmt.Errorf("%w: left: %v", ErrBadPeriod, err))
		}
		right, err := parseRange(wire.Snapshots.Right, loc)
		if err != nil {
			return malformed(fmt.Errorf("%w: right: %v", ErrBadPeriod, err))
		}
		meta := wire.Meta
		if meta == nil {
			meta = map[string]string{}
		}
		return InboundResponse{Kind: KindDualRange, Left: left, Right: right, Meta: meta}
	}

	if wire.Period.complete() {
		rng, err := parseRange(wire.Period, loc)
		if err != nil {
			return malformed(fmt.Errorf("%w: %v", ErrBadPeriod, err))
		}
		return InboundResponse{Kind: KindSingleRange, Range: rng, Meta: wire.Meta}
	}

	if wire.Type != "" {
		return malformed(fmt.Errorf("%w: type %s without usable range", ErrUnrecognizedResponse, wire.Type))
	}
	return malformed(ErrUnrecognizedResponse)
}

func malformed(err error) InboundResponse {
	return InboundResponse{Kind: KindMalformed, Err: err}
}

func parseRange(w *wireRange, loc *time.Location) (DateRange, error) {
	start, err := snapshot.ParseDate(strings.TrimSpace(w.Start), loc)
	if err != nil {
		return DateRange{}, err
	}
	end, err := snapshot.ParseDate(strings.TrimSpace(w.End), loc)
	if err != nil {
		return DateRange{}, err
	}
	if !end.After(start) {
		return DateRange{}, fmt.Errorf("end %s is not after start %s", w.End, w.Start)
	}
	return DateRange{Start: start, End: end}, nil
}

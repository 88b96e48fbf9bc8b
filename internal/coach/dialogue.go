package coach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/run-coach/internal/snapshot"
	"golang.org/x/sync/errgroup"
)

// Fixed replies appended when a turn cannot be resolved normally.
const (
	ReplyNetworkError        = "Le coach ne répond pas actuellement"
	ReplyServerError         = "Erreur serveur"
	ReplyDecodeError         = "Réponse illisible du serveur"
	ReplyInvalidResponse     = "Réponse invalide du serveur"
	ReplyPeriodError         = "Erreur période"
	ReplyMissingReply        = "Erreur dans la réponse du coach."
	ReplySnapshotUnavailable = "Données d'activité indisponibles"
	ReplyRequestFailed       = "Impossible d'envoyer la demande au coach"
)

var ErrEmptyInput = errors.New("empty input")

// HealthDataProvider materializes activity snapshots.
type HealthDataProvider interface {
	MakeSnapshot(ctx context.Context, start, end time.Time) (snapshot.Snapshot, error)
	MakeDefaultSnapshot(ctx context.Context) (snapshot.Snapshot, error)
}

type Logger interface {
	Printf(format string, v ...any)
}

// Dialogue turns user submissions into exactly one coach reply each.
type Dialogue struct {
	conv   *Conversation
	sender Sender
	health HealthDataProvider
	logger Logger
	wg     sync.WaitGroup
}

func NewDialogue(conv *Conversation, sender Sender, health HealthDataProvider) *Dialogue {
	if conv == nil {
		conv = NewConversation()
	}
	return &Dialogue{
		conv:   conv,
		sender: sender,
		health: health,
	}
}

func (d *Dialogue) WithLogger(logger Logger) *Dialogue {
	d.logger = logger
	return d
}

func (d *Dialogue) Conversation() *Conversation {
	return d.conv
}

// Submit appends the user turn before returning and resolves the reply in
// the background. The channel yields the reply turn once, then closes.
// Blank text is ignored and reports false.
func (d *Dialogue) Submit(ctx context.Context, text string) (<-chan ChatTurn, bool) {
	message := strings.TrimSpace(text)
	if message == "" {
		return nil, false
	}

	d.conv.Append(message, true)

	done := make(chan ChatTurn, 1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		reply := d.resolve(ctx, message)
		done <- d.conv.Append(reply, false)
		close(done)
	}()
	return done, true
}

// SubmitInput submits and clears the pending input buffer.
func (d *Dialogue) SubmitInput(ctx context.Context) (<-chan ChatTurn, bool) {
	return d.Submit(ctx, d.conv.TakeInput())
}

// Ask submits text and waits for its reply.
func (d *Dialogue) Ask(ctx context.Context, text string) (ChatTurn, error) {
	done, ok := d.Submit(ctx, text)
	if !ok {
		return ChatTurn{}, ErrEmptyInput
	}
	return <-done, nil
}

// Wait blocks until every submitted turn is resolved.
func (d *Dialogue) Wait() {
	d.wg.Wait()
}

func (d *Dialogue) resolve(ctx context.Context, message string) string {
	def, err := d.health.MakeDefaultSnapshot(ctx)
	if err != nil {
		d.logf("WARN coach: default snapshot failed: %v", err)
		return ReplySnapshotUnavailable
	}

	resp, err := d.sender.Send(ctx, OutboundRequest{Message: message, Snapshot: def})
	if err != nil {
		d.logf("WARN coach: send failed: %v", err)
		return transportReply(err)
	}
	d.logf("INFO coach: response kind=%s", resp.Kind)

	switch resp.Kind {
	case KindDirect:
		return resp.Reply

	case KindSingleRange:
		snap, err := d.health.MakeSnapshot(ctx, resp.Range.Start, resp.Range.End)
		if err != nil {
			d.logf("WARN coach: snapshot %s..%s failed: %v", resp.Range.Start.Format(snapshot.DateLayout), resp.Range.End.Format(snapshot.DateLayout), err)
			return ReplySnapshotUnavailable
		}
		return d.followUp(ctx, OutboundRequest{Message: message, Snapshot: snap})

	case KindDualRange:
		left, right, err := d.fetchPair(ctx, resp.Left, resp.Right)
		if err != nil {
			d.logf("WARN coach: comparison snapshots failed: %v", err)
			return ReplySnapshotUnavailable
		}
		return d.followUp(ctx, OutboundRequest{
			Message:   message,
			Snapshot:  def,
			Snapshots: &ComparisonSnapshots{Left: left, Right: right},
			Meta:      resp.Meta,
		})

	default:
		d.logf("WARN coach: malformed response: %v", resp.Err)
		if errors.Is(resp.Err, ErrBadPeriod) {
			return ReplyPeriodError
		}
		return ReplyInvalidResponse
	}
}

// followUp sends the enriched request. Whatever comes back finalizes the turn.
func (d *Dialogue) followUp(ctx context.Context, req OutboundRequest) string {
	resp, err := d.sender.Send(ctx, req)
	if err != nil {
		d.logf("WARN coach: follow-up send failed: %v", err)
		return transportReply(err)
	}
	if resp.Kind != KindDirect {
		d.logf("WARN coach: follow-up response kind=%s", resp.Kind)
		return ReplyMissingReply
	}
	return resp.Reply
}

func (d *Dialogue) fetchPair(ctx context.Context, leftRange, rightRange DateRange) (snapshot.Snapshot, snapshot.Snapshot, error) {
	var left, right snapshot.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		left, err = d.health.MakeSnapshot(gctx, leftRange.Start, leftRange.End)
		return err
	})
	g.Go(func() error {
		var err error
		right, err = d.health.MakeSnapshot(gctx, rightRange.Start, rightRange.End)
		return err
	})
	if err := g.Wait(); err != nil {
		return snapshot.Snapshot{}, snapshot.Snapshot{}, err
	}
	return left, right, nil
}

func transportReply(err error) string {
	switch {
	case errors.Is(err, ErrNetwork):
		return ReplyNetworkError
	case errors.Is(err, ErrServer):
		return ReplyServerError
	case errors.Is(err, ErrDecode):
		return ReplyDecodeError
	default:
		return ReplyRequestFailed
	}
}

func (d *Dialogue) logf(format string, v ...any) {
	if d.logger == nil {
		return
	}
	d.logger.Printf(format, v...)
}

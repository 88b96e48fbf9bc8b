package coach

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChatTurn is one immutable transcript entry.
type ChatTurn struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	IsFromUser bool      `json:"is_from_user"`
	CreatedAt  time.Time `json:"created_at"`
}

// Conversation holds the transcript and the pending input buffer.
// All appends go through Append, which serializes writers.
type Conversation struct {
	mu      sync.Mutex
	turns   []ChatTurn
	input   string
	subs    map[int]chan ChatTurn
	nextSub int
	now     func() time.Time
}

func NewConversation() *Conversation {
	return &Conversation{
		subs: make(map[int]chan ChatTurn),
		now:  time.Now,
	}
}

func (c *Conversation) Append(text string, fromUser bool) ChatTurn {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn := ChatTurn{
		ID:         uuid.New(),
		Text:       text,
		IsFromUser: fromUser,
		CreatedAt:  c.now().UTC(),
	}
	c.turns = append(c.turns, turn)

	// Subscribers that fall behind miss live turns; Turns still has them.
	for _, ch := range c.subs {
		select {
		case ch <- turn:
		default:
		}
	}
	return turn
}

// Turns returns a copy of the transcript in append order.
func (c *Conversation) Turns() []ChatTurn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ChatTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Subscribe delivers every turn appended after the call. The returned
// function stops delivery and closes the channel.
func (c *Conversation) Subscribe(buffer int) (<-chan ChatTurn, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan ChatTurn, buffer)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Conversation) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

func (c *Conversation) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// TakeInput returns the pending input and clears the buffer.
func (c *Conversation) TakeInput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	text := c.input
	c.input = ""
	return text
}

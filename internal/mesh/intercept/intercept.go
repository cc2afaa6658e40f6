// Package intercept injects delivery delays into message handling so tests
// and operators can provoke reordering.
package intercept

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/chatmesh-go/internal/mesh/content"
	"github.com/yndnr/chatmesh-go/internal/mesh/router"
)

// DefaultDelay is the delay applied by Delayed when none is configured.
const DefaultDelay = 50 * time.Millisecond

// Immediate runs handlers inline.
type Immediate struct{}

// Schedule implements router.Scheduler.
func (Immediate) Schedule(fn func()) { fn() }

// Delayed runs each handler on its own goroutine after a fixed delay.
// Scheduled work is never cancelled.
type Delayed struct {
	d  time.Duration
	wg sync.WaitGroup
}

// NewDelayed returns a Delayed scheduler. A non-positive d uses DefaultDelay.
func NewDelayed(d time.Duration) *Delayed {
	if d <= 0 {
		d = DefaultDelay
	}
	return &Delayed{d: d}
}

// Schedule implements router.Scheduler.
func (s *Delayed) Schedule(fn func()) {
	s.wg.Add(1)
	time.AfterFunc(s.d, func() {
		defer s.wg.Done()
		fn()
	})
}

// Wait blocks until every scheduled handler has run.
func (s *Delayed) Wait() {
	s.wg.Wait()
}

// Rule selects messages to delay. self is the identity of the receiving node.
type Rule func(self int32, id router.ActionID, c content.Content) bool

// SelfInitiatedTokens matches election tokens still carried by their
// initiator.
func SelfInitiatedTokens() Rule {
	return func(_ int32, _ router.ActionID, c content.Content) bool {
		tok, ok := c.(*content.ElectionToken)
		return ok && tok.Initiator == tok.Sender
	}
}

// ChatFrom matches chat messages from sender received at node at.
func ChatFrom(sender, at int32) Rule {
	return func(self int32, _ router.ActionID, c content.Content) bool {
		msg, ok := c.(*content.Chat)
		return ok && self == at && msg.Sender == sender
	}
}

// ParseRule parses a rule spec:
//
//	self-initiated-tokens
//	chat:<sender>@<receiver>
func ParseRule(spec string) (Rule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "self-initiated-tokens" {
		return SelfInitiatedTokens(), nil
	}
	if rest, ok := strings.CutPrefix(spec, "chat:"); ok {
		from, at, ok := strings.Cut(rest, "@")
		if !ok {
			return nil, fmt.Errorf("intercept: rule %q: missing @receiver", spec)
		}
		sender, err := strconv.ParseInt(from, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("intercept: rule %q: sender: %w", spec, err)
		}
		receiver, err := strconv.ParseInt(at, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("intercept: rule %q: receiver: %w", spec, err)
		}
		return ChatFrom(int32(sender), int32(receiver)), nil
	}
	return nil, fmt.Errorf("intercept: unknown rule %q", spec)
}

// Interceptor picks Delayed for messages matching any rule and Immediate
// otherwise. A nil or disabled Interceptor never delays.
type Interceptor struct {
	self    atomic.Int32
	enabled atomic.Bool
	rules   []Rule
	delayed *Delayed
}

// New returns an enabled interceptor for node self.
func New(self int32, delay time.Duration, rules ...Rule) *Interceptor {
	i := &Interceptor{rules: rules, delayed: NewDelayed(delay)}
	i.self.Store(self)
	i.enabled.Store(true)
	return i
}

// SetSelf updates the receiving node identity, for clients that learn it
// after connecting.
func (i *Interceptor) SetSelf(self int32) {
	if i != nil {
		i.self.Store(self)
	}
}

// SetEnabled toggles interception.
func (i *Interceptor) SetEnabled(on bool) {
	if i != nil {
		i.enabled.Store(on)
	}
}

// Scheduler returns the scheduler for one message. Its signature matches
// router.SchedulerFunc.
func (i *Interceptor) Scheduler(id router.ActionID, c content.Content) router.Scheduler {
	if i == nil || !i.enabled.Load() {
		return Immediate{}
	}
	self := i.self.Load()
	for _, rule := range i.rules {
		if rule(self, id, c) {
			return i.delayed
		}
	}
	return Immediate{}
}

// Wait blocks until every delayed handler has run.
func (i *Interceptor) Wait() {
	if i != nil {
		i.delayed.Wait()
	}
}

// Package monitor watches one session marker file and emits an event each
// time its parsed content changes.
//
// A Poller is either idle (nothing parsed yet) or watching (holding the last
// record it emitted). Each tick re-parses the target; a parse failure leaves
// the state untouched, a record equal to the held one is ignored, and any
// other record becomes the held one and is emitted.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Zuo-Peng/session-analyzer/internal/logging"
	"github.com/Zuo-Peng/session-analyzer/internal/parse"
)

const DefaultInterval = 5 * time.Second

// ErrTargetNotFound is returned when the watched file is absent at startup.
var ErrTargetNotFound = errors.New("no active session file found")

// Event is emitted when the parsed record differs from the held one.
type Event struct {
	Record parse.SessionRecord
	At     time.Time
}

// Summary counts what a monitoring run observed.
type Summary struct {
	Ticks    int
	Updates  int
	Failures int
}

type Options struct {
	Interval time.Duration                             // 0 = DefaultInterval
	Parse    func(string) (parse.SessionRecord, error) // nil = parse.ParseSession
	Now      func() time.Time                          // nil = time.Now
}

type Poller struct {
	target   string
	interval time.Duration
	parse    func(string) (parse.SessionRecord, error)
	now      func() time.Time
	log      *logrus.Entry

	held    *parse.SessionRecord
	summary Summary
}

func NewPoller(target string, opts Options) *Poller {
	p := &Poller{
		target:   target,
		interval: opts.Interval,
		parse:    opts.Parse,
		now:      opts.Now,
		log:      logging.NewLogger("monitor"),
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.parse == nil {
		p.parse = parse.ParseSession
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

func (p *Poller) Target() string { return p.target }

func (p *Poller) Interval() time.Duration { return p.interval }

// Watching reports whether a record is held.
func (p *Poller) Watching() bool { return p.held != nil }

func (p *Poller) Summary() Summary { return p.summary }

// Tick re-parses the target once and reports whether an update occurred.
func (p *Poller) Tick() (Event, bool) {
	p.summary.Ticks++

	rec, err := p.parse(p.target)
	if err != nil {
		p.summary.Failures++
		p.log.Debugf("tick: %v", err)
		return Event{}, false
	}
	if p.held != nil && p.held.Equal(rec) {
		return Event{}, false
	}

	p.held = &rec
	p.summary.Updates++
	return Event{Record: rec, At: p.now()}, true
}

func (p *Poller) step(emit func(Event)) {
	if ev, ok := p.Tick(); ok && emit != nil {
		emit(ev)
	}
}

// Check reports ErrTargetNotFound when the target does not exist.
func (p *Poller) Check() error {
	if _, err := os.Stat(p.target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrTargetNotFound, p.target)
		}
		return fmt.Errorf("stat %s: %w", p.target, err)
	}
	return nil
}

// Run ticks immediately and then once per interval until ctx is done.
// Cancellation is not an error; the returned Summary covers the whole run.
func (p *Poller) Run(ctx context.Context, emit func(Event)) (Summary, error) {
	if err := p.Check(); err != nil {
		return p.summary, err
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return p.summary, nil
		}
		p.step(emit)

		select {
		case <-ctx.Done():
			return p.summary, nil
		case <-ticker.C:
		}
	}
}

package monitor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchEmitsOnContentChangeOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statsig.session_id.1")
	writeMarker(t, path, "s1", 1000, 5000)

	p := NewPoller(path, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 16)
	done := make(chan Summary, 1)
	go func() {
		s, err := p.Watch(ctx, func(ev Event) { events <- ev })
		assert.NoError(t, err)
		done <- s
	}()

	next := func() Event {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for event")
		}
		return Event{}
	}

	first := next()
	assert.Equal(t, int64(5000), first.Record.LastUpdate.UnixMilli())

	// Unrelated files in the same directory are ignored.
	writeMarker(t, filepath.Join(dir, "other.json"), "other", 0, 1)

	// Rewriting identical content produces notifications but no event.
	writeMarker(t, path, "s1", 1000, 5000)
	writeMarker(t, path, "s1", 1000, 7000)

	second := next()
	assert.Equal(t, "s1", second.Record.ID)
	assert.Equal(t, 6*time.Second, second.Record.Duration)

	cancel()
	select {
	case s := <-done:
		assert.Equal(t, 2, s.Updates)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop on cancel")
	}
	assert.Empty(t, events)
}

func TestWatchMissingTarget(t *testing.T) {
	p := NewPoller(filepath.Join(t.TempDir(), "missing"), Options{})

	_, err := p.Watch(context.Background(), nil)
	require.ErrorIs(t, err, ErrTargetNotFound)
}

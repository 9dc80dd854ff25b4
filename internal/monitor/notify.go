package monitor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch is Run driven by filesystem notifications instead of a ticker.
// The parent directory is watched so that editors and tools replacing the
// file by rename are still seen. Every relevant notification is a tick, so
// bursts of writes that leave the record unchanged emit nothing.
func (p *Poller) Watch(ctx context.Context, emit func(Event)) (Summary, error) {
	if err := p.Check(); err != nil {
		return p.summary, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return p.summary, fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(p.target)
	if err := w.Add(dir); err != nil {
		return p.summary, fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(p.target)

	p.step(emit)

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return p.summary, nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			p.log.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				p.step(emit)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return p.summary, nil
			}
			p.log.Warnf("watcher error: %v", err)
		case <-ctx.Done():
			return p.summary, nil
		}
	}
}

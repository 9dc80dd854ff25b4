package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"
)

var (
	ErrMissingKey       = errors.New("missing required key")
	ErrEmptyID          = errors.New("empty sessionID")
	ErrNegativeDuration = errors.New("lastUpdate precedes startTime")
)

// SessionParseError reports a session file that could not be turned into a record.
type SessionParseError struct {
	Path  string
	Cause error
}

func (e *SessionParseError) Error() string {
	return fmt.Sprintf("parse session %s: %v", e.Path, e.Cause)
}

func (e *SessionParseError) Unwrap() error {
	return e.Cause
}

// ParseSession reads a session marker file. Every failure, including a
// missing file, is returned as *SessionParseError.
func ParseSession(path string) (SessionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionRecord{}, &SessionParseError{Path: path, Cause: err}
	}

	rec, err := decode(data)
	if err != nil {
		return SessionRecord{}, &SessionParseError{Path: path, Cause: err}
	}
	rec.Path = path
	return rec, nil
}

func decode(data []byte) (SessionRecord, error) {
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return SessionRecord{}, err
	}

	switch {
	case f.SessionID == nil:
		return SessionRecord{}, fmt.Errorf("%w: sessionID", ErrMissingKey)
	case f.StartTime == nil:
		return SessionRecord{}, fmt.Errorf("%w: startTime", ErrMissingKey)
	case f.LastUpdate == nil:
		return SessionRecord{}, fmt.Errorf("%w: lastUpdate", ErrMissingKey)
	case *f.SessionID == "":
		return SessionRecord{}, ErrEmptyID
	}

	start := FromEpochMillis(*f.StartTime)
	last := FromEpochMillis(*f.LastUpdate)
	if last.Before(start) {
		return SessionRecord{}, fmt.Errorf("%w: %s < %s", ErrNegativeDuration, last.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	return SessionRecord{
		ID:         *f.SessionID,
		Start:      start,
		LastUpdate: last,
		Duration:   last.Sub(start),
	}, nil
}

// FromEpochMillis converts a JSON epoch-milliseconds number to local time.
func FromEpochMillis(ms float64) time.Time {
	whole := math.Floor(ms)
	frac := time.Duration(math.Round((ms - whole) * float64(time.Millisecond)))
	return time.UnixMilli(int64(whole)).Add(frac).Local()
}

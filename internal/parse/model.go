package parse

import "time"

// SessionRecord is one parsed session marker file.
type SessionRecord struct {
	ID         string
	Start      time.Time
	LastUpdate time.Time
	Duration   time.Duration
	Path       string // provenance only, ignored by Equal
}

// Equal reports whether two records describe the same session state.
func (r SessionRecord) Equal(o SessionRecord) bool {
	return r.ID == o.ID && r.Start.Equal(o.Start) && r.LastUpdate.Equal(o.LastUpdate)
}

// sessionFile is the on-disk shape. Pointers distinguish missing keys from zero values.
type sessionFile struct {
	SessionID  *string  `json:"sessionID"`
	StartTime  *float64 `json:"startTime"`
	LastUpdate *float64 `json:"lastUpdate"`
}

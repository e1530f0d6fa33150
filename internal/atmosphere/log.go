package atmosphere

import (
	"sync"
	"time"

	"github.com/skywatchapp/skywatch/pkg/logger"
)

const (
	snapshotKey     = "atmosphereHistory"
	snapshotVersion = 1

	// DefaultRetention is the history horizon used for cross-referencing.
	DefaultRetention = 30 * 24 * time.Hour

	// maxHourlySample bounds the forecast context retained per entry.
	maxHourlySample = 6
)

// Snapshots is the persistence hook; nil disables persistence.
type Snapshots interface {
	Save(key string, version int, value any) error
	Load(key string, version int, out any) error
	Delete(key string) error
}

type logBlob struct {
	Entries []Snapshot `json:"entries"`
}

// HistoryLog is a bounded, time-ordered log of atmosphere snapshots.
// Insertion order is chronological: every append is stamped "now".
type HistoryLog struct {
	mu sync.RWMutex

	entries   []Snapshot
	retention time.Duration
	snaps     Snapshots
	log       *logger.Logger
}

// NewHistoryLog creates a HistoryLog, restoring any usable snapshot.
// A retention of 0 means DefaultRetention.
func NewHistoryLog(retention time.Duration, snaps Snapshots, log *logger.Logger) *HistoryLog {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if log == nil {
		log = logger.NewNop()
	}
	l := &HistoryLog{
		retention: retention,
		snaps:     snaps,
		log:       log,
	}
	if snaps != nil {
		var blob logBlob
		if err := snaps.Load(snapshotKey, snapshotVersion, &blob); err != nil {
			log.Warn("no usable atmosphere history snapshot, starting fresh", logger.Error(err))
		} else {
			l.entries = blob.Entries
		}
	}
	return l
}

// Append stamps the snapshot with the current time, adds it, and trims the
// log to the retention horizon. Snapshots without current-conditions data
// are silently ignored.
func (l *HistoryLog) Append(snap Snapshot) {
	if snap.Current == nil {
		return
	}

	snap.Timestamp = time.Now()
	if len(snap.HourlyForecast) > maxHourlySample {
		snap.HourlyForecast = snap.HourlyForecast[:maxHourlySample]
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := snap.Timestamp.Add(-l.retention)
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	l.entries = append(kept, snap)

	if l.snaps != nil {
		if err := l.snaps.Save(snapshotKey, snapshotVersion, logBlob{Entries: l.entries}); err != nil {
			l.log.Warn("failed to persist atmosphere history", logger.Error(err))
		}
	}
}

// Entries returns the retained log in chronological order.
func (l *HistoryLog) Entries() []Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Snapshot, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *HistoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

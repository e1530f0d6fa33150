package patterns

import (
	"sort"
	"sync"
	"time"

	"github.com/skywatchapp/skywatch/pkg/logger"
)

const (
	snapshotKey     = "patterns"
	snapshotVersion = 1

	// DefaultHighConfidence is the threshold for the high-confidence view.
	DefaultHighConfidence = 0.85
)

// Snapshots is the persistence hook; nil disables persistence.
type Snapshots interface {
	Save(key string, version int, value any) error
	Load(key string, version int, out any) error
	Delete(key string) error
}

type repoBlob struct {
	Patterns      []Pattern  `json:"patterns"`
	LastDetection *time.Time `json:"lastDetection,omitempty"`
}

// Repository keeps the persisted, deduplicated set of detected patterns,
// keyed by pattern id.
type Repository struct {
	mu sync.RWMutex

	byID          map[string]Pattern
	lastDetection *time.Time

	snaps Snapshots
	log   *logger.Logger
}

// NewRepository creates a Repository, restoring any usable snapshot.
func NewRepository(snaps Snapshots, log *logger.Logger) *Repository {
	if log == nil {
		log = logger.NewNop()
	}
	r := &Repository{
		byID:  make(map[string]Pattern),
		snaps: snaps,
		log:   log,
	}
	if snaps != nil {
		var blob repoBlob
		if err := snaps.Load(snapshotKey, snapshotVersion, &blob); err != nil {
			log.Warn("no usable pattern snapshot, starting fresh", logger.Error(err))
		} else {
			for _, p := range blob.Patterns {
				r.byID[p.ID] = p
			}
			r.lastDetection = blob.LastDetection
		}
	}
	return r
}

// MergeDetected folds freshly detected patterns into the stored set. A
// pattern replaces the stored one for its id only when its confidence is
// strictly greater; unknown ids are inserted. The detection timestamp is
// recorded on every call, even when nothing changed.
func (r *Repository) MergeDetected(detected []Pattern) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range detected {
		existing, ok := r.byID[p.ID]
		if !ok || p.Confidence > existing.Confidence {
			r.byID[p.ID] = p
		}
	}

	now := time.Now()
	r.lastDetection = &now
	r.persistLocked()
}

// Dismiss removes the pattern with the given id. Unknown ids are a no-op.
func (r *Repository) Dismiss(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	r.persistLocked()
}

// Clear empties the stored set and resets the detection timestamp.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[string]Pattern)
	r.lastDetection = nil
	if r.snaps != nil {
		if err := r.snaps.Delete(snapshotKey); err != nil {
			r.log.Warn("failed to delete pattern snapshot", logger.Error(err))
		}
	}
}

// Patterns returns the stored set sorted descending by confidence, ties
// broken by id for a reproducible order.
func (r *Repository) Patterns() []Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

// ByType returns the stored patterns of one type, ranked.
func (r *Repository) ByType(t Type) []Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Pattern
	for _, p := range r.sortedLocked() {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

// HighConfidence returns the stored patterns at or above the threshold,
// ranked. A non-positive threshold means DefaultHighConfidence.
func (r *Repository) HighConfidence(threshold float64) []Pattern {
	if threshold <= 0 {
		threshold = DefaultHighConfidence
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Pattern
	for _, p := range r.sortedLocked() {
		if p.Confidence >= threshold {
			out = append(out, p)
		}
	}
	return out
}

// LastDetection returns the timestamp of the most recent merge, or nil when
// no detection has run since the last clear.
func (r *Repository) LastDetection() *time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastDetection
}

func (r *Repository) sortedLocked() []Pattern {
	out := make([]Pattern, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Repository) persistLocked() {
	if r.snaps == nil {
		return
	}
	blob := repoBlob{Patterns: r.sortedLocked(), LastDetection: r.lastDetection}
	if err := r.snaps.Save(snapshotKey, snapshotVersion, blob); err != nil {
		r.log.Warn("failed to persist patterns", logger.Error(err))
	}
}

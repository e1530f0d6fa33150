package patterns

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSnapshots is an in-memory stand-in for the sqlite snapshot store.
type fakeSnapshots struct {
	blobs   map[string][]byte
	deleted []string
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{blobs: make(map[string][]byte)}
}

func (f *fakeSnapshots) Save(key string, version int, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.blobs[key] = data
	return nil
}

func (f *fakeSnapshots) Load(key string, version int, out any) error {
	data, ok := f.blobs[key]
	if !ok {
		return fmt.Errorf("snapshot %q not found", key)
	}
	return json.Unmarshal(data, out)
}

func (f *fakeSnapshots) Delete(key string) error {
	delete(f.blobs, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func testPattern(id string, typ Type, confidence float64) Pattern {
	return Pattern{
		ID:         id,
		Type:       typ,
		Title:      "Test " + id,
		Confidence: confidence,
		DetectedAt: time.Now(),
	}
}

func TestMergeDetectedKeepsHigherConfidence(t *testing.T) {
	repo := NewRepository(nil, nil)

	repo.MergeDetected([]Pattern{testPattern("x", TypeTrend, 0.6)})
	repo.MergeDetected([]Pattern{testPattern("x", TypeTrend, 0.4)})

	stored := repo.Patterns()
	require.Len(t, stored, 1)
	assert.Equal(t, 0.6, stored[0].Confidence)

	repo.MergeDetected([]Pattern{testPattern("x", TypeTrend, 0.8)})
	stored = repo.Patterns()
	require.Len(t, stored, 1)
	assert.Equal(t, 0.8, stored[0].Confidence)
}

func TestMergeDetectedStampsLastDetection(t *testing.T) {
	repo := NewRepository(nil, nil)
	require.Nil(t, repo.LastDetection())

	repo.MergeDetected(nil)
	first := repo.LastDetection()
	require.NotNil(t, first)

	// A merge that changes nothing still moves the stamp.
	repo.MergeDetected([]Pattern{testPattern("x", TypeTrend, 0.6)})
	repo.MergeDetected([]Pattern{testPattern("x", TypeTrend, 0.1)})
	second := repo.LastDetection()
	require.NotNil(t, second)
	assert.False(t, second.Before(*first))
}

func TestDismiss(t *testing.T) {
	repo := NewRepository(nil, nil)
	repo.MergeDetected([]Pattern{
		testPattern("a", TypeTrend, 0.6),
		testPattern("b", TypeCycle, 0.7),
	})

	repo.Dismiss("a")
	stored := repo.Patterns()
	require.Len(t, stored, 1)
	assert.Equal(t, "b", stored[0].ID)

	repo.Dismiss("a") // already gone
	repo.Dismiss("never-existed")
	assert.Len(t, repo.Patterns(), 1)
}

func TestClear(t *testing.T) {
	snaps := newFakeSnapshots()
	repo := NewRepository(snaps, nil)
	repo.MergeDetected([]Pattern{testPattern("a", TypeTrend, 0.6)})

	repo.Clear()
	assert.Empty(t, repo.Patterns())
	assert.Nil(t, repo.LastDetection())
	assert.Contains(t, snaps.deleted, "patterns")
}

func TestPatternsRanking(t *testing.T) {
	repo := NewRepository(nil, nil)
	repo.MergeDetected([]Pattern{
		testPattern("b", TypeTrend, 0.7),
		testPattern("a", TypeCycle, 0.7),
		testPattern("c", TypeOptimal, 0.9),
	})

	stored := repo.Patterns()
	require.Len(t, stored, 3)
	assert.Equal(t, "c", stored[0].ID)
	assert.Equal(t, "a", stored[1].ID) // id tie-break among equal confidence
	assert.Equal(t, "b", stored[2].ID)
}

func TestByType(t *testing.T) {
	repo := NewRepository(nil, nil)
	repo.MergeDetected([]Pattern{
		testPattern("a", TypeTrend, 0.6),
		testPattern("b", TypeCycle, 0.7),
		testPattern("c", TypeTrend, 0.9),
	})

	trends := repo.ByType(TypeTrend)
	require.Len(t, trends, 2)
	assert.Equal(t, "c", trends[0].ID)
	assert.Equal(t, "a", trends[1].ID)
	assert.Empty(t, repo.ByType(TypeAnomaly))
}

func TestHighConfidenceDefaultThreshold(t *testing.T) {
	repo := NewRepository(nil, nil)
	repo.MergeDetected([]Pattern{
		testPattern("a", TypeTrend, 0.84),
		testPattern("b", TypeCycle, 0.85),
		testPattern("c", TypeOptimal, 0.95),
	})

	high := repo.HighConfidence(0)
	require.Len(t, high, 2)
	assert.Equal(t, "c", high[0].ID)
	assert.Equal(t, "b", high[1].ID)

	all := repo.HighConfidence(0.5)
	assert.Len(t, all, 3)
}

func TestRepositorySnapshotRoundTrip(t *testing.T) {
	snaps := newFakeSnapshots()

	repo := NewRepository(snaps, nil)
	repo.MergeDetected([]Pattern{
		testPattern("a", TypeTrend, 0.6),
		testPattern("b", TypeCycle, 0.9),
	})
	wantDetection := repo.LastDetection()
	require.NotNil(t, wantDetection)

	restored := NewRepository(snaps, nil)
	stored := restored.Patterns()
	require.Len(t, stored, 2)
	assert.Equal(t, "b", stored[0].ID)
	assert.Equal(t, "a", stored[1].ID)
	require.NotNil(t, restored.LastDetection())
	assert.True(t, restored.LastDetection().Equal(*wantDetection))
}

func TestRepositoryStartsFreshOnBadSnapshot(t *testing.T) {
	snaps := newFakeSnapshots()
	snaps.blobs["patterns"] = []byte("{not json")

	repo := NewRepository(snaps, nil)
	assert.Empty(t, repo.Patterns())
	assert.Nil(t, repo.LastDetection())
}

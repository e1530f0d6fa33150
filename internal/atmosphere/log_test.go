package atmosphere

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshots struct {
	blobs map[string][]byte
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
	return nil
}

func snapshotWithScore(score int) Snapshot {
	vis := 15000.0
	return Snapshot{
		Current: &CurrentConditions{
			CloudCover:       20,
			Visibility:       &vis,
			Humidity:         35,
			ObservationScore: score,
		},
	}
}

func TestAppendIgnoresEmptySnapshot(t *testing.T) {
	log := NewHistoryLog(0, nil, nil)
	log.Append(Snapshot{})
	assert.Zero(t, log.Len())
}

func TestAppendStampsAndOrders(t *testing.T) {
	log := NewHistoryLog(0, nil, nil)

	before := time.Now()
	log.Append(snapshotWithScore(80))
	log.Append(snapshotWithScore(60))
	after := time.Now()

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Timestamp.Before(before))
	assert.False(t, entries[1].Timestamp.After(after))
	assert.False(t, entries[1].Timestamp.Before(entries[0].Timestamp))
	assert.Equal(t, 80, entries[0].Current.ObservationScore)
	assert.Equal(t, 60, entries[1].Current.ObservationScore)
}

func TestAppendCapsHourlyForecast(t *testing.T) {
	log := NewHistoryLog(0, nil, nil)

	snap := snapshotWithScore(80)
	for i := 0; i < 12; i++ {
		snap.HourlyForecast = append(snap.HourlyForecast, HourlyEntry{Score: i})
	}
	log.Append(snap)

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].HourlyForecast, 6)
	assert.Equal(t, 0, entries[0].HourlyForecast[0].Score)
	assert.Equal(t, 5, entries[0].HourlyForecast[5].Score)
}

func TestAppendTrimsExpiredEntries(t *testing.T) {
	snaps := newFakeSnapshots()

	// Seed a snapshot containing one expired and one live entry, then restore.
	old := snapshotWithScore(50)
	old.Timestamp = time.Now().Add(-40 * 24 * time.Hour)
	live := snapshotWithScore(70)
	live.Timestamp = time.Now().Add(-time.Hour)
	require.NoError(t, snaps.Save("atmosphereHistory", 1, logBlob{Entries: []Snapshot{old, live}}))

	log := NewHistoryLog(30*24*time.Hour, snaps, nil)
	require.Equal(t, 2, log.Len())

	log.Append(snapshotWithScore(90))

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 70, entries[0].Current.ObservationScore)
	assert.Equal(t, 90, entries[1].Current.ObservationScore)
}

func TestHistoryLogSnapshotRoundTrip(t *testing.T) {
	snaps := newFakeSnapshots()

	log := NewHistoryLog(0, snaps, nil)
	log.Append(snapshotWithScore(80))
	log.Append(snapshotWithScore(65))

	restored := NewHistoryLog(0, snaps, nil)
	require.Equal(t, 2, restored.Len())
	entries := restored.Entries()
	assert.Equal(t, 80, entries[0].Current.ObservationScore)
	assert.Equal(t, 65, entries[1].Current.ObservationScore)
}

func TestEntriesReturnsCopy(t *testing.T) {
	log := NewHistoryLog(0, nil, nil)
	log.Append(snapshotWithScore(80))

	entries := log.Entries()
	entries[0].Current = nil
	require.NotNil(t, log.Entries()[0].Current)
}

package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatchapp/skywatch/internal/astro"
	"github.com/skywatchapp/skywatch/internal/atmosphere"
	"github.com/skywatchapp/skywatch/internal/history"
	"github.com/skywatchapp/skywatch/internal/patterns"
)

type fakeOracle struct{}

func (fakeOracle) SunTimes(t time.Time, lat, lng float64) astro.SolarTimes {
	sunrise := t.Add(-6 * time.Hour)
	sunset := t.Add(6 * time.Hour)
	return astro.SolarTimes{Sunrise: &sunrise, Sunset: &sunset}
}

func (fakeOracle) MoonTimes(t time.Time, lat, lng float64) astro.MoonTimes {
	return astro.MoonTimes{}
}

func (fakeOracle) MoonIllumination(t time.Time) astro.MoonIllumination {
	return astro.MoonIllumination{Fraction: 0.5, Phase: 0.5}
}

// scriptedProvider returns a fixed snapshot or error.
type scriptedProvider struct {
	mu   sync.Mutex
	snap atmosphere.Snapshot
	err  error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Fetch(ctx context.Context, loc astro.Location) (atmosphere.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap, p.err
}

func (p *scriptedProvider) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func goodSnapshot(score int) atmosphere.Snapshot {
	vis := 20000.0
	return atmosphere.Snapshot{
		Timestamp: time.Now(),
		Current: &atmosphere.CurrentConditions{
			CloudCover:       10,
			Visibility:       &vis,
			Humidity:         30,
			ObservationScore: score,
		},
	}
}

func newTestService(t *testing.T, provider atmosphere.Provider, staleAfter time.Duration) *Service {
	t.Helper()
	return New(Config{
		History:       history.NewStore(fakeOracle{}, nil, nil),
		AtmosphereLog: atmosphere.NewHistoryLog(0, nil, nil),
		Repository:    patterns.NewRepository(nil, nil),
		Provider:      provider,
		Location:      astro.Location{Name: "Test Ridge", Lat: 35.37, Lng: -119.02},
		StaleAfter:    staleAfter,
	})
}

func TestRecordTodayAndBackfill(t *testing.T) {
	svc := newTestService(t, &scriptedProvider{}, 0)

	rec := svc.RecordToday()
	assert.Equal(t, astro.DateKey(time.Now()), rec.Date)

	total := svc.Backfill(5)
	assert.Equal(t, 6, total)
}

func TestRefreshAtmosphereSuccess(t *testing.T) {
	provider := &scriptedProvider{snap: goodSnapshot(95)}
	svc := newTestService(t, provider, 0)

	require.True(t, svc.NeedsRefresh())
	require.NoError(t, svc.RefreshAtmosphere(context.Background()))

	state := svc.Atmosphere()
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, 95, state.Snapshot.Current.ObservationScore)
	assert.NoError(t, state.Err)
	assert.False(t, state.LastFetch.IsZero())
	assert.False(t, svc.NeedsRefresh())

	assert.Len(t, svc.AtmosphereHistory(), 1)
}

func TestRefreshAtmosphereFailureKeepsLastGood(t *testing.T) {
	provider := &scriptedProvider{snap: goodSnapshot(95)}
	svc := newTestService(t, provider, 0)
	require.NoError(t, svc.RefreshAtmosphere(context.Background()))

	fetchErr := errors.New("upstream down")
	provider.fail(fetchErr)
	err := svc.RefreshAtmosphere(context.Background())
	require.ErrorIs(t, err, fetchErr)

	state := svc.Atmosphere()
	require.NotNil(t, state.Snapshot, "failed refresh must keep the last-good view")
	assert.Equal(t, 95, state.Snapshot.Current.ObservationScore)
	assert.ErrorIs(t, state.Err, fetchErr)

	// A failed refresh appends nothing.
	assert.Len(t, svc.AtmosphereHistory(), 1)
}

func TestNeedsRefreshAfterStaleness(t *testing.T) {
	provider := &scriptedProvider{snap: goodSnapshot(95)}
	svc := newTestService(t, provider, 10*time.Millisecond)

	require.NoError(t, svc.RefreshAtmosphere(context.Background()))
	require.False(t, svc.NeedsRefresh())

	time.Sleep(25 * time.Millisecond)
	assert.True(t, svc.NeedsRefresh())
}

// blockingProvider parks each Fetch until the test releases it, so the test
// controls which in-flight refresh completes first.
type blockingProvider struct {
	mu      sync.Mutex
	pending []chan atmosphere.Snapshot
	started chan struct{}
}

func (p *blockingProvider) Name() string { return "blocking" }

func (p *blockingProvider) Fetch(ctx context.Context, loc astro.Location) (atmosphere.Snapshot, error) {
	ch := make(chan atmosphere.Snapshot)
	p.mu.Lock()
	p.pending = append(p.pending, ch)
	p.mu.Unlock()
	p.started <- struct{}{}
	return <-ch, nil
}

func (p *blockingProvider) release(i int, snap atmosphere.Snapshot) {
	p.mu.Lock()
	ch := p.pending[i]
	p.mu.Unlock()
	ch <- snap
}

func TestMostRecentlyStartedFetchWins(t *testing.T) {
	provider := &blockingProvider{started: make(chan struct{}, 2)}
	svc := newTestService(t, provider, 0)

	done := make(chan struct{}, 2)
	refresh := func() {
		_ = svc.RefreshAtmosphere(context.Background())
		done <- struct{}{}
	}

	go refresh() // fetch A
	<-provider.started
	go refresh() // fetch B, started after A
	<-provider.started

	// B lands first; the slower A completes afterwards and must be dropped.
	provider.release(1, goodSnapshot(80))
	<-done
	provider.release(0, goodSnapshot(20))
	<-done

	state := svc.Atmosphere()
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, 80, state.Snapshot.Current.ObservationScore)

	entries := svc.AtmosphereHistory()
	require.Len(t, entries, 1)
	assert.Equal(t, 80, entries[0].Current.ObservationScore)
}

func TestRunDetectionMergesIntoRepository(t *testing.T) {
	provider := &scriptedProvider{snap: goodSnapshot(95)}
	repo := patterns.NewRepository(nil, nil)
	atmoLog := atmosphere.NewHistoryLog(0, nil, nil)
	svc := New(Config{
		History:       history.NewStore(fakeOracle{}, nil, nil),
		AtmosphereLog: atmoLog,
		Repository:    repo,
		Provider:      provider,
	})

	for i := 0; i < 10; i++ {
		atmoLog.Append(goodSnapshot(90))
	}

	detected := svc.RunDetection()
	require.NotEmpty(t, detected)

	ids := make(map[string]bool)
	for _, p := range detected {
		ids[p.ID] = true
	}
	assert.True(t, ids["optimal-viewing"])
	assert.True(t, ids["good-visibility"])

	stored := repo.Patterns()
	assert.Len(t, stored, len(detected))
	require.NotNil(t, repo.LastDetection())
}

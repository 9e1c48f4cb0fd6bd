package application

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/domain"
)

var testLimits = Limits{
	MaxQueueSize:      20,
	MaxPerUser:        5,
	SkipVotesRequired: 5,
}

// mockTransport is a test double for ports.AudioTransport.
type mockTransport struct {
	mu sync.Mutex

	connectErr    error
	connectErrs   []error // consumed per call when set, overrides connectErr
	playErr       error
	playErrFor    map[string]error // keyed by source ref
	stopErr       error
	pauseErr      error
	resumeErr     error
	disconnectErr error

	connectCalls    int
	disconnectCalls int
	stopCalls       int
	pauseCalls      int
	resumeCalls     int
	played          []domain.AudioSource
}

func newMockTransport() *mockTransport {
	return &mockTransport{playErrFor: make(map[string]error)}
}

func (m *mockTransport) Connect(ctx context.Context, guildID, channelID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectCalls++
	if len(m.connectErrs) > 0 {
		err := m.connectErrs[0]
		m.connectErrs = m.connectErrs[1:]
		return err
	}
	return m.connectErr
}

func (m *mockTransport) Disconnect(ctx context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectCalls++
	return m.disconnectErr
}

func (m *mockTransport) Play(ctx context.Context, guildID snowflake.ID, source domain.AudioSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.playErrFor[source.Ref]; ok {
		return err
	}
	if m.playErr != nil {
		return m.playErr
	}
	m.played = append(m.played, source)
	return nil
}

func (m *mockTransport) Stop(ctx context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	return m.stopErr
}

func (m *mockTransport) Pause(ctx context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	return m.pauseErr
}

func (m *mockTransport) Resume(ctx context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeCalls++
	return m.resumeErr
}

func (m *mockTransport) playedRefs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := make([]string, len(m.played))
	for i, src := range m.played {
		refs[i] = src.Ref
	}
	return refs
}

// mockCatalog is a test double for ports.TrackCatalog.
type mockCatalog struct {
	mu         sync.Mutex
	tracks     map[domain.TrackID]*domain.Track
	playCounts map[domain.TrackID]int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		tracks:     make(map[domain.TrackID]*domain.Track),
		playCounts: make(map[domain.TrackID]int),
	}
}

func (m *mockCatalog) FetchTrackByID(ctx context.Context, id domain.TrackID) (*domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	track, ok := m.tracks[id]
	if !ok {
		return nil, errTrackMissing
	}
	return track, nil
}

func (m *mockCatalog) SearchTracks(ctx context.Context, query string) ([]*domain.Track, error) {
	return nil, nil
}

func (m *mockCatalog) ListTracks(ctx context.Context, category string) ([]*domain.Track, error) {
	return nil, nil
}

func (m *mockCatalog) IncrementPlayCount(ctx context.Context, id domain.TrackID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCounts[id]++
	return nil
}

func (m *mockCatalog) PlayCounts(ctx context.Context, id domain.TrackID) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(m.playCounts[id])
	return n, n, nil
}

func (m *mockCatalog) AddTrack(ctx context.Context, track *domain.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks[track.ID] = track
	return nil
}

func (m *mockCatalog) RemoveTrack(ctx context.Context, id domain.TrackID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tracks, id)
	return nil
}

func (m *mockCatalog) ResetMonthlyCounters(ctx context.Context) error {
	return nil
}

type trackMissingError struct{}

func (trackMissingError) Error() string { return "track not found" }

var errTrackMissing = trackMissingError{}

func testTrack(id string) *domain.Track {
	return &domain.Track{
		ID:       domain.TrackID(id),
		Title:    "Track " + id,
		Artist:   "Artist",
		Duration: 3 * time.Minute,
		Source:   domain.AudioSource{Kind: domain.SourceLocalFile, Ref: id + ".mp3"},
	}
}

func testEntry(id string, user snowflake.ID) *domain.QueueEntry {
	return domain.NewQueueEntry(testTrack(id), user, "listener", false)
}

// connectedCoordinator returns a coordinator in the idle connected state.
func connectedCoordinator(transport *mockTransport, catalog *mockCatalog) *Coordinator {
	c := NewCoordinator(100, transport, catalog, testLimits)
	if err := c.Connect(context.Background(), 200); err != nil {
		panic(err)
	}
	return c
}

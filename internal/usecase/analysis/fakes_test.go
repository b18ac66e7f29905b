package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

type memRecordings struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*entities.Recording
	raw  map[uuid.UUID][]byte
	role map[uuid.UUID][]byte
}

func newMemRecordings(recs ...*entities.Recording) *memRecordings {
	m := &memRecordings{
		rows: make(map[uuid.UUID]*entities.Recording),
		raw:  make(map[uuid.UUID][]byte),
		role: make(map[uuid.UUID][]byte),
	}
	for _, r := range recs {
		cp := *r
		m.rows[r.ID] = &cp
	}
	return m
}

func (m *memRecordings) get(id uuid.UUID) entities.Recording {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

func (m *memRecordings) Create(ctx context.Context, r *entities.Recording) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memRecordings) FindByID(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memRecordings) transition(r *entities.Recording, from ...entities.AnalysisStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rows[r.ID]
	if !ok {
		return entities.ErrInvalidTransition
	}
	for _, s := range from {
		if stored.AnalysisStatus == s {
			cp := *r
			m.rows[r.ID] = &cp
			return nil
		}
	}
	return entities.ErrInvalidTransition
}

func (m *memRecordings) MarkProcessing(ctx context.Context, r *entities.Recording) error {
	return m.transition(r, entities.AnalysisStatusPending, entities.AnalysisStatusProcessing)
}

func (m *memRecordings) MarkCompleted(ctx context.Context, r *entities.Recording) error {
	return m.transition(r, entities.AnalysisStatusProcessing)
}

func (m *memRecordings) MarkFailed(ctx context.Context, r *entities.Recording) error {
	return m.transition(r, entities.AnalysisStatusPending, entities.AnalysisStatusProcessing)
}

func (m *memRecordings) ResetToPending(ctx context.Context, r *entities.Recording) error {
	return m.transition(r, entities.AnalysisStatusProcessing)
}

func (m *memRecordings) SaveTranscriptionRaw(ctx context.Context, id uuid.UUID, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw[id] = raw
	return nil
}

func (m *memRecordings) SaveRoleRaw(ctx context.Context, id uuid.UUID, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.role[id] = raw
	return nil
}

func (m *memRecordings) FindByStatus(ctx context.Context, status entities.AnalysisStatus, limit int) ([]*entities.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Recording
	for _, r := range m.rows {
		if r.AnalysisStatus == status {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRecordings) FindStale(ctx context.Context, startedBefore time.Time, limit int) ([]*entities.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Recording
	for _, r := range m.rows {
		if r.AnalysisStatus == entities.AnalysisStatusProcessing && r.ProcessingStartedAt != nil && r.ProcessingStartedAt.Before(startedBefore) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRecordings) ListCompletedByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.Recording, error) {
	return nil, nil
}

type memUtterances struct {
	mu    sync.Mutex
	rows  map[uuid.UUID][]entities.Utterance
	saves int
}

func newMemUtterances() *memUtterances {
	return &memUtterances{rows: make(map[uuid.UUID][]entities.Utterance)}
}

func (m *memUtterances) ReplaceForRecording(ctx context.Context, recordingID uuid.UUID, utts []entities.Utterance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[recordingID] = append([]entities.Utterance(nil), utts...)
	return nil
}

func (m *memUtterances) UpdateCoding(ctx context.Context, utts []entities.Utterance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if len(utts) > 0 {
		m.rows[utts[0].RecordingID] = append([]entities.Utterance(nil), utts...)
	}
	return nil
}

func (m *memUtterances) ListByRecording(ctx context.Context, recordingID uuid.UUID) ([]entities.Utterance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.Utterance(nil), m.rows[recordingID]...), nil
}

type fakeAudio struct {
	fetchErr error
}

func (f *fakeAudio) Fetch(ctx context.Context, key string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return []byte("RIFF"), nil
}

func (f *fakeAudio) PresignedURL(ctx context.Context, key string) (string, error) {
	return "https://storage.local/" + key + "?sig=1", nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	user   []entities.UserNotification
	alerts []entities.OpsAlert
}

func (f *fakeNotifier) NotifyUser(ctx context.Context, n entities.UserNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = append(f.user, n)
	return nil
}

func (f *fakeNotifier) AlertOps(ctx context.Context, a entities.OpsAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, entities.ErrRecordingLocked
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		delete(f.held, key)
		f.mu.Unlock()
	}, nil
}

// scriptedRunner fails with the scripted errors in order, then succeeds
type scriptedRunner struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedRunner) Run(ctx context.Context, r *entities.Recording) (*entities.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &entities.AnalysisResult{OverallScore: 77}, nil
}

type fakePhases struct {
	calls int
	err   error
	panic bool
}

func (f *fakePhases) CheckPhase(ctx context.Context, userID, recordingID uuid.UUID) error {
	f.calls++
	if f.panic {
		panic("phase store unavailable")
	}
	return f.err
}

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

var errProvider = errors.New("provider unavailable: status code: 503")

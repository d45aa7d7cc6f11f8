package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
	"github.com/user/grant-aggregator/internal/source"
)

// memGrantRepo is an in-memory GrantRepository keyed by source_id.
type memGrantRepo struct {
	mu       sync.Mutex
	bySource map[string]*entity.Grant
	// errFor makes Upsert fail for specific source ids.
	errFor map[string]error
}

func newMemGrantRepo() *memGrantRepo {
	return &memGrantRepo{bySource: map[string]*entity.Grant{}, errFor: map[string]error{}}
}

func (r *memGrantRepo) Upsert(_ context.Context, g *entity.Grant) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errFor[g.SourceID]; err != nil {
		return false, err
	}
	now := time.Now()
	if existing, ok := r.bySource[g.SourceID]; ok {
		cp := *g
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
		cp.LastSyncedAt, cp.UpdatedAt = now, now
		r.bySource[g.SourceID] = &cp
		g.ID = cp.ID
		return false, nil
	}
	cp := *g
	cp.ID = uuid.New()
	cp.CreatedAt, cp.LastSyncedAt, cp.UpdatedAt = now, now, now
	r.bySource[g.SourceID] = &cp
	g.ID = cp.ID
	return true, nil
}

func (r *memGrantRepo) CloseExpired(_ context.Context, today time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, g := range r.bySource {
		if g.ApplicationDeadline != nil && g.ApplicationDeadline.Before(today) && g.Status != entity.StatusClosed {
			g.Status = entity.StatusClosed
			g.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (r *memGrantRepo) List(_ context.Context, f entity.GrantFilter) (*entity.GrantPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*entity.Grant
	counts := map[entity.Source]int{}
	for _, g := range r.bySource {
		counts[g.Source]++
		if f.Source != "" && g.Source != f.Source {
			continue
		}
		all = append(all, g)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SourceID < all[j].SourceID })
	return &entity.GrantPage{Grants: all, Total: len(all), Page: f.Page, Limit: f.Limit,
		TotalPages: entity.TotalPagesFor(len(all), f.Limit), SourceCounts: counts}, nil
}

func (r *memGrantRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.bySource {
		if g.ID == id {
			cp := *g
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memGrantRepo) get(sourceID string) *entity.Grant {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.bySource[sourceID]; ok {
		cp := *g
		return &cp
	}
	return nil
}

func (r *memGrantRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySource)
}

type memRunLogRepo struct {
	mu   sync.Mutex
	logs map[uuid.UUID]*entity.RunLog
}

func newMemRunLogRepo() *memRunLogRepo {
	return &memRunLogRepo{logs: map[uuid.UUID]*entity.RunLog{}}
}

func (r *memRunLogRepo) Create(_ context.Context, log *entity.RunLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.StartedAt = time.Now()
	log.Status = entity.RunRunning
	cp := *log
	r.logs[log.ID] = &cp
	return nil
}

func (r *memRunLogRepo) Complete(_ context.Context, log *entity.RunLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.logs[log.ID]
	if !ok || stored.Terminal() {
		return repository.ErrNotFound
	}
	now := time.Now()
	log.FinishedAt = &now
	cp := *log
	r.logs[log.ID] = &cp
	return nil
}

func (r *memRunLogRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.RunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.logs[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memRunLogRepo) ListRecent(_ context.Context, limit int) ([]*entity.RunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.RunLog, 0, len(r.logs))
	for _, l := range r.logs {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeSource returns fresh copies of its grants on every Extract.
type fakeSource struct {
	name     entity.Source
	grants   []entity.Grant
	fetchErr error
	onFetch  func(ctx context.Context) error
}

func (s *fakeSource) Name() entity.Source { return s.name }

func (s *fakeSource) Fetch(ctx context.Context) (*source.RawPayload, error) {
	if s.onFetch != nil {
		if err := s.onFetch(ctx); err != nil {
			return nil, err
		}
	}
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return &source.RawPayload{}, nil
}

func (s *fakeSource) Extract(_ context.Context, _ *source.RawPayload, _ time.Time) ([]*entity.Grant, error) {
	out := make([]*entity.Grant, len(s.grants))
	for i := range s.grants {
		g := s.grants[i]
		out[i] = &g
	}
	return out, nil
}

type memQueue struct {
	mu   sync.Mutex
	jobs []*entity.SyncJob
}

func (q *memQueue) Push(_ context.Context, job *entity.SyncJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Pop(_ context.Context) (*entity.SyncJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, repository.ErrQueueEmpty
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *memQueue) Size(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

type memMarkers struct {
	mu        sync.Mutex
	requested map[entity.Source]bool
	pending   map[uuid.UUID]bool
}

func newMemMarkers() *memMarkers {
	return &memMarkers{requested: map[entity.Source]bool{}, pending: map[uuid.UUID]bool{}}
}

func (m *memMarkers) MarkRequested(_ context.Context, s entity.Source, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requested[s] = true
	return nil
}

func (m *memMarkers) IsRequested(_ context.Context, s entity.Source) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requested[s], nil
}

func (m *memMarkers) ClearRequested(_ context.Context, s entity.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requested, s)
	return nil
}

func (m *memMarkers) MarkPending(_ context.Context, id uuid.UUID, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[id] = true
	return nil
}

func (m *memMarkers) IsPending(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[id], nil
}

func (m *memMarkers) ClearPending(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

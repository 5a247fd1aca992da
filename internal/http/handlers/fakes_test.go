package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/multimodal-agent/server/internal/cache"
	"github.com/multimodal-agent/server/internal/domain"
	"github.com/multimodal-agent/server/internal/middleware"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type memJobs struct {
	mu      sync.Mutex
	jobs    map[string]*domain.Job
	listErr error
	gets    int
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]*domain.Job{}}
}

func (m *memJobs) Create(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobs) GetByID(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) GetForUser(ctx context.Context, id, userID string) (*domain.Job, error) {
	j, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return j, nil
}

func (m *memJobs) ListByUser(_ context.Context, userID string, limit, offset int) ([]domain.Job, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var all []domain.Job
	for _, j := range m.jobs {
		if j.UserID == userID {
			all = append(all, *j)
		}
	}
	sort.Slice(all, func(i, k int) bool { return all[i].CreatedAt.After(all[k].CreatedAt) })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memJobs) Save(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobs) ClaimNext(context.Context) (string, error) {
	return "", domain.ErrNotFound
}

type memFiles struct {
	mu    sync.Mutex
	files map[string]*domain.File
}

func newMemFiles() *memFiles {
	return &memFiles{files: map[string]*domain.File{}}
}

func (m *memFiles) Create(_ context.Context, f *domain.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.files[f.ID] = &cp
	return nil
}

func (m *memFiles) GetByID(_ context.Context, id string) (*domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memFiles) GetForUser(ctx context.Context, id, userID string) (*domain.File, error) {
	f, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return f, nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	s.objects[key] = append([]byte(nil), data...)
	s.types[key] = contentType
	return key, nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type fixture struct {
	app   *App
	jobs  *memJobs
	files *memFiles
	store *memStore
	mr    *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{jobs: newMemJobs(), files: newMemFiles(), store: newMemStore(), mr: mr}
	ids := 0
	f.app = NewApp(App{
		Jobs:           f.jobs,
		Files:          f.files,
		Store:          f.store,
		Cache:          cache.New(client, nil),
		DB:             stubPinger{},
		MaxUploadBytes: 1 << 20,
		now:            func() time.Time { return testNow },
		newID: func() string {
			ids++
			return []string{
				"11111111-1111-4111-8111-111111111111",
				"22222222-2222-4222-8222-222222222222",
				"33333333-3333-4333-8333-333333333333",
			}[(ids-1)%3]
		},
	})
	return f
}

// routes mounts the handlers the way the API router does, with the user id
// injected directly instead of via a bearer token.
func (f *fixture) routes(userID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.ContextWithUserID(req.Context(), userID)))
		})
	})
	r.Get("/v1/healthz", f.app.Health)
	r.Post("/api/v1/files", f.app.UploadFile)
	r.Post("/api/v1/jobs", f.app.CreateJob)
	r.Get("/api/v1/jobs", f.app.ListJobs)
	r.Get("/api/v1/jobs/{job_id}", f.app.GetJob)
	return r
}

func (f *fixture) seedFile(id, userID string) {
	f.files.files[id] = &domain.File{
		ID:          id,
		UserID:      userID,
		Filename:    "chart.png",
		ContentType: "image/png",
		StoragePath: "uploads/" + userID + "/" + id + ".png",
		CreatedAt:   testNow,
	}
}

func (f *fixture) seedJob(id, userID string, status domain.JobStatus, created time.Time) *domain.Job {
	j := &domain.Job{
		ID:        id,
		UserID:    userID,
		FileID:    "f0000000-0000-4000-8000-000000000000",
		Status:    status,
		Task:      domain.DefaultTask,
		CreatedAt: created,
		UpdatedAt: created,
	}
	f.jobs.jobs[id] = j
	return j
}

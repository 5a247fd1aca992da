package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/multimodal-agent/server/internal/cache"
	"github.com/multimodal-agent/server/internal/domain"
	"github.com/multimodal-agent/server/internal/infra"
	"github.com/multimodal-agent/server/internal/middleware"
	"github.com/multimodal-agent/server/internal/storage"
)

// Pinger reports whether a backing service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App carries the dependencies shared by the HTTP handlers.
type App struct {
	Jobs           domain.JobRepository
	Files          domain.FileRepository
	Store          storage.ObjectStore
	Cache          *cache.Cache
	TTL            cache.TTLPolicy
	DB             Pinger
	Logger         *infra.Logger
	MaxUploadBytes int64

	now   func() time.Time
	newID func() string
}

// NewApp fills in the clock, id source and logger defaults.
func NewApp(app App) *App {
	if app.Logger == nil {
		app.Logger = infra.NopLogger()
	}
	if app.TTL == (cache.TTLPolicy{}) {
		app.TTL = cache.DefaultTTLPolicy
	}
	if app.MaxUploadBytes <= 0 {
		app.MaxUploadBytes = 10 << 20
	}
	if app.now == nil {
		app.now = func() time.Time { return time.Now().UTC() }
	}
	if app.newID == nil {
		app.newID = uuid.NewString
	}
	return &app
}

type errorPayload struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorPayload{Error: errorDetail{Code: errCode, Message: message}})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

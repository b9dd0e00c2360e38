package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	appscans "github.com/bryanwahyu/geoscan/internal/application/scans"
	domai "github.com/bryanwahyu/geoscan/internal/domain/ai"
	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
	"github.com/bryanwahyu/geoscan/internal/middleware"
)

const maxBodyBytes = 64 << 10

// Options configures the HTTP surface. Zero values disable the feature.
type Options struct {
	CORSOrigins    []string
	APIKeys        map[string]string
	RateLimitRPS   float64
	RateLimitBurst int
	Checkers       map[string]middleware.HealthChecker
	PollInterval   time.Duration
	Logger         *slog.Logger
	// Stop ends background helpers such as the rate limiter sweeper.
	Stop <-chan struct{}
}

type Router struct {
	scansSvc *appscans.Service
	log      *slog.Logger
	poll     time.Duration
	upgrader websocket.Upgrader
}

func NewRouter(scansSvc *appscans.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	r := &Router{
		scansSvc: scansSvc,
		log:      logger,
		poll:     poll,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(opts.CORSOrigins)},
	}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware(logger))
	mux.Use(middleware.MetricsMiddleware)
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checkers, r.platforms))
	mux.Get("/healthz", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		if len(opts.APIKeys) > 0 {
			rt.Use(middleware.APIKeyAuth(opts.APIKeys))
		}
		if opts.RateLimitRPS > 0 {
			rt.Use(middleware.RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst, opts.Stop))
		}
		rt.Post("/scans", r.wrap(r.handleCreate))
		rt.Get("/scans", r.wrap(r.handleHistory))
		rt.Route("/scans/{id}", func(rs chi.Router) {
			rs.Get("/", r.wrap(r.handleGet))
			rs.Get("/opportunities", r.wrap(r.handleOpportunities))
			rs.Get("/keywords", r.wrap(r.handleKeywords))
			rs.Get("/errors", r.wrap(r.handleErrors))
			rs.Get("/stream", r.wrap(r.handleStream))
			rs.Get("/ws", r.wrap(r.handleWebsocket))
		})
	})

	return otelhttp.NewHandler(mux, "geoscan.http")
}

func (r *Router) platforms() []middleware.PlatformInfo {
	out := []middleware.PlatformInfo{}
	if r.scansSvc.Adapters == nil {
		return out
	}
	for _, p := range r.scansSvc.Adapters.Platforms() {
		out = append(out, middleware.PlatformInfo{Name: p.DisplayName(), Key: string(p), Configured: true})
	}
	return out
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid input", Details: map[string]string{"field": ve.Field, "message": ve.Message}})
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Scan not found"})
		case errors.Is(err, domain.ErrNotComplete):
			writeJSON(w, http.StatusConflict, errorBody{Error: "Scan has not completed yet"})
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "ai quota exceeded"})
		default:
			r.log.Error("request failed", "method", req.Method, "path", req.URL.Path, "err", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func scanParam(req *http.Request) string {
	return chi.URLParam(req, "id")
}

// validID maps malformed ids to ErrNotFound since they cannot exist.
func validID(id domain.ScanID) error {
	if err := middleware.ValidateScanID(string(id)); err != nil {
		return domain.ErrNotFound
	}
	return nil
}

func scanID(req *http.Request) (domain.ScanID, error) {
	id := domain.ScanID(scanParam(req))
	if err := validID(id); err != nil {
		return "", err
	}
	return id, nil
}

// POST /v1/scans
// Body: {"url": "example.com", "regions": ["us", "uk"]}
func (r *Router) handleCreate(w http.ResponseWriter, req *http.Request) error {
	var body appscans.CreateScanCommand
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return &domain.ValidationError{Field: "body", Message: "invalid JSON body"}
	}
	body.URL = middleware.SanitizeString(body.URL)

	res, err := r.scansSvc.StartScan(req.Context(), body)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, res)
}

// GET /v1/scans?page=1&pageSize=50
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("pageSize"))

	list, err := r.scansSvc.History(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/scans/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	rep, err := r.scansSvc.Report(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// GET /v1/scans/{id}/opportunities
func (r *Router) handleOpportunities(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	ops, err := r.scansSvc.Opportunities(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"scanId": id, "opportunities": ops})
}

// GET /v1/scans/{id}/keywords
func (r *Router) handleKeywords(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	kws, err := r.scansSvc.Keywords(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"scanId": id, "keywords": kws})
}

// GET /v1/scans/{id}/errors?limit=100
func (r *Router) handleErrors(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.scansSvc.ScanErrors(req.Context(), id, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"scanId": id, "errors": list})
}

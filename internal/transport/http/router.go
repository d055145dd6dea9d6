package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"spin-wheel-service/internal/app"
	"spin-wheel-service/internal/domain"
)

// NewRouter mounts the REST reads, the websocket game channel, health and metrics.
func NewRouter(service *app.GameService, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &apiHandler{service: service}
	ws := NewWSHandler(service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/wheels/{wheelID}", func(r chi.Router) {
		r.Get("/", api.getWheel)
		r.Get("/players/{playerID}", api.getPlayer)
	})
	r.Get("/ws", ws.ServeWS)
	return r
}

type apiHandler struct {
	service *app.GameService
}

func (h *apiHandler) getWheel(w http.ResponseWriter, r *http.Request) {
	wheel, err := h.service.Wheel(r.Context(), chi.URLParam(r, "wheelID"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, wheelView(wheel))
}

func (h *apiHandler) getPlayer(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context(), chi.URLParam(r, "wheelID"), chi.URLParam(r, "playerID"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, state)
}

type errorPayload struct {
	Message string `json:"message"`
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrWheelNotFound) {
		status = http.StatusNotFound
	}
	render.Status(r, status)
	render.JSON(w, r, errorPayload{Message: err.Error()})
}

// publicWheel is a wheel without answer keys.
type publicWheel struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Variant  domain.Variant   `json:"variant"`
	Segments []domain.Segment `json:"segments"`
}

func wheelView(w domain.Wheel) publicWheel {
	return publicWheel{ID: w.ID, Name: w.Name, Variant: w.Variant, Segments: w.Segments}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug("request completed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

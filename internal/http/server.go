package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/raven-rwho/rem-expenses/internal/auth"
	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/currency"
	"github.com/raven-rwho/rem-expenses/internal/export"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/middleware/ratelimit"
	"github.com/raven-rwho/rem-expenses/internal/middleware/security"
	"github.com/raven-rwho/rem-expenses/internal/middleware/trace"
	"github.com/raven-rwho/rem-expenses/internal/rates"
	"github.com/raven-rwho/rem-expenses/internal/services"
	"github.com/raven-rwho/rem-expenses/internal/sheets"
	"github.com/raven-rwho/rem-expenses/internal/storage"
	appweb "github.com/raven-rwho/rem-expenses/web"
)

const (
	loginPath = "/login"
	authPath  = "/api/auth"

	staticMaxAge = 86400
)

// Deps are the collaborators the server routes requests to. Gate, Archiver
// and Sheets are optional.
type Deps struct {
	Reports     *services.ReportService
	Conversions *services.ConversionService
	Drafts      storage.DraftStore
	Rates       *rates.Table
	Sheets      sheets.ReportWriter
	Archiver    *export.Archiver
	Gate        *auth.Gate
	LoginLimit  ratelimit.Config
	Logger      *log.Logger
}

type Server struct {
	http.Server
	templates   *template.Template
	templateErr error
	deps        Deps
	logger      *log.Logger
	loginLimit  *ratelimit.Limiter
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer builds the router and wraps it in an http.Server listening on addr.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default(log.ComponentHTTP)
	}
	if deps.Sheets == nil {
		deps.Sheets = sheets.Disabled{}
	}

	s := &Server{
		deps:       deps,
		logger:     deps.Logger,
		loginLimit: ratelimit.NewLimiter(deps.LoginLimit),
		tracer:     trace.NewMiddleware(),
	}
	s.templates, s.templateErr = template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if s.templateErr != nil {
		s.logger.Error("Failed to parse templates", "error", s.templateErr)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger, trace.FromRequest))
	r.Use(requestLogging)
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.loginLimit.Middleware(ratelimit.LoginAttempts(authPath), ratelimit.ClientKey, ratelimit.LoginLimitMessage))
	if s.deps.Gate != nil {
		r.Use(s.deps.Gate.Middleware(loginPath, authPath, "/static/", "/healthz", "/readyz"))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	if static, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.StaticAssetMiddleware(staticMaxAge)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	} else {
		s.logger.Error("Failed to mount static assets", "error", err)
	}

	r.Get("/", s.handleIndex)
	r.Get(loginPath, s.handleLogin)

	if s.deps.Gate != nil {
		r.Handle(authPath, s.deps.Gate)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/rates", s.handleRates)
		r.Get("/currencies", s.handleCurrencies)
		r.Post("/calculate", s.handleCalculate)

		r.Post("/drafts", s.handleCreateDraft)
		r.Route("/drafts/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetDraft)
			r.Put("/", s.handleSaveDraft)
			r.Delete("/", s.handleDeleteDraft)

			r.Put("/items/{category}", s.handleSetItem)
			r.Delete("/items/{category}/{itemID}", s.handleRemoveItem)

			r.Get("/report", s.handleDraftReport)
			r.Get("/exports", s.handleListExports)
			r.Get("/export.{format}", s.handleExport)
			r.Post("/export/sheets", s.handleExportSheets)
		})
	})

	return r
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start), ratelimit.ClientKey(r))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings the draft store when it supports it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.deps.Drafts.(interface{ Ping(context.Context) error }); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}

type indexData struct {
	Title      string
	Categories []core.Category
	Currencies []currency.Currency
	Rates      rates.Grouped
	CostPerKM  string
	Auth       bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Title:      "Reisekostenabrechnung",
		Categories: core.Categories(),
		Currencies: currency.Supported(),
		CostPerKM:  core.FormatEuro(core.VehicleCostPerKM),
		Auth:       s.deps.Gate != nil,
	}
	if s.deps.Rates != nil {
		data.Rates = s.deps.Rates.Grouped()
	}
	s.render(w, r, "index.html", data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", struct{ Title string }{Title: "Anmelden"})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templateErr != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed", "template", name, "error", err)
	}
}

// Shutdown stops the login limiter and drains the HTTP server. It is safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.loginLimit.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

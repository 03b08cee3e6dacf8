package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"finitefield.org/tutor-admin/internal/admin/authstate"
	custommw "finitefield.org/tutor-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tutor-admin/internal/admin/httpserver/ui"
	"finitefield.org/tutor-admin/internal/admin/i18n"
	"finitefield.org/tutor-admin/internal/admin/login"
	"finitefield.org/tutor-admin/internal/admin/navigation"
	"finitefield.org/tutor-admin/internal/admin/observability"
	"finitefield.org/tutor-admin/internal/admin/rbac"
	"finitefield.org/tutor-admin/public"
)

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Address       string
	BasePath      string
	LoginPath     string
	Environment   string
	Authenticator custommw.Authenticator
	Sessions      custommw.SessionStore
	Registry      *authstate.Registry
	Bundle        *i18n.Bundle
	Logger        *zap.Logger

	MinPasswordLength int
	// SubmitWait bounds how long a login POST waits for the provider before
	// rendering the loading state.
	SubmitWait time.Duration

	CSRFCookieName   string
	CSRFCookiePath   string
	CSRFCookieSecure bool
	CSRFHeaderName   string

	// MetricsPath exposes Prometheus metrics; "-" disables the endpoint.
	MetricsPath string
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("httpserver: session store is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("httpserver: login registry is required")
	}
	bundle := cfg.Bundle
	if bundle == nil {
		var err error
		if bundle, err = i18n.Load(i18n.DefaultLocale); err != nil {
			return nil, fmt.Errorf("httpserver: load locales: %w", err)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.RequestLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(60 * time.Second))

	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("httpserver: embed static: %w", err)
	}
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))

	switch metricsPath := strings.TrimSpace(cfg.MetricsPath); metricsPath {
	case "-":
	case "":
		router.Handle("/metrics", promhttp.Handler())
	default:
		router.Handle(metricsPath, promhttp.Handler())
	}

	basePath := normalizeBasePath(cfg.BasePath)
	loginPath := resolveLoginPath(basePath, cfg.LoginPath)

	authenticator := cfg.Authenticator
	if authenticator == nil {
		authenticator = custommw.DefaultAuthenticator()
	}

	submitWait := cfg.SubmitWait
	if submitWait <= 0 {
		submitWait = defaultSubmitWait
	}

	csrfCfg := custommw.CSRFConfig{
		CookieName: cfg.CSRFCookieName,
		CookiePath: firstNonEmpty(cfg.CSRFCookiePath, basePath),
		HeaderName: cfg.CSRFHeaderName,
		Secure:     cfg.CSRFCookieSecure,
	}

	mountAdminRoutes(router, basePath, routeOptions{
		Environment: cfg.Environment,
		Sessions:    cfg.Sessions,
		Registry:    cfg.Registry,
		Bundle:      bundle,
		Secure:      cfg.CSRFCookieSecure,
		CSRF:        csrfCfg,
		Auth:        custommw.Auth(authenticator, loginPath),
		Login: &loginHandlers{
			authenticator: authenticator,
			registry:      cfg.Registry,
			validator:     login.NewValidator(cfg.MinPasswordLength, bundle),
			basePath:      basePath,
			loginPath:     loginPath,
			submitWait:    submitWait,
			secureCookies: cfg.CSRFCookieSecure,
			now:           time.Now,
		},
		UI: ui.NewHandlers(),
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil
}

type routeOptions struct {
	Environment string
	Sessions    custommw.SessionStore
	Registry    *authstate.Registry
	Bundle      *i18n.Bundle
	Secure      bool
	CSRF        custommw.CSRFConfig
	Auth        func(http.Handler) http.Handler
	Login       *loginHandlers
	UI          *ui.Handlers
}

func mountAdminRoutes(router chi.Router, base string, opts routeOptions) {
	router.Route(base, func(r chi.Router) {
		r.Use(custommw.Environment(opts.Environment))
		r.Use(custommw.RequestInfoMiddleware(base))
		r.Use(custommw.Session(opts.Sessions))
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Locale(opts.Bundle, base, opts.Secure))
		r.Use(custommw.CSRF(opts.CSRF))

		// The login surface: views are mounted against the session's entry.
		r.Group(func(r chi.Router) {
			r.Use(custommw.LoginEntry(opts.Registry))
			r.Get(navigation.PathLogin, opts.Login.Form)
			r.Post(navigation.PathLogin, opts.Login.Submit)
			r.With(custommw.RequireHTMX()).Post(navigation.PathLogin+"/validate", opts.Login.Validate)
			RegisterFragment(r, navigation.PathLogin+"/status", opts.Login.Status)
			r.Get(navigation.PathRecoverPassword, opts.Login.Recover)
		})

		r.Post(navigation.PathLogout, opts.Login.Logout)

		// Everything else is navigation away from the login surface.
		r.Group(func(r chi.Router) {
			r.Use(custommw.LeaveLogin(opts.Registry))
			r.Use(opts.Auth)

			r.With(custommw.RequireCapability(rbac.CapRootView)).Get(navigation.PathRoot, opts.UI.Root)
			r.With(custommw.RequireCapability(rbac.CapUsersManage)).Get(navigation.PathUsers, opts.UI.Section("Nav.users"))
			r.With(custommw.RequireCapability(rbac.CapTeachersView)).Get(navigation.PathTeachers, opts.UI.Section("Nav.teachers"))
			r.With(custommw.RequireCapability(rbac.CapLearnersView)).Get(navigation.PathLearners, opts.UI.Section("Nav.learners"))
			r.With(custommw.RequireCapability(rbac.CapSectionsView)).Get(navigation.PathSections, opts.UI.Section("Nav.sections"))
		})
	})
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func resolveLoginPath(base string, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return navigation.Join(base, navigation.PathLogin)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// RegisterFragment registers a GET handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX()).Get(pattern, handler)
}

// Package app is the composition root: it builds the HTTP client, the
// session, the services and the view models from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/config"
	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/cache"
	"github.com/martiniano/crm-console/internal/infra/client"
	"github.com/martiniano/crm-console/internal/infra/observability"
	"github.com/martiniano/crm-console/internal/infra/resilience"
	"github.com/martiniano/crm-console/internal/infra/storage"
	"github.com/martiniano/crm-console/internal/navigation"
	"github.com/martiniano/crm-console/internal/port"
	"github.com/martiniano/crm-console/internal/service"
	"github.com/martiniano/crm-console/internal/session"
	"github.com/martiniano/crm-console/internal/viewmodel"
)

const serviceName = "crmctl"

// Options tune how New builds the App. Zero values pick production defaults.
type Options struct {
	// Ephemeral keeps the session in memory instead of the SQLite file.
	Ephemeral bool
	// Persistence overrides the session backend entirely.
	Persistence port.SessionPersistence
	// Transport replaces http.DefaultTransport at the bottom of the chain.
	Transport http.RoundTripper
	// Navigator receives redirects. Defaults to a navigation.Recorder.
	Navigator port.Navigator
	// Logger defaults to observability.NewLogger(cfg.LogLevel).
	Logger *zap.Logger
}

// App holds every long-lived collaborator of a client process.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	API       *client.APIClient
	Session   *session.Store
	Navigator port.Navigator
	Guard     *navigation.Guard

	Auth      *service.AuthService
	Leads     *service.LeadsService
	Clients   *service.ClientsService
	Projects  *service.ProjectsService
	Dashboard *service.DashboardService

	flash   *cache.InMemory[bool]
	closers []func(context.Context) error
}

// New wires the client. On a 401 from any call the session is cleared and
// the navigator is sent to the login route, in that order.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: opts.Logger, Navigator: opts.Navigator}
	if a.Logger == nil {
		a.Logger = observability.NewLogger(cfg.LogLevel)
	}
	if a.Navigator == nil {
		a.Navigator = &navigation.Recorder{}
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, serviceName)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	// --- Metrics ---
	a.Metrics = observability.NewMetrics()

	// --- HTTP client ---
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: observability.TracingTransport(observability.LoggingTransport(base, a.Logger)),
	}

	bs := resilience.DefaultBreakerSettings()
	bs.MaxRequests = cfg.BreakerMaxRequests
	bs.Timeout = cfg.BreakerTimeout
	a.API = client.NewAPIClient(httpClient, cfg.APIBaseURL, bs, a.Metrics, a.Logger)

	// --- Persistence ---
	persist, err := a.openPersistence(cfg, opts)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	// --- Services ---
	a.Auth = service.NewAuthService(a.API, a.Logger)
	a.Leads = service.NewLeadsService(a.API, a.Logger)
	a.Clients = service.NewClientsService(a.API, a.Logger)
	a.Projects = service.NewProjectsService(a.API, a.Logger)
	a.Dashboard = service.NewDashboardService(a.API, a.Logger)

	// --- Session ---
	a.Session, err = session.NewStore(ctx, persist, a.Auth, a.Logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.API.SetTokenSource(a.Session)
	a.API.OnSessionInvalidated(func(ev domain.SessionInvalidated) {
		a.Session.Invalidate(ev)
		a.Navigator.Navigate(navigation.RouteLogin)
	})

	a.Guard = navigation.NewGuard(a.Session, a.Navigator, a.Logger)

	a.flash = cache.New[bool](cfg.ContactSuccessTTL)
	a.closers = append(a.closers, func(context.Context) error {
		a.flash.Stop()
		return nil
	})

	a.Logger.Debug("client ready",
		zap.String("api_url", cfg.APIBaseURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Bool("authenticated", a.Session.IsAuthenticated()),
	)
	return a, nil
}

func (a *App) openPersistence(cfg *config.Config, opts Options) (port.SessionPersistence, error) {
	switch {
	case opts.Persistence != nil:
		return opts.Persistence, nil
	case opts.Ephemeral:
		return storage.NewMemory(), nil
	}

	db, err := storage.OpenSQLite(cfg.SessionDBPath, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	return db, nil
}

// Close releases the tracer, the flash cache and the session database.
// Closers run in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

// ============================================================
// View models
// ============================================================

// LeadsList builds the leads screen.
func (a *App) LeadsList() *viewmodel.LeadsList {
	return viewmodel.NewLeadsList(a.Leads, a.Config.LeadsPageSize, a.Metrics, a.Logger)
}

// LeadDetail builds the lead detail screen.
func (a *App) LeadDetail() *viewmodel.LeadDetail {
	return viewmodel.NewLeadDetail(a.Leads, a.Metrics, a.Logger)
}

// ClientsList builds the clients screen.
func (a *App) ClientsList() *viewmodel.ClientsList {
	return viewmodel.NewClientsList(a.Clients, a.Metrics, a.Logger)
}

// ProjectsList builds the projects screen.
func (a *App) ProjectsList() *viewmodel.ProjectsList {
	return viewmodel.NewProjectsList(a.Projects, a.Metrics, a.Logger)
}

// DashboardView builds the dashboard screen.
func (a *App) DashboardView() *viewmodel.Dashboard {
	return viewmodel.NewDashboard(a.Dashboard, a.Metrics, a.Logger)
}

// ContactForm builds the public contact form. It works without a session.
func (a *App) ContactForm() *viewmodel.ContactForm {
	return viewmodel.NewContactForm(a.Leads, a.Config.ContactSource, a.flash, a.Metrics, a.Logger)
}

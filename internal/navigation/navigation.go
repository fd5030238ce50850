// Package navigation defines the admin routes and the guard in front of them.
package navigation

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/port"
)

// Routes.
const (
	RouteLogin      = "/admin/login"
	RouteDashboard  = "/admin/dashboard"
	RouteLeads      = "/admin/leads"
	RouteLeadDetail = "/admin/leads/:id"
	RouteClients    = "/admin/clients"
	RouteProjects   = "/admin/projects"
)

// LeadRoute fills in the lead detail route.
func LeadRoute(id int64) string {
	return strings.Replace(RouteLeadDetail, ":id", strconv.FormatInt(id, 10), 1)
}

// Protected reports whether route requires a session.
func Protected(route string) bool {
	return route != RouteLogin && strings.HasPrefix(route, "/admin/")
}

// AuthChecker is satisfied by *session.Store.
type AuthChecker interface {
	IsAuthenticated() bool
}

// Guard gates protected routes on the session.
type Guard struct {
	auth   AuthChecker
	nav    port.Navigator
	logger *zap.Logger
}

// NewGuard creates a route guard.
func NewGuard(auth AuthChecker, nav port.Navigator, logger *zap.Logger) *Guard {
	return &Guard{auth: auth, nav: nav, logger: logger}
}

// CanEnter reports whether a protected route may be shown right now.
func (g *Guard) CanEnter() bool {
	return g.auth.IsAuthenticated()
}

// Enter returns true when route may be shown. Otherwise it redirects to the
// login route and returns false.
func (g *Guard) Enter(route string) bool {
	if !Protected(route) || g.CanEnter() {
		return true
	}
	g.logger.Debug("guard: redirecting to login", zap.String("route", route))
	g.nav.Navigate(RouteLogin)
	return false
}

// ============================================================
// Navigators
// ============================================================

// Recorder remembers every navigation. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	routes []string
}

// Navigate implements port.Navigator.
func (r *Recorder) Navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// Routes returns every route navigated to, in order.
func (r *Recorder) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

// Last returns the most recent route, or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

// Terminal tells the operator where to go. A redirect to the login route
// is printed once per process as a hint to run the login command.
type Terminal struct {
	out       io.Writer
	loginHint string

	mu       sync.Mutex
	current  string
	hintSent bool
}

// NewTerminal creates a Terminal navigator writing to out.
func NewTerminal(out io.Writer, loginHint string) *Terminal {
	return &Terminal{out: out, loginHint: loginHint}
}

// Navigate implements port.Navigator.
func (t *Terminal) Navigate(route string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = route
	if route != RouteLogin || t.hintSent {
		return
	}
	t.hintSent = true
	fmt.Fprintln(t.out, t.loginHint)
}

// Current returns the last route navigated to.
func (t *Terminal) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

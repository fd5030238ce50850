// Package fakeapi is an in-memory stand-in for the CRM backend, served over
// a chi router. Tests point the real client at it through httptest.
package fakeapi

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
)

type user struct {
	password string
	identity domain.Identity
}

type fault struct {
	status int
	body   any
}

// Server holds the fake backend state.
type Server struct {
	logger *zap.Logger

	// FlatLogin makes POST /auth/login answer {token,username,email,role}
	// instead of {token,user:{...}}.
	FlatLogin bool

	mu       sync.Mutex
	users    map[string]user
	tokens   map[string]domain.Identity
	leads    map[int64]domain.Lead
	nextID   int64
	clients  []domain.Client
	projects []domain.Project
	faults   map[string][]fault
	hits     map[string]int
	now      func() time.Time
}

// New creates an empty fake backend.
func New(logger *zap.Logger) *Server {
	return &Server{
		logger: logger,
		users:  make(map[string]user),
		tokens: make(map[string]domain.Identity),
		leads:  make(map[int64]domain.Lead),
		faults: make(map[string][]fault),
		hits:   make(map[string]int),
		now:    time.Now,
	}
}

// Handler returns the chi router serving /api/v1.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.countHits)
	r.Use(s.injectFaults)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/leads", s.createLead)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)

			r.Get("/auth/me", s.me)

			r.Get("/leads", s.listLeads)
			r.Get("/leads/{id}", s.getLead)
			r.Put("/leads/{id}", s.updateLead)
			r.Patch("/leads/{id}/stage", s.updateStage)
			r.Delete("/leads/{id}", s.deleteLead)

			r.Get("/clients", s.listClients)
			r.Get("/projects", s.listProjects)

			r.Get("/dashboard/kpis", s.kpis)
			r.Get("/dashboard/leads-by-stage", s.leadsByStage)
		})
	})
	return r
}

// ============================================================
// Seeding
// ============================================================

// AddUser registers credentials accepted by POST /auth/login.
func (s *Server) AddUser(email, password string, id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(email)] = user{password: password, identity: id}
}

// IssueToken makes token valid for id without a login round-trip.
func (s *Server) IssueToken(token string, id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = id
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]domain.Identity)
}

// AddLead stores l, assigning an id when l.ID is zero. Returns the id.
func (s *Server) AddLead(l domain.Lead) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLead(l)
}

func (s *Server) putLead(l domain.Lead) int64 {
	if l.ID == 0 {
		s.nextID++
		l.ID = s.nextID
	} else if l.ID > s.nextID {
		s.nextID = l.ID
	}
	if l.Stage == "" {
		l.Stage = domain.StageNew
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = domain.Timestamp{Time: s.now()}
	}
	s.leads[l.ID] = l
	return l.ID
}

// Lead returns the stored lead with the given id.
func (s *Server) Lead(id int64) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	return l, ok
}

// AddClient appends a client, assigning an id when zero.
func (s *Server) AddClient(c domain.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = int64(len(s.clients) + 1)
	}
	s.clients = append(s.clients, c)
}

// AddProject appends a project, assigning an id when zero.
func (s *Server) AddProject(p domain.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = int64(len(s.projects) + 1)
	}
	s.projects = append(s.projects, p)
}

// ============================================================
// Fault injection and call accounting
// ============================================================

// Fail makes the next request to method+path answer status with body.
// Faults queue up per route and are consumed one per request.
func (s *Server) Fail(method, path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.faults[key] = append(s.faults[key], fault{status: status, body: body})
}

// Hits reports how many requests reached method+path.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

// TotalHits reports how many requests were received.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		queue := s.faults[key]
		var f *fault
		if len(queue) > 0 {
			f = &queue[0]
			s.faults[key] = queue[1:]
		}
		s.mu.Unlock()

		if f != nil {
			s.logger.Debug("fakeapi: injected fault", zap.String("route", key), zap.Int("status", f.status))
			if f.body == nil {
				w.WriteHeader(f.status)
				return
			}
			writeJSON(w, f.status, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeUnauthorized(w, "Authentication required")
			return
		}

		s.mu.Lock()
		_, ok := s.tokens[parts[1]]
		s.mu.Unlock()
		if !ok {
			writeUnauthorized(w, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) newToken(id domain.Identity) string {
	token := uuid.NewString()
	s.tokens[token] = id
	return token
}

func (s *Server) sortedLeads() []domain.Lead {
	out := make([]domain.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

package viewmodel_test

import (
	"context"
	"sync"
	"time"

	"github.com/martiniano/crm-console/internal/domain"
)

// mockLeads is a hand-written port.LeadsAPI. Nil funcs return zero values.
type mockLeads struct {
	mu sync.Mutex

	listFn   func(ctx context.Context, q domain.LeadQuery) (*domain.LeadPage, error)
	getFn    func(ctx context.Context, id int64) (*domain.Lead, error)
	createFn func(ctx context.Context, in domain.LeadInput) (*domain.Lead, error)
	updateFn func(ctx context.Context, id int64, in domain.LeadInput) (*domain.Lead, error)
	stageFn  func(ctx context.Context, id int64, stage domain.Stage) (*domain.Lead, error)

	listCalls   []domain.LeadQuery
	createCalls []domain.LeadInput
	updateCalls []domain.LeadInput
	stageCalls  []domain.Stage
}

func (m *mockLeads) List(ctx context.Context, q domain.LeadQuery) (*domain.LeadPage, error) {
	m.mu.Lock()
	m.listCalls = append(m.listCalls, q)
	fn := m.listFn
	m.mu.Unlock()
	if fn == nil {
		return &domain.LeadPage{TotalPages: 1}, nil
	}
	return fn(ctx, q)
}

func (m *mockLeads) Get(ctx context.Context, id int64) (*domain.Lead, error) {
	if m.getFn == nil {
		return &domain.Lead{ID: id, Stage: domain.StageNew}, nil
	}
	return m.getFn(ctx, id)
}

func (m *mockLeads) Create(ctx context.Context, in domain.LeadInput) (*domain.Lead, error) {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, in)
	fn := m.createFn
	m.mu.Unlock()
	if fn == nil {
		return &domain.Lead{ID: 1, Name: in.Name}, nil
	}
	return fn(ctx, in)
}

func (m *mockLeads) Update(ctx context.Context, id int64, in domain.LeadInput) (*domain.Lead, error) {
	m.mu.Lock()
	m.updateCalls = append(m.updateCalls, in)
	fn := m.updateFn
	m.mu.Unlock()
	if fn == nil {
		return &domain.Lead{ID: id, Name: in.Name, Email: in.Email, Company: in.Company, Stage: in.Stage}, nil
	}
	return fn(ctx, id, in)
}

func (m *mockLeads) UpdateStage(ctx context.Context, id int64, stage domain.Stage) (*domain.Lead, error) {
	m.mu.Lock()
	m.stageCalls = append(m.stageCalls, stage)
	fn := m.stageFn
	m.mu.Unlock()
	if fn == nil {
		return &domain.Lead{ID: id, Stage: stage}, nil
	}
	return fn(ctx, id, stage)
}

func (m *mockLeads) Delete(ctx context.Context, id int64) error { return nil }

func (m *mockLeads) lists() []domain.LeadQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LeadQuery(nil), m.listCalls...)
}

func (m *mockLeads) creates() []domain.LeadInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LeadInput(nil), m.createCalls...)
}

func (m *mockLeads) stages() []domain.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Stage(nil), m.stageCalls...)
}

// mockClients is a hand-written port.ClientsAPI.
type mockClients struct {
	clients []domain.Client
	err     error
}

func (m *mockClients) List(context.Context) ([]domain.Client, error) {
	return m.clients, m.err
}

// mockProjects is a hand-written port.ProjectsAPI that ignores the status
// filter unless filter is set.
type mockProjects struct {
	mu       sync.Mutex
	projects []domain.Project
	filter   bool
	calls    []domain.ProjectStatus
}

func (m *mockProjects) List(_ context.Context, status domain.ProjectStatus) ([]domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, status)
	if !m.filter || status == "" {
		return m.projects, nil
	}
	var out []domain.Project
	for _, p := range m.projects {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

// mockDashboard is a hand-written port.DashboardAPI.
type mockDashboard struct {
	kpis     *domain.KPIs
	stages   []domain.StageCount
	kpisErr  error
	stageErr error
}

func (m *mockDashboard) KPIs(context.Context) (*domain.KPIs, error) {
	if m.kpisErr != nil {
		return nil, m.kpisErr
	}
	return m.kpis, nil
}

func (m *mockDashboard) LeadsByStage(context.Context) ([]domain.StageCount, error) {
	if m.stageErr != nil {
		return nil, m.stageErr
	}
	return m.stages, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

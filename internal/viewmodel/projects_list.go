package viewmodel

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/observability"
	"github.com/martiniano/crm-console/internal/port"
)

const (
	msgNoProjectsMatch = "No projects found matching your filters"
	msgNoProjects      = "No projects available"
)

// ProjectsListState is a snapshot of the projects screen.
type ProjectsListState struct {
	Projects     []domain.Project
	Status       domain.ProjectStatus // "" means all
	Search       string
	Loading      bool
	Err          string
	EmptyMessage string
}

// ProjectsList loads projects with a status filter and searches locally.
type ProjectsList struct {
	api     port.ProjectsAPI
	metrics *observability.Metrics
	logger  *zap.Logger

	mu       sync.Mutex
	tracker  requestTracker
	projects []domain.Project
	status   domain.ProjectStatus
	search   string
	err      string
}

// NewProjectsList creates the view model.
func NewProjectsList(api port.ProjectsAPI, metrics *observability.Metrics, logger *zap.Logger) *ProjectsList {
	return &ProjectsList{api: api, metrics: metrics, logger: logger}
}

// Load fetches projects for the current status filter.
func (vm *ProjectsList) Load(ctx context.Context) error {
	vm.mu.Lock()
	ctx, seq := vm.tracker.begin(ctx)
	status := vm.status
	vm.mu.Unlock()

	projects, err := vm.api.List(ctx, status)

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if !vm.tracker.finish(seq) {
		vm.metrics.IncrStaleResponse("projects")
		return ErrSuperseded
	}
	if err != nil {
		vm.err = domain.DisplayMessage(err)
		return err
	}
	vm.projects = projects
	vm.err = ""
	return nil
}

// SetStatus changes the status filter and refetches.
func (vm *ProjectsList) SetStatus(ctx context.Context, status domain.ProjectStatus) error {
	if status != "" {
		parsed, ok := domain.ParseProjectStatus(string(status))
		if !ok {
			return domain.NewClientValidation("status", "unknown project status")
		}
		status = parsed
	}

	vm.mu.Lock()
	vm.status = status
	vm.mu.Unlock()
	return vm.Load(ctx)
}

// SetSearchTerm filters by name, client or description.
func (vm *ProjectsList) SetSearchTerm(term string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.search = term
}

// State returns a snapshot. The status filter is applied locally as well,
// so a backend that ignores the query parameter still shows the right rows.
func (vm *ProjectsList) State() ProjectsListState {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	needle := normalizeSearch(vm.search)
	visible := make([]domain.Project, 0, len(vm.projects))
	for _, p := range vm.projects {
		if vm.status != "" && p.Status != vm.status {
			continue
		}
		if needle == "" ||
			containsFold(p.Name, needle) ||
			containsFold(p.Client, needle) ||
			containsFold(p.Description, needle) {
			visible = append(visible, p)
		}
	}

	st := ProjectsListState{
		Projects: visible,
		Status:   vm.status,
		Search:   vm.search,
		Loading:  vm.tracker.loading(),
		Err:      vm.err,
	}
	if len(visible) == 0 {
		if needle != "" || vm.status != "" {
			st.EmptyMessage = msgNoProjectsMatch
		} else {
			st.EmptyMessage = msgNoProjects
		}
	}
	return st
}

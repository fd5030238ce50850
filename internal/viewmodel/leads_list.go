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
	msgNoLeadsMatch = "No leads found matching your search"
	msgNoLeads      = "No leads available"
)

// LeadsListState is a snapshot of the leads screen.
type LeadsListState struct {
	Leads        []domain.Lead // current page, after the search filter
	Page         int
	TotalPages   int
	Stage        domain.Stage // "" means all stages
	Search       string
	Loading      bool
	Err          string
	EmptyMessage string // set only when Leads is empty
}

// LeadsList pages through leads with a server-side stage filter and a local
// search over the loaded page.
type LeadsList struct {
	api     port.LeadsAPI
	limit   int
	metrics *observability.Metrics
	logger  *zap.Logger

	mu         sync.Mutex
	tracker    requestTracker
	leads      []domain.Lead
	page       int
	totalPages int
	stage      domain.Stage
	search     string
	err        string
}

// NewLeadsList creates the view model. pageSize <= 0 falls back to 10.
func NewLeadsList(api port.LeadsAPI, pageSize int, metrics *observability.Metrics, logger *zap.Logger) *LeadsList {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &LeadsList{
		api:        api,
		limit:      pageSize,
		metrics:    metrics,
		logger:     logger,
		page:       1,
		totalPages: 1,
	}
}

// Load fetches the current page. Called on mount.
func (vm *LeadsList) Load(ctx context.Context) error {
	vm.mu.Lock()
	reqCtx, seq, q := vm.beginLocked(ctx)
	vm.mu.Unlock()
	return vm.fetch(ctx, reqCtx, seq, q)
}

// SetStage changes the stage filter and goes back to page 1.
func (vm *LeadsList) SetStage(ctx context.Context, stage domain.Stage) error {
	if stage != "" {
		parsed, ok := domain.ParseStage(string(stage))
		if !ok {
			return domain.NewClientValidation("stage", "unknown stage")
		}
		stage = parsed
	}

	vm.mu.Lock()
	vm.stage = stage
	vm.page = 1
	reqCtx, seq, q := vm.beginLocked(ctx)
	vm.mu.Unlock()
	return vm.fetch(ctx, reqCtx, seq, q)
}

// NextPage moves forward one page, if there is one.
func (vm *LeadsList) NextPage(ctx context.Context) error {
	return vm.goTo(ctx, func(page int) int { return page + 1 })
}

// PrevPage moves back one page, if there is one.
func (vm *LeadsList) PrevPage(ctx context.Context) error {
	return vm.goTo(ctx, func(page int) int { return page - 1 })
}

// GoToPage clamps n to [1, TotalPages] and fetches only when the page changes.
func (vm *LeadsList) GoToPage(ctx context.Context, n int) error {
	return vm.goTo(ctx, func(int) int { return n })
}

// SetSearchTerm filters the loaded page by name, email or company. It never
// fetches.
func (vm *LeadsList) SetSearchTerm(term string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.search = term
}

// State returns a snapshot.
func (vm *LeadsList) State() LeadsListState {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	visible := filterLeads(vm.leads, vm.search)
	st := LeadsListState{
		Leads:      visible,
		Page:       vm.page,
		TotalPages: vm.totalPages,
		Stage:      vm.stage,
		Search:     vm.search,
		Loading:    vm.tracker.loading(),
		Err:        vm.err,
	}
	if len(visible) == 0 {
		if normalizeSearch(vm.search) != "" {
			st.EmptyMessage = msgNoLeadsMatch
		} else {
			st.EmptyMessage = msgNoLeads
		}
	}
	return st
}

func (vm *LeadsList) goTo(ctx context.Context, target func(page int) int) error {
	vm.mu.Lock()
	n := target(vm.page)
	if n < 1 {
		n = 1
	}
	if n > vm.totalPages {
		n = vm.totalPages
	}
	if n == vm.page {
		vm.mu.Unlock()
		return nil
	}
	vm.page = n
	reqCtx, seq, q := vm.beginLocked(ctx)
	vm.mu.Unlock()
	return vm.fetch(ctx, reqCtx, seq, q)
}

func (vm *LeadsList) beginLocked(ctx context.Context) (context.Context, uint64, domain.LeadQuery) {
	ctx, seq := vm.tracker.begin(ctx)
	return ctx, seq, domain.LeadQuery{Page: vm.page, Limit: vm.limit, Stage: vm.stage}
}

// fetch runs q under reqCtx. parent is the caller's context, kept for the
// follow-up request when the page has to be clamped.
func (vm *LeadsList) fetch(parent, reqCtx context.Context, seq uint64, q domain.LeadQuery) error {
	page, err := vm.api.List(reqCtx, q)

	vm.mu.Lock()
	if !vm.tracker.finish(seq) {
		vm.mu.Unlock()
		vm.metrics.IncrStaleResponse("leads")
		vm.logger.Debug("leads: dropping stale response", zap.Int("page", q.Page))
		return ErrSuperseded
	}
	if err != nil {
		vm.err = domain.DisplayMessage(err)
		vm.mu.Unlock()
		return err
	}

	vm.leads = page.Leads
	vm.totalPages = page.TotalPages
	if vm.totalPages < 1 {
		vm.totalPages = 1
	}
	vm.err = ""

	// The list shrank under us: fall back to the new last page.
	if vm.page > vm.totalPages {
		vm.logger.Debug("leads: page past the end, clamping",
			zap.Int("page", vm.page),
			zap.Int("total_pages", vm.totalPages),
		)
		vm.page = vm.totalPages
		reqCtx, seq, q = vm.beginLocked(parent)
		vm.mu.Unlock()
		return vm.fetch(parent, reqCtx, seq, q)
	}
	vm.mu.Unlock()
	return nil
}

func filterLeads(leads []domain.Lead, term string) []domain.Lead {
	needle := normalizeSearch(term)
	out := make([]domain.Lead, 0, len(leads))
	for _, l := range leads {
		if needle == "" ||
			containsFold(l.Name, needle) ||
			containsFold(l.Email, needle) ||
			containsFold(l.Company, needle) {
			out = append(out, l)
		}
	}
	return out
}

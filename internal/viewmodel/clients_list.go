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
	msgNoClientsMatch = "No clients found matching your search"
	msgNoClients      = "No clients available"
)

// ClientsListState is a snapshot of the clients screen.
type ClientsListState struct {
	Clients      []domain.Client
	Search       string
	Loading      bool
	Err          string
	EmptyMessage string
}

// ClientsList loads every client once and searches locally.
type ClientsList struct {
	api     port.ClientsAPI
	metrics *observability.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	tracker requestTracker
	clients []domain.Client
	search  string
	err     string
}

// NewClientsList creates the view model.
func NewClientsList(api port.ClientsAPI, metrics *observability.Metrics, logger *zap.Logger) *ClientsList {
	return &ClientsList{api: api, metrics: metrics, logger: logger}
}

// Load fetches the clients.
func (vm *ClientsList) Load(ctx context.Context) error {
	vm.mu.Lock()
	ctx, seq := vm.tracker.begin(ctx)
	vm.mu.Unlock()

	clients, err := vm.api.List(ctx)

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if !vm.tracker.finish(seq) {
		vm.metrics.IncrStaleResponse("clients")
		return ErrSuperseded
	}
	if err != nil {
		vm.err = domain.DisplayMessage(err)
		return err
	}
	vm.clients = clients
	vm.err = ""
	return nil
}

// SetSearchTerm filters by name, email or company.
func (vm *ClientsList) SetSearchTerm(term string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.search = term
}

// State returns a snapshot.
func (vm *ClientsList) State() ClientsListState {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	needle := normalizeSearch(vm.search)
	visible := make([]domain.Client, 0, len(vm.clients))
	for _, c := range vm.clients {
		if needle == "" ||
			containsFold(c.Name, needle) ||
			containsFold(c.Email, needle) ||
			containsFold(c.Company, needle) {
			visible = append(visible, c)
		}
	}

	st := ClientsListState{
		Clients: visible,
		Search:  vm.search,
		Loading: vm.tracker.loading(),
		Err:     vm.err,
	}
	if len(visible) == 0 {
		if needle != "" {
			st.EmptyMessage = msgNoClientsMatch
		} else {
			st.EmptyMessage = msgNoClients
		}
	}
	return st
}

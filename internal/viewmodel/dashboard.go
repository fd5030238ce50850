package viewmodel

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/observability"
	"github.com/martiniano/crm-console/internal/port"
)

// DashboardState is a snapshot of the dashboard.
type DashboardState struct {
	Snapshot *domain.DashboardSnapshot // nil until the first successful load
	Loading  bool
	Err      string
}

// Dashboard loads KPIs and the stage breakdown together.
type Dashboard struct {
	api     port.DashboardAPI
	metrics *observability.Metrics
	logger  *zap.Logger

	mu       sync.Mutex
	tracker  requestTracker
	snapshot *domain.DashboardSnapshot
	err      string
}

// NewDashboard creates the view model.
func NewDashboard(api port.DashboardAPI, metrics *observability.Metrics, logger *zap.Logger) *Dashboard {
	return &Dashboard{api: api, metrics: metrics, logger: logger}
}

// Load fetches both endpoints concurrently. The snapshot is replaced only
// when both succeed.
func (vm *Dashboard) Load(ctx context.Context) error {
	vm.mu.Lock()
	ctx, seq := vm.tracker.begin(ctx)
	vm.mu.Unlock()

	var (
		kpis   *domain.KPIs
		stages []domain.StageCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		kpis, err = vm.api.KPIs(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stages, err = vm.api.LeadsByStage(gctx)
		return err
	})
	err := g.Wait()

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if !vm.tracker.finish(seq) {
		vm.metrics.IncrStaleResponse("dashboard")
		return ErrSuperseded
	}
	if err != nil {
		vm.err = domain.DisplayMessage(err)
		return err
	}
	vm.snapshot = &domain.DashboardSnapshot{KPIs: *kpis, LeadsByStage: stages}
	vm.err = ""
	return nil
}

// State returns a snapshot.
func (vm *Dashboard) State() DashboardState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return DashboardState{Snapshot: vm.snapshot, Loading: vm.tracker.loading(), Err: vm.err}
}

// BarPercent is the width of a stage's bar: its count over the total lead
// count, as a percentage. A zero total is treated as one.
func (vm *Dashboard) BarPercent(stage domain.Stage) float64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.snapshot == nil {
		return 0
	}
	return BarPercent(*vm.snapshot, stage)
}

// BarPercent computes the bar width for stage from snap.
func BarPercent(snap domain.DashboardSnapshot, stage domain.Stage) float64 {
	total := snap.KPIs.TotalLeads
	if total < 1 {
		total = 1
	}
	for _, row := range snap.LeadsByStage {
		if row.Stage == stage {
			return float64(row.Count) / float64(total) * 100
		}
	}
	return 0
}

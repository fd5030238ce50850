package viewmodel_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/observability"
	"github.com/martiniano/crm-console/internal/viewmodel"
)

func TestDashboard_Load(t *testing.T) {
	api := &mockDashboard{
		kpis: &domain.KPIs{TotalLeads: 40, ActiveClients: 3, ActiveProjects: 2, ConversionRate: 12.5},
		stages: []domain.StageCount{
			{Stage: domain.StageNew, Count: 10},
			{Stage: domain.StageWon, Count: 5},
		},
	}
	vm := viewmodel.NewDashboard(api, observability.NewMetrics(), zap.NewNop())

	if err := vm.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := vm.State()
	if st.Snapshot == nil || st.Snapshot.KPIs.TotalLeads != 40 || len(st.Snapshot.LeadsByStage) != 2 {
		t.Fatalf("unexpected snapshot %+v", st.Snapshot)
	}
	if got := vm.BarPercent(domain.StageNew); got != 25 {
		t.Fatalf("expected 25%%, got %v", got)
	}
	if got := vm.BarPercent(domain.StageLost); got != 0 {
		t.Fatalf("expected 0%% for a missing stage, got %v", got)
	}
}

func TestBarPercent_ZeroTotal(t *testing.T) {
	snap := domain.DashboardSnapshot{
		KPIs:         domain.KPIs{TotalLeads: 0},
		LeadsByStage: []domain.StageCount{{Stage: domain.StageNew, Count: 0}},
	}
	if got := viewmodel.BarPercent(snap, domain.StageNew); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestDashboard_PartialFailureKeepsNoSnapshot(t *testing.T) {
	api := &mockDashboard{
		kpis:     &domain.KPIs{TotalLeads: 1},
		stageErr: &domain.ErrServer{Status: 500, Message: "stage query failed"},
	}
	vm := viewmodel.NewDashboard(api, observability.NewMetrics(), zap.NewNop())

	if err := vm.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	st := vm.State()
	if st.Snapshot != nil {
		t.Fatalf("expected no snapshot, got %+v", st.Snapshot)
	}
	if st.Err != "stage query failed" || st.Loading {
		t.Fatalf("unexpected state %+v", st)
	}
}

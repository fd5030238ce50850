package viewmodel_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/observability"
	"github.com/martiniano/crm-console/internal/viewmodel"
)

func threePages(_ context.Context, q domain.LeadQuery) (*domain.LeadPage, error) {
	return &domain.LeadPage{
		Leads:      []domain.Lead{{ID: int64(q.Page), Name: "Lead"}},
		TotalPages: 3,
	}, nil
}

func TestLeadsList_Pagination(t *testing.T) {
	api := &mockLeads{listFn: threePages}
	vm := viewmodel.NewLeadsList(api, 10, observability.NewMetrics(), zap.NewNop())
	ctx := context.Background()

	if err := vm.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := vm.NextPage(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}

	calls := api.lists()
	last := calls[len(calls)-1]
	if last.Page != 2 || last.Limit != 10 || last.Stage != "" {
		t.Fatalf("expected page=2 limit=10 no stage, got %+v", last)
	}
	st := vm.State()
	if st.Page != 2 || st.TotalPages != 3 {
		t.Fatalf("expected page 2 of 3, got %d of %d", st.Page, st.TotalPages)
	}

	_ = vm.GoToPage(ctx, 99)
	if vm.State().Page != 3 {
		t.Fatalf("expected clamp to 3, got %d", vm.State().Page)
	}

	before := len(api.lists())
	_ = vm.NextPage(ctx)
	_ = vm.GoToPage(ctx, 3)
	if len(api.lists()) != before {
		t.Fatal("expected no fetch when the page does not change")
	}

	_ = vm.GoToPage(ctx, -4)
	if vm.State().Page != 1 {
		t.Fatalf("expected clamp to 1, got %d", vm.State().Page)
	}
	_ = vm.PrevPage(ctx)
	if got := len(api.lists()); got != before+1 {
		t.Fatalf("expected exactly one more fetch, got %d", got-before)
	}
}

func TestLeadsList_StageFilterResetsPage(t *testing.T) {
	api := &mockLeads{listFn: threePages}
	vm := viewmodel.NewLeadsList(api, 10, observability.NewMetrics(), zap.NewNop())
	ctx := context.Background()

	_ = vm.Load(ctx)
	_ = vm.GoToPage(ctx, 3)
	if err := vm.SetStage(ctx, domain.StageQualified); err != nil {
		t.Fatalf("set stage: %v", err)
	}

	calls := api.lists()
	last := calls[len(calls)-1]
	if last.Page != 1 || last.Stage != domain.StageQualified {
		t.Fatalf("expected page 1 stage qualified, got %+v", last)
	}
	if vm.State().Stage != domain.StageQualified {
		t.Fatal("expected stage reflected in state")
	}

	if err := vm.SetStage(ctx, "archived"); domain.KindOf(err) != domain.KindClientValidation {
		t.Fatalf("expected client validation for unknown stage, got %v", err)
	}
}

func TestLeadsList_RefetchClampsPageWhenListShrinks(t *testing.T) {
	total := 3
	api := &mockLeads{listFn: func(_ context.Context, q domain.LeadQuery) (*domain.LeadPage, error) {
		if q.Page > total {
			return &domain.LeadPage{TotalPages: total}, nil
		}
		return &domain.LeadPage{
			Leads:      []domain.Lead{{ID: int64(q.Page), Name: "Lead"}},
			TotalPages: total,
		}, nil
	}}
	vm := viewmodel.NewLeadsList(api, 10, observability.NewMetrics(), zap.NewNop())
	ctx := context.Background()

	_ = vm.Load(ctx)
	_ = vm.GoToPage(ctx, 3)
	total = 1

	if err := vm.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	st := vm.State()
	if st.Page != 1 || st.TotalPages != 1 {
		t.Fatalf("expected page 1 of 1, got %d of %d", st.Page, st.TotalPages)
	}
	if len(st.Leads) != 1 || st.Leads[0].ID != 1 {
		t.Fatalf("expected the leads of page 1, got %+v", st.Leads)
	}
	calls := api.lists()
	if last := calls[len(calls)-1]; last.Page != 1 {
		t.Fatalf("expected a follow-up fetch of page 1, got %+v", last)
	}
}

func TestLeadsList_SearchIsLocal(t *testing.T) {
	api := &mockLeads{listFn: func(context.Context, domain.LeadQuery) (*domain.LeadPage, error) {
		return &domain.LeadPage{
			Leads: []domain.Lead{
				{ID: 1, Name: "Ann", Email: "ann@x.io"},
				{ID: 2, Name: "Bob", Email: "bob@y.io", Company: "Globex"},
			},
			TotalPages: 1,
		}, nil
	}}
	vm := viewmodel.NewLeadsList(api, 10, observability.NewMetrics(), zap.NewNop())
	_ = vm.Load(context.Background())

	vm.SetSearchTerm("AN")
	st := vm.State()
	if len(st.Leads) != 1 || st.Leads[0].Name != "Ann" {
		t.Fatalf("expected only Ann, got %+v", st.Leads)
	}

	vm.SetSearchTerm("globex")
	if st := vm.State(); len(st.Leads) != 1 || st.Leads[0].Name != "Bob" {
		t.Fatalf("expected company match on Bob, got %+v", st.Leads)
	}

	vm.SetSearchTerm("zzz")
	if st := vm.State(); st.EmptyMessage != "No leads found matching your search" {
		t.Fatalf("unexpected empty message %q", st.EmptyMessage)
	}
	if len(api.lists()) != 1 {
		t.Fatalf("expected search to never fetch, got %d fetches", len(api.lists()))
	}
}

func TestLeadsList_EmptyMessageWithoutSearch(t *testing.T) {
	vm := viewmodel.NewLeadsList(&mockLeads{}, 10, observability.NewMetrics(), zap.NewNop())
	_ = vm.Load(context.Background())

	if st := vm.State(); st.EmptyMessage != "No leads available" {
		t.Fatalf("unexpected empty message %q", st.EmptyMessage)
	}
}

func TestLeadsList_ErrorThenRecovery(t *testing.T) {
	fail := true
	api := &mockLeads{listFn: func(context.Context, domain.LeadQuery) (*domain.LeadPage, error) {
		if fail {
			return nil, &domain.ErrUnreachable{Cause: errors.New("dial tcp: refused")}
		}
		return &domain.LeadPage{Leads: []domain.Lead{{ID: 1}}, TotalPages: 1}, nil
	}}
	vm := viewmodel.NewLeadsList(api, 10, observability.NewMetrics(), zap.NewNop())

	if err := vm.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if st := vm.State(); st.Err != domain.MsgUnreachable || st.Loading {
		t.Fatalf("expected unreachable message and not loading, got %+v", st)
	}

	fail = false
	_ = vm.Load(context.Background())
	if st := vm.State(); st.Err != "" || len(st.Leads) != 1 {
		t.Fatalf("expected error cleared and leads shown, got %+v", st)
	}
}

func TestLeadsList_StaleResponseDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &mockLeads{listFn: func(_ context.Context, q domain.LeadQuery) (*domain.LeadPage, error) {
		if q.Stage == domain.StageNew {
			close(started)
			<-release
			return &domain.LeadPage{Leads: []domain.Lead{{ID: 1, Name: "stale"}}, TotalPages: 1}, nil
		}
		return &domain.LeadPage{Leads: []domain.Lead{{ID: 2, Name: "fresh"}}, TotalPages: 1}, nil
	}}
	metrics := observability.NewMetrics()
	vm := viewmodel.NewLeadsList(api, 10, metrics, zap.NewNop())
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() { slow <- vm.SetStage(ctx, domain.StageNew) }()
	<-started

	if !vm.State().Loading {
		t.Fatal("expected loading while the fetch is outstanding")
	}

	if err := vm.SetStage(ctx, domain.StageWon); err != nil {
		t.Fatalf("fresh fetch: %v", err)
	}
	close(release)

	if err := <-slow; !errors.Is(err, viewmodel.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}

	st := vm.State()
	if len(st.Leads) != 1 || st.Leads[0].Name != "fresh" {
		t.Fatalf("expected fresh data to win, got %+v", st.Leads)
	}
	if st.Stage != domain.StageWon || st.Loading {
		t.Fatalf("expected stage won and not loading, got %+v", st)
	}
	if metrics.Snapshot().StaleResponses["leads"] != 1 {
		t.Fatal("expected the stale response to be counted")
	}
}

func TestLeadsList_SupersededFetchIsCancelled(t *testing.T) {
	started := make(chan struct{})
	api := &mockLeads{listFn: func(ctx context.Context, q domain.LeadQuery) (*domain.LeadPage, error) {
		if q.Stage == domain.StageNew {
			close(started)
			<-ctx.Done()
			return nil, &domain.ErrUnreachable{Cause: ctx.Err()}
		}
		return &domain.LeadPage{TotalPages: 1}, nil
	}}
	vm := viewmodel.NewLeadsList(api, 10, observability.NewMetrics(), zap.NewNop())

	slow := make(chan error, 1)
	go func() { slow <- vm.SetStage(context.Background(), domain.StageNew) }()
	<-started

	_ = vm.SetStage(context.Background(), domain.StageLost)

	if err := <-slow; !errors.Is(err, viewmodel.ErrSuperseded) {
		t.Fatalf("expected cancelled fetch to report ErrSuperseded, got %v", err)
	}
	if st := vm.State(); st.Err != "" {
		t.Fatalf("expected the cancelled fetch not to set an error, got %q", st.Err)
	}
}

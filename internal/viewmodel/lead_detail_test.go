package viewmodel_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/observability"
	"github.com/martiniano/crm-console/internal/viewmodel"
)

func loadedDetail(t *testing.T, api *mockLeads) *viewmodel.LeadDetail {
	t.Helper()
	if api.getFn == nil {
		api.getFn = func(_ context.Context, id int64) (*domain.Lead, error) {
			return &domain.Lead{ID: id, Name: "Ann", Email: "ann@x.io", Stage: domain.StageNew}, nil
		}
	}
	vm := viewmodel.NewLeadDetail(api, observability.NewMetrics(), zap.NewNop())
	if err := vm.Load(context.Background(), 7); err != nil {
		t.Fatalf("load: %v", err)
	}
	return vm
}

func TestLeadDetail_UpdateStageSuccess(t *testing.T) {
	api := &mockLeads{}
	vm := loadedDetail(t, api)

	if err := vm.UpdateStage(context.Background(), domain.StageQualified); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := vm.State()
	if st.Lead.Stage != domain.StageQualified || st.Alert != "" || st.UpdatingStage {
		t.Fatalf("expected qualified without alert, got %+v", st)
	}
	if got := api.stages(); len(got) != 1 || got[0] != domain.StageQualified {
		t.Fatalf("expected one PATCH with qualified, got %v", got)
	}
}

func TestLeadDetail_UpdateStageFailureRollsBack(t *testing.T) {
	api := &mockLeads{stageFn: func(context.Context, int64, domain.Stage) (*domain.Lead, error) {
		return nil, &domain.ErrServer{Status: 500, Message: "boom"}
	}}
	vm := loadedDetail(t, api)

	err := vm.UpdateStage(context.Background(), domain.StageQualified)
	if domain.KindOf(err) != domain.KindServerError {
		t.Fatalf("expected server error, got %v", err)
	}

	st := vm.State()
	if st.Lead.Stage != domain.StageNew {
		t.Fatalf("expected rollback to new, got %s", st.Lead.Stage)
	}
	if st.Alert != "Failed to update stage: boom" {
		t.Fatalf("unexpected alert %q", st.Alert)
	}
	if st.Err != "" {
		t.Fatalf("expected the screen error untouched, got %q", st.Err)
	}

	vm.DismissAlert()
	if vm.State().Alert != "" {
		t.Fatal("expected alert dismissed")
	}
}

func TestLeadDetail_SameStageIsNoop(t *testing.T) {
	api := &mockLeads{}
	vm := loadedDetail(t, api)

	if err := vm.UpdateStage(context.Background(), domain.StageNew); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.stages()) != 0 {
		t.Fatal("expected no request for an unchanged stage")
	}
}

func TestLeadDetail_ConcurrentStageUpdateRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &mockLeads{stageFn: func(_ context.Context, id int64, stage domain.Stage) (*domain.Lead, error) {
		close(started)
		<-release
		return &domain.Lead{ID: id, Stage: stage}, nil
	}}
	vm := loadedDetail(t, api)

	done := make(chan error, 1)
	go func() { done <- vm.UpdateStage(context.Background(), domain.StageProposal) }()
	<-started

	st := vm.State()
	if !st.UpdatingStage || st.Lead.Stage != domain.StageProposal {
		t.Fatalf("expected optimistic proposal while in flight, got %+v", st)
	}
	if err := vm.UpdateStage(context.Background(), domain.StageWon); !errors.Is(err, viewmodel.ErrStageUpdateInFlight) {
		t.Fatalf("expected ErrStageUpdateInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.State().UpdatingStage {
		t.Fatal("expected in-flight flag cleared")
	}
}

func TestLeadDetail_UpdateStageBeforeLoad(t *testing.T) {
	vm := viewmodel.NewLeadDetail(&mockLeads{}, observability.NewMetrics(), zap.NewNop())
	if err := vm.UpdateStage(context.Background(), domain.StageWon); !errors.Is(err, viewmodel.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestLeadDetail_LoadError(t *testing.T) {
	api := &mockLeads{getFn: func(context.Context, int64) (*domain.Lead, error) {
		return nil, &domain.ErrServer{Status: 404, Message: "Lead not found"}
	}}
	vm := viewmodel.NewLeadDetail(api, observability.NewMetrics(), zap.NewNop())

	_ = vm.Load(context.Background(), 99)
	if st := vm.State(); st.Err != "Lead not found" || st.Lead != nil {
		t.Fatalf("expected not-found error, got %+v", st)
	}
}

func TestLeadDetail_EditSave(t *testing.T) {
	api := &mockLeads{}
	vm := loadedDetail(t, api)

	if err := vm.SetDraftField("company", "Acme"); !errors.Is(err, viewmodel.ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing before BeginEdit, got %v", err)
	}
	if err := vm.BeginEdit(); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if err := vm.SetDraftField("company", "Acme"); err != nil {
		t.Fatalf("set draft: %v", err)
	}
	if err := vm.SetDraftField("favouriteColour", "red"); domain.KindOf(err) != domain.KindClientValidation {
		t.Fatalf("expected unknown field rejected, got %v", err)
	}

	if err := vm.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	st := vm.State()
	if st.Editing || st.Lead.Company != "Acme" {
		t.Fatalf("expected saved lead and edit mode left, got %+v", st)
	}
	if len(api.updateCalls) != 1 || api.updateCalls[0].Name != "Ann" {
		t.Fatalf("expected PUT carrying the whole draft, got %+v", api.updateCalls)
	}
}

func TestLeadDetail_SaveFailureStaysInEdit(t *testing.T) {
	api := &mockLeads{updateFn: func(context.Context, int64, domain.LeadInput) (*domain.Lead, error) {
		return nil, &domain.ErrValidationRejected{Fields: map[string]string{"email": "invalid"}}
	}}
	vm := loadedDetail(t, api)
	_ = vm.BeginEdit()
	_ = vm.SetDraftField("email", "nope")

	if err := vm.Save(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	st := vm.State()
	if !st.Editing || st.Draft.Email != "nope" {
		t.Fatalf("expected draft kept in edit mode, got %+v", st)
	}
	if st.Alert != "Failed to update lead: Validation error: email: invalid" {
		t.Fatalf("unexpected alert %q", st.Alert)
	}
	if st.Lead.Email != "ann@x.io" {
		t.Fatalf("expected lead untouched, got %q", st.Lead.Email)
	}
}

func TestLeadDetail_CancelEdit(t *testing.T) {
	vm := loadedDetail(t, &mockLeads{})
	_ = vm.BeginEdit()
	_ = vm.SetDraftField("name", "Changed")
	vm.CancelEdit()

	st := vm.State()
	if st.Editing || st.Lead.Name != "Ann" {
		t.Fatalf("expected edit discarded, got %+v", st)
	}
}

func TestLeadDetail_SaveKeepsStageChangedWhileEditing(t *testing.T) {
	var mu sync.Mutex
	stored := domain.StageNew
	api := &mockLeads{
		stageFn: func(_ context.Context, id int64, stage domain.Stage) (*domain.Lead, error) {
			mu.Lock()
			defer mu.Unlock()
			stored = stage
			return &domain.Lead{ID: id, Stage: stage}, nil
		},
		updateFn: func(_ context.Context, id int64, in domain.LeadInput) (*domain.Lead, error) {
			mu.Lock()
			defer mu.Unlock()
			if in.Stage != "" {
				stored = in.Stage
			}
			return &domain.Lead{ID: id, Name: in.Name, Email: in.Email, Stage: stored}, nil
		},
	}
	vm := loadedDetail(t, api)

	if err := vm.BeginEdit(); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if err := vm.UpdateStage(context.Background(), domain.StageQualified); err != nil {
		t.Fatalf("update stage: %v", err)
	}
	if err := vm.SetDraftField("name", "Ann Smith"); err != nil {
		t.Fatalf("set draft: %v", err)
	}
	if err := vm.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	if len(api.updateCalls) != 1 || api.updateCalls[0].Stage != "" {
		t.Fatalf("expected PUT without a stage, got %+v", api.updateCalls)
	}
	st := vm.State()
	if st.Lead.Stage != domain.StageQualified || st.Lead.Name != "Ann Smith" {
		t.Fatalf("expected qualified lead named Ann Smith, got %+v", st.Lead)
	}
}

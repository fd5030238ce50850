package viewmodel

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/observability"
	"github.com/martiniano/crm-console/internal/port"
	"github.com/martiniano/crm-console/internal/validation"
)

// Lead detail errors.
var (
	ErrNotLoaded           = errors.New("lead not loaded")
	ErrStageUpdateInFlight = errors.New("stage update already in progress")
	ErrNotEditing          = errors.New("not in edit mode")
	ErrSaveInFlight        = errors.New("save already in progress")
)

// LeadDetailState is a snapshot of the lead detail screen.
type LeadDetailState struct {
	Lead          *domain.Lead
	Loading       bool
	Err           string // load failure, shown in place of the lead
	UpdatingStage bool
	Alert         string // blocking notice, dismissed with DismissAlert
	Editing       bool
	Saving        bool
	Draft         domain.LeadInput
}

// LeadDetail shows one lead, moves it between stages and edits it.
type LeadDetail struct {
	api     port.LeadsAPI
	metrics *observability.Metrics
	logger  *zap.Logger

	mu            sync.Mutex
	tracker       requestTracker
	lead          *domain.Lead
	err           string
	updatingStage bool
	alert         string
	editing       bool
	saving        bool
	draft         domain.LeadInput
}

// NewLeadDetail creates the view model.
func NewLeadDetail(api port.LeadsAPI, metrics *observability.Metrics, logger *zap.Logger) *LeadDetail {
	return &LeadDetail{api: api, metrics: metrics, logger: logger}
}

// Load fetches lead id. A newer Load supersedes an older one.
func (vm *LeadDetail) Load(ctx context.Context, id int64) error {
	vm.mu.Lock()
	ctx, seq := vm.tracker.begin(ctx)
	vm.mu.Unlock()

	lead, err := vm.api.Get(ctx, id)

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if !vm.tracker.finish(seq) {
		vm.metrics.IncrStaleResponse("lead_detail")
		return ErrSuperseded
	}
	if err != nil {
		vm.err = domain.DisplayMessage(err)
		return err
	}
	vm.lead = lead
	vm.err = ""
	vm.editing = false
	return nil
}

// ============================================================
// Stage
// ============================================================

// UpdateStage moves the lead to stage optimistically. On failure the old
// stage is restored and an alert is raised. Choosing the current stage is
// a no-op. A second update while one is in flight is rejected.
func (vm *LeadDetail) UpdateStage(ctx context.Context, stage domain.Stage) error {
	parsed, ok := domain.ParseStage(string(stage))
	if !ok {
		return domain.NewClientValidation("stage", "unknown stage")
	}

	vm.mu.Lock()
	if vm.lead == nil {
		vm.mu.Unlock()
		return ErrNotLoaded
	}
	if vm.lead.Stage == parsed {
		vm.mu.Unlock()
		return nil
	}
	if vm.updatingStage {
		vm.mu.Unlock()
		return ErrStageUpdateInFlight
	}
	id := vm.lead.ID
	previous := vm.lead.Stage
	vm.lead.Stage = parsed
	vm.updatingStage = true
	vm.mu.Unlock()

	updated, err := vm.api.UpdateStage(ctx, id, parsed)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.updatingStage = false

	if vm.lead == nil || vm.lead.ID != id {
		return err
	}
	if err != nil {
		if vm.lead.Stage == parsed {
			vm.lead.Stage = previous
		}
		vm.alert = "Failed to update stage: " + domain.DisplayMessage(err)
		vm.logger.Warn("lead stage update failed",
			zap.Int64("lead_id", id),
			zap.String("stage", string(parsed)),
			zap.Error(err),
		)
		return err
	}
	if updated != nil && !updated.UpdatedAt.IsZero() {
		vm.lead.UpdatedAt = updated.UpdatedAt
	}
	return nil
}

// DismissAlert clears the blocking notice.
func (vm *LeadDetail) DismissAlert() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.alert = ""
}

// ============================================================
// Edit
// ============================================================

// BeginEdit copies the lead into a draft. The draft never carries the
// stage, so a stage change made while editing survives Save.
func (vm *LeadDetail) BeginEdit() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.lead == nil {
		return ErrNotLoaded
	}
	vm.draft = domain.InputFromLead(*vm.lead)
	vm.editing = true
	return nil
}

// SetDraftField changes one field of the draft.
func (vm *LeadDetail) SetDraftField(field, value string) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.editing {
		return ErrNotEditing
	}

	switch field {
	case validation.FieldName:
		vm.draft.Name = value
	case validation.FieldEmail:
		vm.draft.Email = value
	case validation.FieldPhone:
		vm.draft.Phone = value
	case validation.FieldCompany:
		vm.draft.Company = value
	case validation.FieldBudgetRange:
		vm.draft.BudgetRange = value
	case validation.FieldProjectType:
		vm.draft.ProjectType = value
	case validation.FieldMessage:
		vm.draft.Message = value
	default:
		return domain.NewClientValidation(field, "unknown field")
	}
	return nil
}

// CancelEdit discards the draft.
func (vm *LeadDetail) CancelEdit() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.editing = false
	vm.draft = domain.LeadInput{}
}

// Save sends the draft with PUT. Success replaces the lead and leaves edit
// mode; failure raises an alert and keeps the draft.
func (vm *LeadDetail) Save(ctx context.Context) error {
	vm.mu.Lock()
	if !vm.editing || vm.lead == nil {
		vm.mu.Unlock()
		return ErrNotEditing
	}
	if vm.saving {
		vm.mu.Unlock()
		return ErrSaveInFlight
	}
	id := vm.lead.ID
	draft := vm.draft
	vm.saving = true
	vm.mu.Unlock()

	updated, err := vm.api.Update(ctx, id, draft)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.saving = false

	if err != nil {
		vm.alert = "Failed to update lead: " + domain.DisplayMessage(err)
		return err
	}
	if vm.lead != nil && vm.lead.ID == id {
		if updated.Stage == "" {
			updated.Stage = vm.lead.Stage
		}
		vm.lead = updated
		vm.editing = false
		vm.draft = domain.LeadInput{}
	}
	return nil
}

// State returns a snapshot. The lead is copied.
func (vm *LeadDetail) State() LeadDetailState {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	st := LeadDetailState{
		Loading:       vm.tracker.loading(),
		Err:           vm.err,
		UpdatingStage: vm.updatingStage,
		Alert:         vm.alert,
		Editing:       vm.editing,
		Saving:        vm.saving,
		Draft:         vm.draft,
	}
	if vm.lead != nil {
		l := *vm.lead
		st.Lead = &l
	}
	return st
}

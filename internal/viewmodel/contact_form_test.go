package viewmodel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/cache"
	"github.com/martiniano/crm-console/internal/infra/observability"
	"github.com/martiniano/crm-console/internal/validation"
	"github.com/martiniano/crm-console/internal/viewmodel"
)

func newForm(api *mockLeads) (*viewmodel.ContactForm, *fakeClock, *observability.Metrics) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	flash := cache.New[bool](5*time.Second, cache.WithClock(clock.Now), cache.WithoutJanitor())
	metrics := observability.NewMetrics()
	return viewmodel.NewContactForm(api, "", flash, metrics, zap.NewNop()), clock, metrics
}

func fillValid(f *viewmodel.ContactForm) {
	_ = f.SetField("name", "Ann")
	_ = f.SetField("email", "ann@example.com")
	_ = f.SetField("message", "We need a new website")
}

func TestContactForm_HoneypotDiscardsSilently(t *testing.T) {
	api := &mockLeads{}
	f, _, metrics := newForm(api)
	fillValid(f)
	f.SetHoneypot("http://spam.example")

	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(api.creates()) != 0 {
		t.Fatal("expected no request for a bot submission")
	}
	st := f.State()
	if st.Status != viewmodel.StatusIdle || st.Values.Name != "Ann" {
		t.Fatalf("expected state untouched, got %+v", st)
	}
	if metrics.Snapshot().ContactSubmissions["discarded"] != 1 {
		t.Fatal("expected discarded submission counted")
	}
}

func TestContactForm_InvalidSubmit(t *testing.T) {
	api := &mockLeads{}
	f, _, _ := newForm(api)
	_ = f.SetField("email", "not-an-email")
	_ = f.SetField("message", "short")

	err := f.Submit(context.Background())

	var local *domain.ErrClientValidation
	if !errors.As(err, &local) {
		t.Fatalf("expected ErrClientValidation, got %v", err)
	}
	if len(api.creates()) != 0 {
		t.Fatal("expected no request for invalid input")
	}
	if f.Status() != viewmodel.StatusError {
		t.Fatalf("expected error status, got %s", f.Status())
	}
	want := map[string]string{
		"name":    "Name is required",
		"email":   "Please enter a valid email",
		"message": "Message must be at least 10 characters",
	}
	for field, msg := range want {
		if got := f.VisibleError(field); got != msg {
			t.Fatalf("%s: expected %q, got %q", field, msg, got)
		}
	}
}

func TestContactForm_ErrorsVisibleOnlyWhenTouched(t *testing.T) {
	f, _, _ := newForm(&mockLeads{})

	_ = f.SetField("name", "")
	if f.VisibleError("name") != "" {
		t.Fatal("expected no visible error before blur")
	}

	_ = f.Blur("name")
	if f.VisibleError("name") != "Name is required" {
		t.Fatalf("expected required error after blur, got %q", f.VisibleError("name"))
	}

	_ = f.SetField("name", "Ann")
	if f.VisibleError("name") != "" {
		t.Fatal("expected error cleared on change once touched")
	}
}

func TestContactForm_SuccessResetsAndExpires(t *testing.T) {
	api := &mockLeads{}
	f, clock, _ := newForm(api)
	fillValid(f)
	_ = f.SetField("company", "Acme")

	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	creates := api.creates()
	if len(creates) != 1 {
		t.Fatalf("expected one create, got %d", len(creates))
	}
	if creates[0].Source != "portfolio_v2" || creates[0].Company != "Acme" || creates[0].Name != "Ann" {
		t.Fatalf("unexpected payload %+v", creates[0])
	}

	st := f.State()
	if st.Status != viewmodel.StatusSuccess {
		t.Fatalf("expected success, got %s", st.Status)
	}
	if st.Values != (validation.Values{}) || len(st.Touched) != 0 || len(st.Errors) != 0 {
		t.Fatalf("expected draft reset, got %+v", st)
	}

	clock.Advance(4 * time.Second)
	if f.Status() != viewmodel.StatusSuccess {
		t.Fatal("expected success still visible before 5s")
	}
	clock.Advance(time.Second)
	if f.Status() != viewmodel.StatusIdle {
		t.Fatalf("expected idle after 5s, got %s", f.Status())
	}
}

func TestContactForm_FailureKeepsDraft(t *testing.T) {
	api := &mockLeads{createFn: func(context.Context, domain.LeadInput) (*domain.Lead, error) {
		return nil, &domain.ErrUnreachable{Cause: errors.New("refused")}
	}}
	f, _, _ := newForm(api)
	fillValid(f)

	if err := f.Submit(context.Background()); domain.KindOf(err) != domain.KindUnreachable {
		t.Fatalf("expected unreachable, got %v", err)
	}
	st := f.State()
	if st.Status != viewmodel.StatusError || st.Banner != domain.MsgUnreachable {
		t.Fatalf("expected error banner, got %+v", st)
	}
	if st.Values.Email != "ann@example.com" {
		t.Fatal("expected draft kept after failure")
	}
}

func TestContactForm_SingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &mockLeads{createFn: func(_ context.Context, in domain.LeadInput) (*domain.Lead, error) {
		close(started)
		<-release
		return &domain.Lead{ID: 1}, nil
	}}
	f, _, _ := newForm(api)
	fillValid(f)

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background()) }()
	<-started

	if f.CanSubmit() {
		t.Fatal("expected CanSubmit false while submitting")
	}
	if err := f.Submit(context.Background()); !errors.Is(err, viewmodel.ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	_ = f.SetField("name", "")
	if err := f.Submit(context.Background()); !errors.Is(err, viewmodel.ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight for invalid input mid-flight, got %v", err)
	}
	if st := f.State(); st.Status != viewmodel.StatusSubmitting || f.CanSubmit() {
		t.Fatalf("expected submitting status kept, got %s", st.Status)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.creates()) != 1 {
		t.Fatalf("expected exactly one create, got %d", len(api.creates()))
	}
	if !f.CanSubmit() {
		t.Fatal("expected CanSubmit true after completion")
	}
}

func TestContactForm_UnknownField(t *testing.T) {
	f, _, _ := newForm(&mockLeads{})
	if err := f.SetField("website", "x"); domain.KindOf(err) != domain.KindClientValidation {
		t.Fatalf("expected unknown field rejected, got %v", err)
	}
}

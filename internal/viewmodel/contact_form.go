package viewmodel

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/observability"
	"github.com/martiniano/crm-console/internal/infra/resilience"
	"github.com/martiniano/crm-console/internal/port"
	"github.com/martiniano/crm-console/internal/validation"
)

// ContactStatus is the submission status of the contact form.
type ContactStatus string

const (
	StatusIdle       ContactStatus = "idle"
	StatusSubmitting ContactStatus = "submitting"
	StatusSuccess    ContactStatus = "success"
	StatusError      ContactStatus = "error"
)

// DefaultContactSource tags leads created from the public form.
const DefaultContactSource = "portfolio_v2"

const successFlashKey = "contact.success"

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission has not finished.
var ErrSubmitInFlight = errors.New("submission already in progress")

// ContactFormState is a snapshot of the form.
type ContactFormState struct {
	Values  validation.Values
	Touched map[string]bool
	Errors  validation.Errors
	Status  ContactStatus
	Banner  string
}

// ContactForm is the public lead-capture form.
type ContactForm struct {
	api     port.LeadCreator
	source  string
	flash   port.Cache[bool]
	gate    *resilience.Bulkhead
	metrics *observability.Metrics
	logger  *zap.Logger

	mu       sync.Mutex
	values   validation.Values
	touched  map[string]bool
	errors   validation.Errors
	honeypot string
	status   ContactStatus
	banner   string
}

// NewContactForm creates the form. flash holds the success notice and its
// TTL decides how long the success status stays visible. An empty source
// falls back to DefaultContactSource.
func NewContactForm(api port.LeadCreator, source string, flash port.Cache[bool], metrics *observability.Metrics, logger *zap.Logger) *ContactForm {
	if source == "" {
		source = DefaultContactSource
	}
	return &ContactForm{
		api:     api,
		source:  source,
		flash:   flash,
		gate:    resilience.NewBulkhead(1),
		metrics: metrics,
		logger:  logger,
		touched: make(map[string]bool),
		errors:  validation.Errors{},
		status:  StatusIdle,
	}
}

// SetField updates a field, re-validating it if it was already touched.
func (f *ContactForm) SetField(field, value string) error {
	if !validation.KnownField(field) {
		return domain.NewClientValidation(field, "unknown field")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = f.values.With(field, value)
	if f.touched[field] {
		f.errors, _ = validation.ValidateField(field, value, f.errors)
	}
	return nil
}

// Blur marks a field touched and validates it.
func (f *ContactForm) Blur(field string) error {
	if !validation.KnownField(field) {
		return domain.NewClientValidation(field, "unknown field")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[field] = true
	f.errors, _ = validation.ValidateField(field, f.values.Get(field), f.errors)
	return nil
}

// SetHoneypot sets the hidden anti-spam field.
func (f *ContactForm) SetHoneypot(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.honeypot = value
}

// Submit validates and sends the form.
//
// A filled honeypot discards the submission silently: no request, no state
// change, nil error. Invalid input sets StatusError and returns
// *domain.ErrClientValidation. A submit while another is in flight returns
// ErrSubmitInFlight.
func (f *ContactForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if validation.IsBot(f.honeypot) {
		f.mu.Unlock()
		f.metrics.IncrContactSubmission("discarded")
		f.logger.Info("contact: honeypot filled, discarding submission")
		return nil
	}

	// One submit at a time, including ones that fail validation.
	if !f.gate.TryAcquire() {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	defer f.gate.Release()

	for _, field := range validation.RequiredFields {
		f.touched[field] = true
	}
	errs, ok := validation.ValidateForm(f.values)
	if !ok {
		f.errors = errs
		f.status = StatusError
		f.banner = ""
		f.mu.Unlock()
		f.metrics.IncrContactSubmission("invalid")
		return &domain.ErrClientValidation{Fields: errs.Messages()}
	}

	f.errors = validation.Errors{}
	f.status = StatusSubmitting
	f.banner = ""
	in := domain.LeadInput{
		Name:        f.values.Name,
		Email:       f.values.Email,
		Phone:       f.values.Phone,
		Company:     f.values.Company,
		BudgetRange: f.values.BudgetRange,
		ProjectType: f.values.ProjectType,
		Message:     f.values.Message,
		Source:      f.source,
	}
	f.mu.Unlock()

	_, err := f.api.Create(ctx, in)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.status = StatusError
		f.banner = domain.DisplayMessage(err)
		f.metrics.IncrContactSubmission("error")
		f.logger.Warn("contact: submission failed", zap.Error(err))
		return err
	}

	f.values = validation.Values{}
	f.touched = make(map[string]bool)
	f.errors = validation.Errors{}
	f.status = StatusSuccess
	f.banner = ""
	f.flash.Set(successFlashKey, true)
	f.metrics.IncrContactSubmission("success")
	return nil
}

// Status returns the current status. Success reads as idle once the
// success notice has expired.
func (f *ContactForm) Status() ContactStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusLocked()
}

func (f *ContactForm) statusLocked() ContactStatus {
	if f.status == StatusSuccess {
		if _, ok := f.flash.Get(successFlashKey); !ok {
			f.status = StatusIdle
		}
	}
	return f.status
}

// CanSubmit is false while a submission is in flight.
func (f *ContactForm) CanSubmit() bool {
	return f.Status() != StatusSubmitting
}

// VisibleError returns the message for field, but only once it is touched.
func (f *ContactForm) VisibleError(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.touched[field] {
		return ""
	}
	if key, ok := f.errors[field]; ok {
		return validation.Message(key)
	}
	return ""
}

// State returns a snapshot.
func (f *ContactForm) State() ContactFormState {
	f.mu.Lock()
	defer f.mu.Unlock()

	touched := make(map[string]bool, len(f.touched))
	for k, v := range f.touched {
		touched[k] = v
	}
	return ContactFormState{
		Values:  f.values,
		Touched: touched,
		Errors:  f.errors.Clone(),
		Status:  f.statusLocked(),
		Banner:  f.banner,
	}
}

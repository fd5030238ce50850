package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/client"
)

var leadsTracer = otel.Tracer("service/leads")

// LeadsService wraps /leads.
type LeadsService struct {
	api    Requester
	logger *zap.Logger
}

// NewLeadsService creates a new leads service.
func NewLeadsService(api Requester, logger *zap.Logger) *LeadsService {
	return &LeadsService{api: api, logger: logger}
}

type leadPageEnvelope struct {
	Leads      *[]domain.Lead `json:"leads"`
	TotalPages *int           `json:"totalPages"`
}

// List fetches one page of leads, optionally filtered by stage.
func (s *LeadsService) List(ctx context.Context, q domain.LeadQuery) (*domain.LeadPage, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadsService.List")
	defer span.End()
	span.SetAttributes(attribute.Int("page", q.Page), attribute.String("stage", string(q.Stage)))

	query := url.Values{}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Stage != "" {
		if _, ok := domain.ParseStage(string(q.Stage)); !ok {
			return nil, domain.NewClientValidation("stage", "unknown stage")
		}
		query.Set("stage", string(q.Stage))
	}

	var env leadPageEnvelope
	err := s.api.Do(ctx, client.Call{Op: "leads.list", Method: http.MethodGet, Path: "/leads", Query: query}, &env)
	if err != nil {
		return nil, err
	}
	if env.Leads == nil || env.TotalPages == nil {
		s.logger.Warn("leads.list: missing envelope keys")
		return nil, unexpectedResponse()
	}
	return &domain.LeadPage{Leads: *env.Leads, TotalPages: *env.TotalPages}, nil
}

// Get fetches a single lead.
func (s *LeadsService) Get(ctx context.Context, id int64) (*domain.Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadsService.Get")
	defer span.End()
	span.SetAttributes(attribute.Int64("lead.id", id))

	if err := requireID(id); err != nil {
		return nil, err
	}
	return s.doLead(ctx, client.Call{Op: "leads.get", Method: http.MethodGet, Path: leadPath(id)})
}

// Create submits a new lead. The endpoint is public.
func (s *LeadsService) Create(ctx context.Context, in domain.LeadInput) (*domain.Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadsService.Create")
	defer span.End()

	if in.Stage != "" {
		if _, ok := domain.ParseStage(string(in.Stage)); !ok {
			return nil, domain.NewClientValidation("stage", "unknown stage")
		}
	}
	return s.doLead(ctx, client.Call{Op: "leads.create", Method: http.MethodPost, Path: "/leads", Body: in})
}

// Update replaces the editable fields of a lead.
func (s *LeadsService) Update(ctx context.Context, id int64, in domain.LeadInput) (*domain.Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadsService.Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("lead.id", id))

	if err := requireID(id); err != nil {
		return nil, err
	}
	if in.Stage != "" {
		if _, ok := domain.ParseStage(string(in.Stage)); !ok {
			return nil, domain.NewClientValidation("stage", "unknown stage")
		}
	}
	return s.doLead(ctx, client.Call{Op: "leads.update", Method: http.MethodPut, Path: leadPath(id), Body: in})
}

// UpdateStage moves a lead to stage. Any stage may follow any other.
func (s *LeadsService) UpdateStage(ctx context.Context, id int64, stage domain.Stage) (*domain.Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadsService.UpdateStage")
	defer span.End()
	span.SetAttributes(attribute.Int64("lead.id", id), attribute.String("stage", string(stage)))

	if err := requireID(id); err != nil {
		return nil, err
	}
	if _, ok := domain.ParseStage(string(stage)); !ok {
		return nil, domain.NewClientValidation("stage", "unknown stage")
	}

	body := struct {
		Stage domain.Stage `json:"stage"`
	}{Stage: stage}
	return s.doLead(ctx, client.Call{
		Op:     "leads.stage",
		Method: http.MethodPatch,
		Path:   leadPath(id) + "/stage",
		Body:   body,
	})
}

// Delete removes a lead.
func (s *LeadsService) Delete(ctx context.Context, id int64) error {
	ctx, span := leadsTracer.Start(ctx, "LeadsService.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("lead.id", id))

	if err := requireID(id); err != nil {
		return err
	}
	return s.api.Do(ctx, client.Call{Op: "leads.delete", Method: http.MethodDelete, Path: leadPath(id)}, nil)
}

func (s *LeadsService) doLead(ctx context.Context, call client.Call) (*domain.Lead, error) {
	var lead domain.Lead
	if err := s.api.Do(ctx, call, &lead); err != nil {
		return nil, err
	}
	if lead.ID == 0 {
		s.logger.Warn("lead response without id", zap.String("op", call.Op))
		return nil, unexpectedResponse()
	}
	return &lead, nil
}

func leadPath(id int64) string {
	return fmt.Sprintf("/leads/%d", id)
}

package service

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/client"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// DashboardService wraps /dashboard. Nothing here is cached.
type DashboardService struct {
	api    Requester
	logger *zap.Logger
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(api Requester, logger *zap.Logger) *DashboardService {
	return &DashboardService{api: api, logger: logger}
}

// kpiEnvelope uses pointers so a missing key is told apart from a zero.
type kpiEnvelope struct {
	TotalLeads     *int     `json:"totalLeads"`
	ActiveClients  *int     `json:"activeClients"`
	ActiveProjects *int     `json:"activeProjects"`
	ConversionRate *float64 `json:"conversionRate"`
}

type stageCountRow struct {
	Stage *domain.Stage `json:"stage"`
	Count *int          `json:"count"`
}

// KPIs fetches the headline numbers.
func (s *DashboardService) KPIs(ctx context.Context) (*domain.KPIs, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.KPIs")
	defer span.End()

	var env kpiEnvelope
	if err := s.api.Do(ctx, client.Call{Op: "dashboard.kpis", Method: http.MethodGet, Path: "/dashboard/kpis"}, &env); err != nil {
		return nil, err
	}
	if env.TotalLeads == nil || env.ActiveClients == nil || env.ActiveProjects == nil || env.ConversionRate == nil {
		s.logger.Warn("dashboard.kpis: missing keys")
		return nil, unexpectedResponse()
	}
	return &domain.KPIs{
		TotalLeads:     *env.TotalLeads,
		ActiveClients:  *env.ActiveClients,
		ActiveProjects: *env.ActiveProjects,
		ConversionRate: *env.ConversionRate,
	}, nil
}

// LeadsByStage fetches the per-stage lead counts.
func (s *DashboardService) LeadsByStage(ctx context.Context) ([]domain.StageCount, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.LeadsByStage")
	defer span.End()

	var rows *[]stageCountRow
	err := s.api.Do(ctx, client.Call{Op: "dashboard.leads_by_stage", Method: http.MethodGet, Path: "/dashboard/leads-by-stage"}, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		s.logger.Warn("dashboard.leads_by_stage: null body")
		return nil, unexpectedResponse()
	}

	out := make([]domain.StageCount, 0, len(*rows))
	for i, r := range *rows {
		if r.Stage == nil || r.Count == nil {
			s.logger.Warn("dashboard.leads_by_stage: incomplete row", zap.Int("row", i))
			return nil, unexpectedResponse()
		}
		out = append(out, domain.StageCount{Stage: *r.Stage, Count: *r.Count})
	}
	return out, nil
}

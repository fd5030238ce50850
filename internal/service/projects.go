package service

import (
	"context"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/client"
)

// ProjectsService wraps GET /projects.
type ProjectsService struct {
	api    Requester
	logger *zap.Logger
}

// NewProjectsService creates a new projects service.
func NewProjectsService(api Requester, logger *zap.Logger) *ProjectsService {
	return &ProjectsService{api: api, logger: logger}
}

// List fetches projects, filtered server-side when status is set.
func (s *ProjectsService) List(ctx context.Context, status domain.ProjectStatus) ([]domain.Project, error) {
	ctx, span := catalogTracer.Start(ctx, "ProjectsService.List")
	defer span.End()
	span.SetAttributes(attribute.String("status", string(status)))

	var query url.Values
	if status != "" {
		if _, ok := domain.ParseProjectStatus(string(status)); !ok {
			return nil, domain.NewClientValidation("status", "unknown project status")
		}
		query = url.Values{"status": {string(status)}}
	}

	var env struct {
		Projects *[]domain.Project `json:"projects"`
	}
	err := s.api.Do(ctx, client.Call{Op: "projects.list", Method: http.MethodGet, Path: "/projects", Query: query}, &env)
	if err != nil {
		return nil, err
	}
	if env.Projects == nil {
		s.logger.Warn("projects.list: missing envelope key")
		return nil, unexpectedResponse()
	}
	return *env.Projects, nil
}

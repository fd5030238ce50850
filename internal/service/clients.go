package service

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/client"
)

var catalogTracer = otel.Tracer("service/catalog")

// ClientsService wraps GET /clients.
type ClientsService struct {
	api    Requester
	logger *zap.Logger
}

// NewClientsService creates a new clients service.
func NewClientsService(api Requester, logger *zap.Logger) *ClientsService {
	return &ClientsService{api: api, logger: logger}
}

// List fetches every client.
func (s *ClientsService) List(ctx context.Context) ([]domain.Client, error) {
	ctx, span := catalogTracer.Start(ctx, "ClientsService.List")
	defer span.End()

	var env struct {
		Clients *[]domain.Client `json:"clients"`
	}
	if err := s.api.Do(ctx, client.Call{Op: "clients.list", Method: http.MethodGet, Path: "/clients"}, &env); err != nil {
		return nil, err
	}
	if env.Clients == nil {
		s.logger.Warn("clients.list: missing envelope key")
		return nil, unexpectedResponse()
	}
	return *env.Clients, nil
}

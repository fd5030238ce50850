// Package service wraps the CRM REST endpoints, one service per resource.
// Services only check request shape; every business rule lives on the server.
package service

import (
	"context"
	"net/http"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/client"
)

// Requester is satisfied by *client.APIClient.
type Requester interface {
	Do(ctx context.Context, call client.Call, out any) error
}

func unexpectedResponse() error {
	return &domain.ErrServer{Status: http.StatusOK, Message: domain.MsgUnexpectedResponse}
}

func requireID(id int64) error {
	if id <= 0 {
		return domain.NewClientValidation("id", "id is required")
	}
	return nil
}

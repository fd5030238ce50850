package service

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/client"
)

var authTracer = otel.Tracer("service/auth")

// AuthService exchanges credentials for a bearer token.
type AuthService struct {
	api    Requester
	logger *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(api Requester, logger *zap.Logger) *AuthService {
	return &AuthService{api: api, logger: logger}
}

// ============================================================
// Login (POST /auth/login)
// ============================================================

// Login accepts both the nested {token,user} and the flat
// {token,username,email,role} response shapes.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Credential, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email = strings.TrimSpace(email)
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "email is required"
	}
	if password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		return nil, &domain.ErrClientValidation{Fields: fields}
	}

	var resp domain.LoginResponse
	err := s.api.Do(ctx, client.Call{
		Op:     "auth.login",
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   domain.LoginRequest{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Token == "" {
		s.logger.Warn("login: response without token")
		return nil, unexpectedResponse()
	}

	s.logger.Info("login succeeded", zap.String("email", email))
	return &domain.Credential{Token: resp.Token, Identity: resp.Identity()}, nil
}

// ============================================================
// Me (GET /auth/me)
// ============================================================

// Me asks the backend who the current token belongs to.
func (s *AuthService) Me(ctx context.Context) (*domain.Identity, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Me")
	defer span.End()

	var id domain.Identity
	err := s.api.Do(ctx, client.Call{Op: "auth.me", Method: http.MethodGet, Path: "/auth/me"}, &id)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Package port defines the interfaces between the layers of the client.
// Following hexagonal architecture, view models depend on these ports rather
// than on the concrete HTTP services, and the session store depends on an
// abstract persistence backend.
package port

import (
	"context"

	"github.com/martiniano/crm-console/internal/domain"
)

// TokenSource yields the bearer token to attach to outgoing requests.
// An empty string means no credential is held.
type TokenSource interface {
	Token() string
}

// SessionPersistence is the durable storage behind the session store.
// Save and Clear must write the token and the identity together.
type SessionPersistence interface {
	Load(ctx context.Context) (*domain.Credential, error)
	Save(ctx context.Context, cred domain.Credential) error
	Clear(ctx context.Context) error
}

// Authenticator exchanges email + password for a credential.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*domain.Credential, error)
}

// LeadsAPI covers the /leads resource.
type LeadsAPI interface {
	List(ctx context.Context, q domain.LeadQuery) (*domain.LeadPage, error)
	Get(ctx context.Context, id int64) (*domain.Lead, error)
	Create(ctx context.Context, in domain.LeadInput) (*domain.Lead, error)
	Update(ctx context.Context, id int64, in domain.LeadInput) (*domain.Lead, error)
	UpdateStage(ctx context.Context, id int64, stage domain.Stage) (*domain.Lead, error)
	Delete(ctx context.Context, id int64) error
}

// LeadCreator is the public subset of LeadsAPI used by the contact form.
type LeadCreator interface {
	Create(ctx context.Context, in domain.LeadInput) (*domain.Lead, error)
}

// ClientsAPI covers the /clients resource.
type ClientsAPI interface {
	List(ctx context.Context) ([]domain.Client, error)
}

// ProjectsAPI covers the /projects resource. A zero status lists all projects.
type ProjectsAPI interface {
	List(ctx context.Context, status domain.ProjectStatus) ([]domain.Project, error)
}

// DashboardAPI covers the /dashboard endpoints.
type DashboardAPI interface {
	KPIs(ctx context.Context) (*domain.KPIs, error)
	LeadsByStage(ctx context.Context) ([]domain.StageCount, error)
}

// Navigator is the navigation layer. Navigate performs a hard redirect.
type Navigator interface {
	Navigate(route string)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

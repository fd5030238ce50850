// Package storage persists the session credential across process restarts.
// Two keys are written together: the raw token and the JSON-encoded identity.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/martiniano/crm-console/internal/domain"
)

// Persisted keys.
const (
	KeyToken = "auth_token"
	KeyUser  = "auth_user"
)

func encodePair(cred domain.Credential) (map[string]string, error) {
	user, err := json.Marshal(cred.Identity)
	if err != nil {
		return nil, fmt.Errorf("encode identity: %w", err)
	}
	return map[string]string{
		KeyToken: cred.Token,
		KeyUser:  string(user),
	}, nil
}

// decodePair returns ok=false when either key is missing, the token is
// empty, or the identity does not parse.
func decodePair(kv map[string]string) (*domain.Credential, bool) {
	token, hasToken := kv[KeyToken]
	user, hasUser := kv[KeyUser]
	if !hasToken || !hasUser || token == "" {
		return nil, false
	}

	var id domain.Identity
	if err := json.Unmarshal([]byte(user), &id); err != nil {
		return nil, false
	}
	return &domain.Credential{Token: token, Identity: id}, true
}

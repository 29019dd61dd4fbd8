// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bank-assistant/internal/common/errors"
)

// KeycloakClient introspects bearer tokens presented to the administrative routes.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	requiredRole string
	httpClient   *http.Client
}

// NewKeycloakClient creates a new instance of KeycloakClient. An empty requiredRole accepts any active token.
func NewKeycloakClient(baseURL, realm, clientID, clientSecret, requiredRole string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		requiredRole: requiredRole,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// TokenInfo holds the information returned by the token introspection endpoint.
type TokenInfo struct {
	Active      bool   `json:"active"`
	Scope       string `json:"scope,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	Username    string `json:"username,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	Exp         int64  `json:"exp,omitempty"`
	Sub         string `json:"sub,omitempty"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// HasRole reports whether the realm roles include role.
func (t *TokenInfo) HasRole(role string) bool {
	for _, r := range t.RealmAccess.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ValidateToken checks that an access token is active and carries the required role.
func (k *KeycloakClient) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	if token == "" {
		return nil, errors.NewUnauthorizedError("missing bearer token")
	}

	introspectURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, introspectURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeUnauthorized,
			Message:   "Failed to reach the identity provider",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUnauthorizedError(fmt.Sprintf("introspection returned status %d", resp.StatusCode))
	}

	var tokenInfo TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, errors.NewUnauthorizedError(fmt.Sprintf("decode introspection response: %v", err))
	}

	if !tokenInfo.Active {
		return nil, errors.NewUnauthorizedError("token is expired, revoked or malformed")
	}

	if k.requiredRole != "" && !tokenInfo.HasRole(k.requiredRole) {
		return nil, errors.NewUnauthorizedError(fmt.Sprintf("token lacks role %q", k.requiredRole))
	}

	return &tokenInfo, nil
}

// Package google implements the identity provider client for Google's
// server-side authorization code flow.
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	googleendpoint "golang.org/x/oauth2/google"

	"bazaar/config"
	"bazaar/internal/domain/entity"
	"bazaar/internal/domain/service"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// userInfo is the subset of the Google userinfo response we consume.
type userInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// ProviderClient talks to Google. State and PKCE verifiers are persisted by
// the caller, so the client itself holds no per-flow state.
type ProviderClient struct {
	oauth *oauth2.Config
}

// NewProviderClient creates the Google provider client.
func NewProviderClient(cfg *config.Config) (service.ProviderClient, error) {
	if cfg.GoogleOAuth == nil || cfg.GoogleOAuth.ClientID == "" {
		return nil, errors.New("google oauth client id must be provided")
	}

	return &ProviderClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleOAuth.ClientID,
			ClientSecret: cfg.GoogleOAuth.ClientSecret,
			RedirectURL:  cfg.GoogleOAuth.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleendpoint.Endpoint,
		},
	}, nil
}

// GenerateVerifier produces a fresh PKCE code verifier.
func GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL builds the authorization URL carrying the state and the S256
// challenge for the given verifier.
func (c *ProviderClient) AuthCodeURL(state, pkceVerifier string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(pkceVerifier),
	)
}

// Exchange trades the authorization code for tokens, completes the PKCE
// handshake, and fetches the normalized profile.
func (c *ProviderClient) Exchange(ctx context.Context, code, pkceVerifier string) (*service.ExternalProfile, error) {
	token, err := c.oauth.Exchange(ctx, code, oauth2.VerifierOption(pkceVerifier))
	if err != nil {
		return nil, errors.Wrap(err, "exchange authorization code")
	}

	client := c.oauth.Client(ctx, token)
	client.Timeout = 10 * time.Second

	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, errors.Wrap(err, "fetch userinfo")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return nil, errors.Errorf("userinfo returned %d: %s", resp.StatusCode, string(body))
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.Wrap(err, "decode userinfo")
	}

	if info.ID == "" {
		return nil, errors.New("userinfo missing subject id")
	}

	return &service.ExternalProfile{
		Provider:       entity.ProviderTypeGoogle,
		ProviderUserID: info.ID,
		Email:          info.Email,
		EmailVerified:  info.VerifiedEmail,
		Name:           info.Name,
		Picture:        info.Picture,
	}, nil
}

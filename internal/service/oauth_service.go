package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/config"
	domainErrors "github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/errors"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/models"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/utils/metrics"
)

// maxUsernameProbes bounds the collision-suffix search when deriving a
// username from an OAuth email.
const maxUsernameProbes = 100

// providerTimeout bounds every round trip to an identity provider. A
// provider that accepts the connection but never answers must surface as an
// exchange/profile failure, not a hung request.
const providerTimeout = 10 * time.Second

// providerTokens is the relevant subset of a provider's token endpoint
// response.
type providerTokens struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

// OAuthService exchanges authorization codes with federated identity
// providers and maps the resulting profiles onto local accounts. Session
// issuance is delegated to AuthService so federated logins obey the same
// single-session rule as password logins.
type OAuthService struct {
	providers map[string]config.OAuthProviderConfig
	accounts  AccountRepository
	auth      *AuthService
	client    *http.Client
	logger    *zap.Logger
}

func NewOAuthService(
	providers map[string]config.OAuthProviderConfig,
	accounts AccountRepository,
	auth *AuthService,
	logger *zap.Logger,
) *OAuthService {
	return &OAuthService{
		providers: providers,
		accounts:  accounts,
		auth:      auth,
		client: &http.Client{
			Timeout: providerTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		logger: logger,
	}
}

// AuthorizationURL builds the provider consent-screen URL the frontend
// redirects the user to.
func (s *OAuthService) AuthorizationURL(provider string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: unknown oauth provider %q", domainErrors.ErrInvalidRequest, provider)
	}

	q := url.Values{}
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", p.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(p.Scopes, " "))
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")

	return p.AuthURL + "?" + q.Encode(), nil
}

// Login runs the full code-for-session exchange against a provider.
func (s *OAuthService) Login(ctx context.Context, provider, code string) (result *models.AuthResult, err error) {
	defer func() { metrics.RecordOperation("oauth_login", err) }()

	p, ok := s.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown oauth provider %q", domainErrors.ErrInvalidRequest, provider)
	}

	tokens, err := s.exchangeCode(ctx, p, code)
	if err != nil {
		return nil, err
	}

	profile, err := s.fetchProfile(ctx, p, tokens)
	if err != nil {
		return nil, err
	}

	account, err := s.linkOrCreateAccount(ctx, profile)
	if err != nil {
		return nil, err
	}

	return s.auth.issueSession(ctx, account.UserID.String(), account.Username)
}

// exchangeCode trades the one-time authorization code for provider tokens.
func (s *OAuthService) exchangeCode(ctx context.Context, p config.OAuthProviderConfig, code string) (*providerTokens, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.ClientID)
	form.Set("client_secret", p.ClientSecret)
	form.Set("redirect_uri", p.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrOAuthExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrOAuthExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Warn("OAuth code exchange rejected",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil, domainErrors.ErrOAuthExchangeFailed
	}

	var tokens providerTokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrOAuthExchangeFailed, err)
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access_token", domainErrors.ErrOAuthExchangeFailed)
	}
	return &tokens, nil
}

// fetchProfile loads the user's identity from the provider's userinfo
// endpoint. An identity without an email cannot be linked to an account.
func (s *OAuthService) fetchProfile(ctx context.Context, p config.OAuthProviderConfig, tokens *providerTokens) (*models.OAuthProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrOAuthProfileFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrOAuthProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", domainErrors.ErrOAuthProfileFailed, resp.StatusCode)
	}

	var profile models.OAuthProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrOAuthProfileFailed, err)
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", domainErrors.ErrOAuthProfileFailed)
	}
	return &profile, nil
}

// linkOrCreateAccount resolves the federated identity to a local account,
// creating a password-less one on first login.
func (s *OAuthService) linkOrCreateAccount(ctx context.Context, profile *models.OAuthProfile) (*models.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, profile.Email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}

	username, err := s.availableUsername(ctx, profile.Email)
	if err != nil {
		return nil, err
	}

	firstName := profile.GivenName
	if firstName == "" {
		firstName = username
	}
	newAccount := models.NewAccount{
		Username: username,
		Email:    &profile.Email,
		Profile: models.Profile{
			FirstName: firstName,
		},
	}
	if profile.FamilyName != "" {
		familyName := profile.FamilyName
		newAccount.Profile.SecondName = &familyName
	}
	if profile.PictureURL != "" {
		pictureURL := profile.PictureURL
		newAccount.Profile.AvatarURL = &pictureURL
	}

	created, err := s.accounts.Create(ctx, newAccount)
	if err != nil {
		// Concurrent first login with the same email; the other request won.
		if errors.Is(err, domainErrors.ErrAlreadyExists) {
			return s.accounts.FindByEmail(ctx, profile.Email)
		}
		return nil, err
	}
	return created, nil
}

// availableUsername derives a username from the email local part and probes
// numeric suffixes until a free one is found.
func (s *OAuthService) availableUsername(ctx context.Context, email string) (string, error) {
	base := email
	if at := strings.Index(email, "@"); at > 0 {
		base = email[:at]
	}
	base = sanitizeUsername(base)
	if base == "" {
		base = "user"
	}

	for i := 0; i <= maxUsernameProbes; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		_, err := s.accounts.FindByUsername(ctx, candidate)
		if errors.Is(err, domainErrors.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free username derived from %q after %d attempts", base, maxUsernameProbes)
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == '.' || r == '-':
			b.WriteRune('_')
		}
	}
	return b.String()
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/config"
	domainErrors "github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/errors"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/models"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/events/kafka"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/repository/memory"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/security"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/service"
)

// stubAccountRepo backs handler tests with an in-memory account table.
type stubAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*models.Account)}
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email != nil && *a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[username]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

func (r *stubAccountRepo) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[username]; ok {
		return true, nil
	}
	for _, a := range r.accounts {
		if a.Email != nil && *a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAccountRepo) Create(_ context.Context, in models.NewAccount) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[in.Username]; ok {
		return nil, domainErrors.ErrAlreadyExists
	}
	account := &models.Account{
		UserID:       uuid.New(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.accounts[in.Username] = account
	copied := *account
	return &copied, nil
}

type AuthHandlerSuite struct {
	suite.Suite
	engine   *gin.Engine
	provider *httptest.Server
}

func (s *AuthHandlerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	jwtCfg := &config.JWTConfig{
		AccessTokenSecret:  "handler-access-secret",
		RefreshTokenSecret: "handler-refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		Issuer:             "auth-service-test",
	}
	hasher, err := security.NewPasswordHasher(config.PasswordHashConfig{
		Memory: 8192, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(s.T(), err)

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("code") == "bad-code" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "provider-token"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"email":      "fed@example.com",
			"given_name": "Fed",
		})
	})
	s.provider = httptest.NewServer(mux)

	repo := newStubAccountRepo()
	codec := security.NewTokenCodec(jwtCfg)
	sessions := memory.NewSessionStore()
	logger := zap.NewNop()
	auth := service.NewAuthService(repo, sessions, codec, hasher, kafka.NoopProducer{}, logger)
	oauth := service.NewOAuthService(map[string]config.OAuthProviderConfig{
		"google": {
			ClientID:    "client",
			RedirectURL: "https://app.example.com/cb",
			AuthURL:     s.provider.URL + "/authorize",
			TokenURL:    s.provider.URL + "/token",
			UserInfoURL: s.provider.URL + "/userinfo",
			Scopes:      []string{"email"},
		},
	}, repo, auth, logger)

	handler := NewAuthHandler(auth, oauth, jwtCfg.RefreshTokenTTL, logger)
	s.engine = NewRouter(RouterConfig{Handler: handler, Logger: logger})
}

func (s *AuthHandlerSuite) TearDownTest() {
	s.provider.Close()
}

func (s *AuthHandlerSuite) do(method, path string, body interface{}, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *AuthHandlerSuite) decodeAuthResult(rec *httptest.ResponseRecorder) models.AuthResult {
	var result models.AuthResult
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func (s *AuthHandlerSuite) register(username, email, password string) (models.AuthResult, *httptest.ResponseRecorder) {
	rec := s.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"username":  username,
		"email":     email,
		"password":  password,
		"firstName": "Test",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return s.decodeAuthResult(rec), rec
}

func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	return nil
}

func (s *AuthHandlerSuite) TestRegister() {
	result, rec := s.register("bob", "bob@example.com", "secret123")
	s.NotEmpty(result.AccessToken)
	s.NotEmpty(result.RefreshToken)
	s.Equal("bob", result.User.Username)

	cookie := refreshCookie(rec)
	s.Require().NotNil(cookie)
	s.Equal(result.RefreshToken, cookie.Value)
	s.True(cookie.HttpOnly)
	s.Equal(int((7 * 24 * time.Hour).Seconds()), cookie.MaxAge)
}

func (s *AuthHandlerSuite) TestRegisterValidation() {
	rec := s.do(http.MethodPost, "/api/v1/auth/register", gin.H{"username": "x"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *AuthHandlerSuite) TestRegisterConflict() {
	s.register("bob", "bob@example.com", "secret123")
	rec := s.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"username":  "bob",
		"email":     "bob2@example.com",
		"password":  "secret123",
		"firstName": "Test",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "already in use")
}

func (s *AuthHandlerSuite) TestLogin() {
	s.register("bob", "bob@example.com", "secret123")

	rec := s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "bob@example.com", "password": "secret123"})
	s.Equal(http.StatusOK, rec.Code)
	s.NotNil(refreshCookie(rec))

	rec = s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "bob@example.com", "password": "wrong"})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AuthHandlerSuite) TestRefreshFromCookie() {
	result, _ := s.register("bob", "bob@example.com", "secret123")

	rec := s.do(http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: result.RefreshToken})
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	rotated := s.decodeAuthResult(rec)
	s.NotEqual(result.RefreshToken, rotated.RefreshToken)

	// The consumed token no longer refreshes.
	rec = s.do(http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: result.RefreshToken})
	})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *AuthHandlerSuite) TestRefreshBodyTakesPrecedence() {
	result, _ := s.register("bob", "bob@example.com", "secret123")

	// A stale body token must fail even when a valid cookie is attached.
	rotated := s.do(http.MethodPost, "/api/v1/auth/refresh", gin.H{"refresh_token_id": result.RefreshToken})
	s.Require().Equal(http.StatusOK, rotated.Code)

	rec := s.do(http.MethodPost, "/api/v1/auth/refresh", gin.H{"refresh_token_id": result.RefreshToken}, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: s.decodeAuthResult(rotated).RefreshToken})
	})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *AuthHandlerSuite) TestRefreshMissingToken() {
	rec := s.do(http.MethodPost, "/api/v1/auth/refresh", nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *AuthHandlerSuite) TestValidate() {
	result, _ := s.register("bob", "bob@example.com", "secret123")

	rec := s.do(http.MethodPost, "/api/v1/auth/validate", gin.H{"accessToken": result.AccessToken})
	s.Require().Equal(http.StatusOK, rec.Code)

	// The response is the decoded token payload, registered claims included.
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("bob", body["username"])
	s.Equal(result.User.ID, body["user_id"])
	s.Equal("access", body["token_type"])
	s.NotEmpty(body["jti"])
	s.NotEmpty(body["exp"])
	s.NotEmpty(body["iat"])

	rec = s.do(http.MethodPost, "/api/v1/auth/validate", gin.H{"accessToken": "garbage"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Contains(rec.Body.String(), `"valid":false`)
}

func (s *AuthHandlerSuite) TestLogout() {
	result, _ := s.register("bob", "bob@example.com", "secret123")

	rec := s.do(http.MethodPost, "/api/v1/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: result.RefreshToken})
		r.Header.Set("Authorization", "Bearer "+result.AccessToken)
	})
	s.Equal(http.StatusOK, rec.Code)

	cookie := refreshCookie(rec)
	s.Require().NotNil(cookie)
	s.True(cookie.MaxAge < 0)

	// Both halves of the session are dead now.
	rec = s.do(http.MethodPost, "/api/v1/auth/refresh", gin.H{"refresh_token_id": result.RefreshToken})
	s.Equal(http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodPost, "/api/v1/auth/validate", gin.H{"accessToken": result.AccessToken})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AuthHandlerSuite) TestLogoutWithoutSession() {
	rec := s.do(http.MethodPost, "/api/v1/auth/logout", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *AuthHandlerSuite) TestOAuthInitiate() {
	rec := s.do(http.MethodGet, "/api/v1/auth/oauth/google/initiate", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var body map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.True(strings.HasPrefix(body["url"], s.provider.URL+"/authorize?"))

	rec = s.do(http.MethodGet, "/api/v1/auth/oauth/myspace/initiate", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *AuthHandlerSuite) TestOAuthExchangeCode() {
	rec := s.do(http.MethodPost, "/api/v1/auth/oauth/google/exchange-code", gin.H{"code": "auth-code"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	result := s.decodeAuthResult(rec)
	s.Equal("fed", result.User.Username)
	s.NotNil(refreshCookie(rec))

	rec = s.do(http.MethodPost, "/api/v1/auth/oauth/google/exchange-code", gin.H{})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *AuthHandlerSuite) TestOAuthExchangeCodeRejected() {
	rec := s.do(http.MethodPost, "/api/v1/auth/oauth/google/exchange-code", gin.H{"code": "bad-code"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "authorization code rejected")
}

func (s *AuthHandlerSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

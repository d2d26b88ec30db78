package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"

	apperrors "scifind-backend/internal/errors"
	"scifind-backend/internal/models"
	"scifind-backend/internal/userstore"
)

// CookieName is the default session cookie name; overridable via Config.Session.
const CookieName = "scifind_session"

// stateTTL bounds how long an in-flight OAuth "pending" state (spec.md §4.8's
// anonymous -> pending transition) is honored before the callback rejects it.
const stateTTL = 10 * time.Minute

// UserInfo is the subset of the provider's userinfo response the gateway consumes.
type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Gateway is C8: the OAuth authorization-code flow plus the session cookie it issues.
type Gateway struct {
	oauthCfg     oauth2.Config
	userInfoURL  string
	spaRedirect  string
	cookieName   string
	sessionTTL   time.Duration
	secureCookie bool

	sessions Store
	users    userstore.Store
	codec    *securecookie.SecureCookie
	pending  *pendingStates
	logger   *slog.Logger
}

// Config configures a Gateway; fields map 1:1 onto Config.OAuth / Config.Session.
type Config struct {
	AuthURL       string
	TokenURL      string
	UserInfoURL   string
	ClientID      string
	ClientSecret  string
	RedirectBase  string
	SPARedirect   string
	Scopes        []string
	SigningSecret string
	CookieName    string
	SessionTTL    time.Duration
	SecureCookie  bool
}

// New constructs a Gateway. SigningSecret MUST be at least 32 bytes; it is used
// directly as the securecookie hash key.
func New(cfg Config, sessions Store, users userstore.Store, logger *slog.Logger) (*Gateway, error) {
	if len(cfg.SigningSecret) < 32 {
		return nil, apperrors.NewInternalError("session signing secret must be at least 32 bytes", nil)
	}
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = CookieName
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	return &Gateway{
		oauthCfg: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectBase + "/api/auth/callback",
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL:  cfg.UserInfoURL,
		spaRedirect:  cfg.SPARedirect,
		cookieName:   cookieName,
		sessionTTL:   ttl,
		secureCookie: cfg.SecureCookie,
		sessions:     sessions,
		users:        users,
		codec:        securecookie.New([]byte(cfg.SigningSecret), nil),
		pending:      newPendingStates(),
		logger:       logger,
	}, nil
}

// AuthURL builds the provider's authorization URL for a freshly generated state,
// registering the state as pending so Callback can validate it (spec.md §4.8's
// anonymous -> pending transition).
func (g *Gateway) AuthURL() (string, error) {
	state, err := randomToken()
	if err != nil {
		return "", err
	}
	g.pending.add(state, stateTTL)
	return g.oauthCfg.AuthCodeURL(state), nil
}

// ExchangeAndLogin validates state, exchanges code for a token, fetches userinfo,
// upserts a User, and returns a new Session plus the encoded cookie value.
func (g *Gateway) ExchangeAndLogin(ctx context.Context, state, code string) (*Session, string, error) {
	if !g.pending.consume(state) {
		return nil, "", apperrors.NewUnauthenticatedError("invalid or expired oauth state")
	}

	token, err := g.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return nil, "", apperrors.NewUnauthenticatedError("oauth code exchange failed")
	}

	info, err := g.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, "", err
	}

	user, err := g.users.EnsureUser(ctx, models.User{
		Subject: info.Subject,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	})
	if err != nil {
		return nil, "", err
	}

	sess, err := NewSession(user.ID, user.Email, user.Name, g.sessionTTL)
	if err != nil {
		return nil, "", apperrors.NewInternalError("failed to create session", err)
	}
	if err := g.sessions.Create(ctx, sess); err != nil {
		return nil, "", err
	}

	encoded, err := g.codec.Encode(g.cookieName, sess.ID)
	if err != nil {
		return nil, "", apperrors.NewInternalError("failed to sign session cookie", err)
	}
	return sess, encoded, nil
}

func (g *Gateway) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	client := g.oauthCfg.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build userinfo request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamTransientError("userinfo request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUpstreamTransientError("failed to read userinfo response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUnauthenticatedError("identity provider rejected userinfo request")
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, apperrors.NewSerializationError("failed to decode userinfo response", g.userInfoURL)
	}
	return &info, nil
}

// ResolveCookie decodes a signed cookie value back to the live Session it names,
// sliding its expiry forward (30-day sliding window per spec.md §4.8).
func (g *Gateway) ResolveCookie(ctx context.Context, cookieValue string) (*Session, error) {
	var sessionID string
	if err := g.codec.Decode(g.cookieName, cookieValue, &sessionID); err != nil {
		return nil, apperrors.NewUnauthenticatedError("invalid session cookie")
	}
	sess, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, apperrors.NewUnauthenticatedError("session not found or expired")
	}
	_ = g.sessions.Touch(ctx, sessionID, time.Now().Add(g.sessionTTL))
	return sess, nil
}

// Encode signs a session id for use as a cookie value.
func (g *Gateway) Encode(sessionID string) (string, error) {
	return g.codec.Encode(g.cookieName, sessionID)
}

// CookieName returns the configured cookie name.
func (g *Gateway) CookieName() string { return g.cookieName }

// Secure reports whether the cookie should carry the Secure attribute.
func (g *Gateway) Secure() bool { return g.secureCookie }

// SPARedirect returns the configured post-login redirect target.
func (g *Gateway) SPARedirect() string { return g.spaRedirect }

// Logout deletes the session identified by the cookie.
func (g *Gateway) Logout(ctx context.Context, cookieValue string) error {
	var sessionID string
	if err := g.codec.Decode(g.cookieName, cookieValue, &sessionID); err != nil {
		return nil
	}
	return g.sessions.Delete(ctx, sessionID)
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

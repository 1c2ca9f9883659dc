package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/nhle/notification-inbox/internal/credential"
	"github.com/nhle/notification-inbox/internal/gateway"
	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/validate"
)

// refreshWindow is how close to expiry a token is refreshed.
const refreshWindow = time.Minute

// Config configures a Client.
type Config struct {
	// BaseURL is the accounts API root, e.g.
	// https://identitytoolkit.googleapis.com/v1.
	BaseURL string
	// TokenURL is the token exchange root, e.g.
	// https://securetoken.googleapis.com/v1.
	TokenURL string
	APIKey   string

	HTTPClient *http.Client
	Logger     *slog.Logger
	// Vault persists the refresh token between runs. Optional.
	Vault credential.Vault
	// Now is used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// session is the signed-in state.
type session struct {
	principal    model.Principal
	idToken      string
	refreshToken string
	expiresAt    time.Time
}

// Client signs users in against a password-based identity provider and
// hands out short-lived bearer tokens for the notification backend.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	session *session

	refreshes singleflight.Group
}

// New creates a signed-out client.
func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.TokenURL = strings.TrimRight(cfg.TokenURL, "/")
	return &Client{cfg: cfg, logger: cfg.Logger.With("component", "identity")}
}

var _ gateway.TokenSource = (*Client)(nil)

// accountResponse is returned by sign-in and account update.
type accountResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// refreshResponse is returned by the token exchange.
type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// idClaims are the id token claims the client reads. The signature is not
// checked here; the backend verifies every token it receives.
type idClaims struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (model.Principal, error) {
	resp, err := c.signInWithPassword(ctx, email, password)
	if err != nil {
		return model.Principal{}, err
	}

	s := c.newSession(resp.IDToken, resp.RefreshToken, resp.ExpiresIn, resp.LocalID, resp.Email)
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.storeRefreshToken(s)
	c.logger.Info("signed in", "principal", s.principal.ID)
	return s.principal, nil
}

// SignUp registers a new account with email and password and signs it in.
// The password rules match those of ChangePassword.
func (c *Client) SignUp(ctx context.Context, email, password, confirm string) (model.Principal, error) {
	if err := checkRegistration(registration{Email: email, Password: password, Confirm: confirm}); err != nil {
		return model.Principal{}, err
	}

	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var resp accountResponse
	if err := c.post(ctx, "sign up", c.cfg.BaseURL+"/accounts:signUp", body, nil, &resp); err != nil {
		return model.Principal{}, err
	}
	if resp.Email == "" {
		resp.Email = email
	}

	s := c.newSession(resp.IDToken, resp.RefreshToken, resp.ExpiresIn, resp.LocalID, resp.Email)
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.storeRefreshToken(s)
	c.logger.Info("account created", "principal", s.principal.ID)
	return s.principal, nil
}

// Restore signs in with the refresh token stored for email.
func (c *Client) Restore(ctx context.Context, email string) (model.Principal, error) {
	if c.cfg.Vault == nil {
		return model.Principal{}, ErrNotSignedIn
	}
	refresh, err := c.cfg.Vault.Get(credential.RefreshTokenKey(email))
	if err != nil {
		return model.Principal{}, fmt.Errorf("restoring session: %w", err)
	}

	s, err := c.exchange(ctx, refresh, model.Principal{Email: email})
	if err != nil {
		if HasCode(err, CodeInvalidRefresh) || HasCode(err, CodeTokenExpired) {
			_ = c.cfg.Vault.Delete(credential.RefreshTokenKey(email))
		}
		return model.Principal{}, err
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.storeRefreshToken(s)
	return s.principal, nil
}

// Principal returns the signed-in user, or the zero Principal.
func (c *Client) Principal() model.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return model.Principal{}
	}
	return c.session.principal
}

// Token returns a valid id token, refreshing it when it is about to expire.
// The exchange runs without holding the session lock, and concurrent
// callers share one exchange. A refresh that finishes after the session was
// replaced or signed out is discarded.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	cur := c.session
	c.mu.Unlock()

	if cur == nil {
		return "", &gateway.AuthError{Message: "not signed in"}
	}
	if c.cfg.Now().Add(refreshWindow).Before(cur.expiresAt) {
		return cur.idToken, nil
	}

	v, err, _ := c.refreshes.Do(cur.refreshToken, func() (any, error) {
		return c.exchange(ctx, cur.refreshToken, cur.principal)
	})
	if err != nil {
		var ie *Error
		if errors.As(err, &ie) && ie.StatusCode >= 400 && ie.StatusCode < 500 {
			return "", &gateway.AuthError{StatusCode: http.StatusUnauthorized, Message: ie.Code}
		}
		return "", err
	}
	next := v.(*session)

	c.mu.Lock()
	installed := false
	switch c.session {
	case cur:
		c.session = next
		installed = true
	case next:
		// installed by a caller that shared the exchange
	default:
		c.mu.Unlock()
		return "", &gateway.AuthError{Message: "session changed during token refresh"}
	}
	c.mu.Unlock()

	if installed {
		c.logger.Debug("token refreshed", "expires_at", next.expiresAt)
		c.storeRefreshToken(next)
	}
	return next.idToken, nil
}

// passwordChange is validated before any request is made.
type passwordChange struct {
	Current string `validate:"required"`
	New     string `validate:"required,min=6"`
	Confirm string `validate:"eqfield=New"`
}

// ChangePassword re-authenticates with current and then sets next as the
// new password. confirm must equal next.
func (c *Client) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if err := checkPasswordChange(passwordChange{Current: current, New: next, Confirm: confirm}); err != nil {
		return err
	}

	principal := c.Principal()
	if principal.IsZero() {
		return ErrNotSignedIn
	}

	fresh, err := c.signInWithPassword(ctx, principal.Email, current)
	if err != nil {
		return fmt.Errorf("re-authenticating: %w", err)
	}

	var resp accountResponse
	body := map[string]any{
		"idToken":           fresh.IDToken,
		"password":          next,
		"returnSecureToken": true,
	}
	if err := c.post(ctx, "update password", c.cfg.BaseURL+"/accounts:update", body, nil, &resp); err != nil {
		return err
	}

	if resp.IDToken != "" {
		s := c.newSession(resp.IDToken, resp.RefreshToken, resp.ExpiresIn, principal.ID, principal.Email)
		c.mu.Lock()
		c.session = s
		c.mu.Unlock()
		c.storeRefreshToken(s)
	}
	c.logger.Info("password changed", "principal", principal.ID)
	return nil
}

// SignOut forgets the session and removes the stored refresh token.
func (c *Client) SignOut() error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil || c.cfg.Vault == nil {
		return nil
	}
	if err := c.cfg.Vault.Delete(credential.RefreshTokenKey(s.principal.Email)); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

// registration is validated before the account is requested.
type registration struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Confirm  string `validate:"eqfield=Password"`
}

func checkRegistration(r registration) error {
	err := validate.Raw(r)
	if err == nil {
		return nil
	}
	fields := validate.Errors(err)
	if fields == nil {
		return err
	}
	switch fields[0].Field() {
	case "Email":
		return &ValidationError{Message: "Enter a valid email address."}
	case "Password":
		return &ValidationError{Message: "Password must be at least 6 characters long."}
	default:
		return &ValidationError{Message: "Passwords do not match."}
	}
}

func checkPasswordChange(pc passwordChange) error {
	err := validate.Raw(pc)
	if err == nil {
		return nil
	}
	fields := validate.Errors(err)
	if fields == nil {
		return err
	}
	failed := make(map[string]bool, len(fields))
	for _, fe := range fields {
		failed[fe.Field()] = true
	}
	switch {
	case failed["Confirm"]:
		return &ValidationError{Message: "New password and confirmation do not match."}
	case failed["New"]:
		return &ValidationError{Message: "New password must be at least 6 characters long."}
	default:
		return &ValidationError{Message: "Enter your current password."}
	}
}

func (c *Client) signInWithPassword(ctx context.Context, email, password string) (*accountResponse, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var resp accountResponse
	if err := c.post(ctx, "sign in", c.cfg.BaseURL+"/accounts:signInWithPassword", body, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// exchange trades a refresh token for a new id token.
func (c *Client) exchange(ctx context.Context, refreshToken string, known model.Principal) (*session, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	var resp refreshResponse
	if err := c.post(ctx, "refresh token", c.cfg.TokenURL+"/token", nil, form, &resp); err != nil {
		return nil, err
	}
	uid := resp.UserID
	if uid == "" {
		uid = known.ID
	}
	return c.newSession(resp.IDToken, resp.RefreshToken, resp.ExpiresIn, uid, known.Email), nil
}

// newSession derives principal and expiry from the id token, falling back to
// the response fields when the token cannot be decoded.
func (c *Client) newSession(idToken, refreshToken, expiresIn, uid, email string) *session {
	s := &session{
		principal:    model.Principal{ID: uid, Email: email},
		idToken:      idToken,
		refreshToken: refreshToken,
	}

	var claims idClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		c.logger.Warn("could not decode id token", "error", err)
	} else {
		if claims.ExpiresAt != nil {
			s.expiresAt = claims.ExpiresAt.Time
		}
		if s.principal.ID == "" {
			s.principal.ID = claims.UserID
			if s.principal.ID == "" {
				s.principal.ID = claims.Subject
			}
		}
		if s.principal.Email == "" {
			s.principal.Email = claims.Email
		}
	}

	if s.expiresAt.IsZero() {
		secs, _ := strconv.Atoi(expiresIn)
		s.expiresAt = c.cfg.Now().Add(time.Duration(secs) * time.Second)
	}
	return s
}

func (c *Client) storeRefreshToken(s *session) {
	if c.cfg.Vault == nil || s.refreshToken == "" || s.principal.Email == "" {
		return
	}
	if err := c.cfg.Vault.Set(credential.RefreshTokenKey(s.principal.Email), s.refreshToken); err != nil {
		c.logger.Warn("storing refresh token", "error", err)
	}
}

// post sends either a JSON body or a form and decodes the JSON response.
func (c *Client) post(ctx context.Context, op, endpoint string, body any, form url.Values, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%s: parsing url: %w", op, err)
	}
	if c.cfg.APIKey != "" {
		q := u.Query()
		q.Set("key", c.cfg.APIKey)
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	contentType := "application/json"
	if form != nil {
		reader = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	} else {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshaling request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ie := &Error{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var eb errorResponse
		if json.Unmarshal(data, &eb) == nil && eb.Error.Message != "" {
			ie.Message = eb.Error.Message
			ie.Code = errorCode(eb.Error.Message)
		}
		return ie
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

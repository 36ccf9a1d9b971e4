package googlechat

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// UserScopes are requested from users granting delegated access.
var UserScopes = []string{
	"https://www.googleapis.com/auth/chat.messages.readonly",
	"https://www.googleapis.com/auth/chat.spaces.readonly",
}

// AppScopes are used with the app's own service account credentials.
var AppScopes = []string{
	"https://www.googleapis.com/auth/chat.bot",
}

// ErrInvalidState is returned by Complete when the state was not produced by
// AuthorizationURL with the same key.
var ErrInvalidState = errors.New("invalid oauth state")

// A TokenStore persists users' tokens.
type TokenStore interface {
	SaveToken(ctx context.Context, user string, tok *oauth2.Token) error
	Token(ctx context.Context, user string) (*oauth2.Token, error)
	DeleteToken(ctx context.Context, user string) error
}

// Authorizer runs the OAuth flow granting the app delegated access, and
// provides clients authorized with the resulting tokens.
type Authorizer struct {
	Config *oauth2.Config
	// StateKey signs the state parameter.
	StateKey []byte
	Tokens   TokenStore
}

// NewAuthorizer returns an Authorizer for the OAuth client identified by
// clientID and secret, redirecting back to redirectURL.
func NewAuthorizer(clientID, secret, redirectURL string, stateKey []byte, tokens TokenStore) *Authorizer {
	return &Authorizer{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: secret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       UserScopes,
		},
		StateKey: stateKey,
		Tokens:   tokens,
	}
}

type state struct {
	User     string `json:"u"`
	Redirect string `json:"r"`
}

// AuthorizationURL returns the consent page URL for user. After consent the
// user ends up at redirect. The URL depends only on its arguments.
func (a *Authorizer) AuthorizationURL(user, redirect string) string {
	return a.Config.AuthCodeURL(a.encodeState(state{User: user, Redirect: redirect}),
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("login_hint", strings.TrimPrefix(user, "users/")),
	)
}

func (a *Authorizer) encodeState(s state) string {
	// Marshalling a struct of strings cannot fail.
	b, _ := json.Marshal(s)
	payload := base64.RawURLEncoding.EncodeToString(b)
	return payload + "." + base64.RawURLEncoding.EncodeToString(a.sign(payload))
}

func (a *Authorizer) decodeState(v string) (state, error) {
	payload, sig, ok := strings.Cut(v, ".")
	if !ok {
		return state{}, ErrInvalidState
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(got, a.sign(payload)) {
		return state{}, ErrInvalidState
	}
	b, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return state{}, ErrInvalidState
	}
	var s state
	if err := json.Unmarshal(b, &s); err != nil || s.User == "" {
		return state{}, ErrInvalidState
	}
	return s, nil
}

func (a *Authorizer) sign(payload string) []byte {
	mac := hmac.New(sha256.New, a.StateKey)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// Complete finishes the flow started with AuthorizationURL: it verifies
// rawState, exchanges code for a token and stores it. It returns the redirect
// target passed to AuthorizationURL.
func (a *Authorizer) Complete(ctx context.Context, code, rawState string) (string, error) {
	s, err := a.decodeState(rawState)
	if err != nil {
		return "", err
	}
	tok, err := a.Config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if err := a.Tokens.SaveToken(ctx, s.User, tok); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return s.Redirect, nil
}

// UserClient returns a client authorized as user. Expired access tokens are
// refreshed transparently.
func (a *Authorizer) UserClient(ctx context.Context, user string) (*http.Client, error) {
	tok, err := a.Tokens.Token(ctx, user)
	if err != nil {
		return nil, err
	}
	return a.Config.Client(ctx, tok), nil
}

// Forget deletes the stored token of user.
func (a *Authorizer) Forget(ctx context.Context, user string) error {
	return a.Tokens.DeleteToken(ctx, user)
}

// AppClient returns a client authorized with the app's service account,
// found through Application Default Credentials.
func AppClient(ctx context.Context) (*http.Client, error) {
	cli, err := google.DefaultClient(ctx, AppScopes...)
	if err != nil {
		return nil, fmt.Errorf("default credentials: %w", err)
	}
	return cli, nil
}

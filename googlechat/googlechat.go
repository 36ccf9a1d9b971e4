// Package googlechat talks to the Google Chat and Workspace Events REST APIs
// with either the app's own credentials or a user's delegated credentials.
package googlechat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/GetStream/chat-assistant-backend/chatapp"
	"golang.org/x/oauth2"
)

// UserClients provides HTTP clients authorized with a user's delegated
// credentials.
type UserClients interface {
	// UserClient returns a client for user, or a
	// *chatapp.MissingCredentialError when the user never authorized the app.
	UserClient(ctx context.Context, user string) (*http.Client, error)
	// Forget drops the stored credentials of user after they were rejected.
	Forget(ctx context.Context, user string) error
}

// APIError is returned for responses with a non-2xx status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Body)
}

func statusIs(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

// do sends a JSON request and decodes the JSON response into out, if not nil.
func do(ctx context.Context, cli *http.Client, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := cli.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// delegated runs fn with a client for user. Credentials rejected by the API
// or by the token endpoint are forgotten and reported as a missing credential.
func delegated(ctx context.Context, users UserClients, user string, fn func(cli *http.Client) error) error {
	cli, err := users.UserClient(ctx, user)
	if err != nil {
		return err
	}

	err = fn(cli)
	if revoked(err) {
		if ferr := users.Forget(ctx, user); ferr != nil {
			return errors.Join(err, ferr)
		}
		return fmt.Errorf("%w: %w", &chatapp.MissingCredentialError{UserID: user}, err)
	}
	return err
}

// revoked reports whether err means the user's grant is no longer valid.
// Token endpoint failures other than a rejected grant are not.
func revoked(err error) bool {
	if statusIs(err, http.StatusUnauthorized) {
		return true
	}
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	if re.ErrorCode == "invalid_grant" {
		return true
	}
	return re.Response != nil &&
		(re.Response.StatusCode == http.StatusBadRequest || re.Response.StatusCode == http.StatusUnauthorized)
}

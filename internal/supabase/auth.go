package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AuthUser is the subset of the GoTrue user record the bot cares about.
type AuthUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
}

// DisplayName returns the metadata name, falling back to the email address.
func (u *AuthUser) DisplayName() string {
	if u.UserMetadata.Name != "" {
		return u.UserMetadata.Name
	}
	return u.Email
}

// SignInResult is a successful password sign-in.
type SignInResult struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int      `json:"expires_in"`
	User        AuthUser `json:"user"`
}

// SignIn performs a password grant against GoTrue.
// A failed sign-in returns an *APIError whose Message is the backend's own
// error text (e.g. "Invalid login credentials"), which the bot replies verbatim.
func (c *Client) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	data, _, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", payload, nil)
	if err != nil {
		return nil, err
	}

	var result SignInResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse sign-in response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, &APIError{Message: "sign-in response missing access token"}
	}

	return &result, nil
}

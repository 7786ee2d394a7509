package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// User is the account a Login signed in as.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Success   bool      `json:"success"`
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges credentials for a token that later calls send as a
// bearer header.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return User{}, err
	}
	c.Logout()
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/login", nil, bytes.NewReader(body))
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	raw, err := c.send(req)
	if err != nil {
		return User{}, err
	}
	var out loginResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return User{}, fmt.Errorf("decode login: %w", err)
	}
	c.mu.Lock()
	c.token, c.expires, c.user = out.Token, out.ExpiresAt, out.User
	c.mu.Unlock()
	return out.User, nil
}

// Logout forgets the token.
func (c *Client) Logout() {
	c.mu.Lock()
	c.token, c.expires, c.user = "", time.Time{}, User{}
	c.mu.Unlock()
}

// IsAuthenticated reports whether a token is held and not yet expired.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != "" && c.clock().Before(c.expires)
}

// Token returns the current token, or "" once it has expired.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || !c.clock().Before(c.expires) {
		return ""
	}
	return c.token
}

// CurrentUser returns the signed-in user, if any.
func (c *Client) CurrentUser() (User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user, c.token != ""
}

func (c *Client) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

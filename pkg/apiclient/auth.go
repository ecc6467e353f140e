package apiclient

import (
	"context"
	"net/http"
)

// LoginRequest represents a login request.
type LoginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	HealthID string `json:"healthId,omitempty"`
}

// User is the identity returned by login.
type User struct {
	UserID   string `json:"userId"`
	HealthID string `json:"healthId,omitempty"`
}

// User returns the identity part of the response. The request's user id is
// used when the backend does not echo it.
func (r *LoginResponse) User(requested string) User {
	id := r.UserID
	if id == "" {
		id = requested
	}
	return User{UserID: id, HealthID: r.HealthID}
}

// Login authenticates with the backend. It does not need a token.
func (c *Client) Login(ctx context.Context, userID, password string) (*LoginResponse, error) {
	req := LoginRequest{UserID: userID, Password: password}

	var resp LoginResponse
	if err := c.Request(ctx, http.MethodPost, "/users/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout tells the backend the session is over. Callers treat failures as
// best effort; the local token is cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	return c.AuthRequest(ctx, http.MethodPost, "/users/logout", nil, nil)
}

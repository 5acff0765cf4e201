package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"portfolio/internal/models"
)

// Auth implements gallery.Authenticator.
type Auth struct {
	c *Client
}

func (c *Client) Auth() *Auth {
	return &Auth{c: c}
}

type signInResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// SignIn keeps the session token for later writes. A rejected sign-in
// returns the server's message as the error text.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	const op = "client.Auth.SignIn"

	var resp signInResponse
	err := a.c.doJSON(ctx, http.MethodPost, "/api/auth/signin",
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			return nil, se
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := resp.User
	a.c.setSession(resp.Token, &user)
	return &user, nil
}

func (a *Auth) SignOut() {
	a.c.setSession("", nil)
}

func (a *Auth) OnAuthStateChange(fn func(*models.User)) func() {
	c := a.c
	c.mu.Lock()
	id := c.nextL
	c.nextL++
	c.listeners[id] = fn
	user := c.user
	c.mu.Unlock()

	fn(user)
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) setSession(token string, user *models.User) {
	c.mu.Lock()
	c.token = token
	c.user = user
	fns := make([]func(*models.User), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

package backend

import (
	"context"
	"net/http"
)

type currentUserResponse struct {
	Username string `json:"username"`
}

// CurrentUser returns the username bound to the backend session.
func (p *Caller) CurrentUser(ctx context.Context) (string, error) {
	var out currentUserResponse
	if err := p.getJSON(ctx, "/api/user/current", nil, &out); err != nil {
		return "", err
	}
	return out.Username, nil
}

// Logout ends the backend session.
func (p *Caller) Logout(ctx context.Context) error {
	_, err := p.do(ctx, call{method: http.MethodPost, path: "/api/logout"})
	return err
}

package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/grocery-console/internal/domain/user"
	"github.com/xenking/grocery-console/internal/resource"
)

// Token is the pair issued by the token endpoint. Only Access is used for
// requests; the refresh flow is not implemented by the backend contract.
type Token struct {
	Access  string
	Refresh string
}

// AuthService covers /token/ and the /users/ self-service endpoints.
type AuthService struct {
	c *Client
}

// Login exchanges credentials for a token. Wrong credentials come back as a
// ValidationError, never as ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, creds user.Credentials) (Token, error) {
	var token Token
	err := s.c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/token/",
		body:        func(e *jx.Encoder) { encodeCredentials(e, creds) },
		anonymous:   true,
		credentials: true,
	}, func(d *jx.Decoder) (err error) {
		token, err = decodeToken(d)
		return err
	})
	return token, err
}

// CurrentUser returns the user the bearer token belongs to.
func (s *AuthService) CurrentUser(ctx context.Context) (user.User, error) {
	var u user.User
	err := s.c.do(ctx, request{method: http.MethodGet, path: "/users/me/"}, func(d *jx.Decoder) (err error) {
		u, err = decodeUser(d)
		return err
	})
	return u, err
}

// Register creates a customer account. It does not log in.
func (s *AuthService) Register(ctx context.Context, reg user.Registration) (user.User, error) {
	var u user.User
	err := s.c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/users/",
		body:      func(e *jx.Encoder) { encodeRegistration(e, reg) },
		anonymous: true,
	}, func(d *jx.Decoder) (err error) {
		u, err = decodeUser(d)
		return err
	})
	return u, err
}

// UpdateProfile changes the contact fields of the current user.
func (s *AuthService) UpdateProfile(ctx context.Context, upd user.ProfileUpdate) (user.User, error) {
	var u user.User
	err := s.c.do(ctx, request{
		method: http.MethodPut,
		path:   "/users/me/",
		body:   func(e *jx.Encoder) { encodeProfile(e, upd) },
	}, func(d *jx.Decoder) (err error) {
		u, err = decodeUser(d)
		return err
	})
	return u, err
}

// ChangePassword replaces the current user's password.
func (s *AuthService) ChangePassword(ctx context.Context, chg user.PasswordChange) error {
	return s.c.do(ctx, request{
		method: http.MethodPut,
		path:   "/users/me/password/",
		body:   func(e *jx.Encoder) { encodePasswordChange(e, chg) },
	}, nil)
}

// UserService covers the admin user listing.
type UserService struct {
	c *Client
}

// List returns one page of users.
func (s *UserService) List(ctx context.Context, page int) (resource.PageOf[user.User], error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{"page": {strconv.Itoa(page)}}
	var res resource.PageOf[user.User]
	err := s.c.do(ctx, request{method: http.MethodGet, path: "/users/", query: q}, func(d *jx.Decoder) (err error) {
		res, err = decodePage(d, decodeUser)
		return err
	})
	return res, err
}

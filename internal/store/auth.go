package store

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/grocery-console/internal/apierr"
	"github.com/xenking/grocery-console/internal/domain/user"
	"github.com/xenking/grocery-console/internal/resource"
)

// AuthState is a snapshot of the authentication slice.
type AuthState struct {
	Status resource.Status
	Err    error
	User   *user.User
	// Authenticated reports whether a token is stored. The user may still be
	// loading.
	Authenticated bool
	// RegistrationSuccess stays set until cleared so a form can show it.
	RegistrationSuccess bool
	// UpdateSuccess is set by profile and password updates.
	UpdateSuccess bool
}

// Message returns the user-visible text of the last error.
func (a AuthState) Message() string {
	return apierr.Message(a.Err)
}

// Auth is the current user and token slice.
type Auth struct {
	s   *Store
	api AuthAPI

	state      resource.Value[user.User]
	registered bool
	updated    bool
}

func (a *Auth) op(name string, begin func()) op {
	return op{
		domain: DomainAuth,
		name:   name,
		begin: func() {
			a.state.Begin()
			if begin != nil {
				begin()
			}
		},
		reject: a.state.Reject,
	}
}

// Login exchanges creds for a token, stores it and loads the current user.
func (a *Auth) Login(ctx context.Context, creds user.Credentials) *Intent {
	o := a.op("login", nil)
	if err := creds.Validate(); err != nil {
		return a.s.rejectNow(o, err)
	}
	o.call = func(ctx context.Context) (func(), error) {
		token, err := a.api.Login(ctx, creds)
		if err != nil {
			return nil, err
		}
		if err := a.s.session.Save(token.Access); err != nil {
			return nil, errors.Wrap(err, "save session")
		}
		u, err := a.api.CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		return func() { a.state.Set(u) }, nil
	}
	return a.s.run(ctx, o)
}

// Register creates an account. It does not log in.
func (a *Auth) Register(ctx context.Context, reg user.Registration) *Intent {
	o := a.op("register", func() { a.registered = false })
	if err := reg.Validate(); err != nil {
		return a.s.rejectNow(o, err)
	}
	o.call = func(ctx context.Context) (func(), error) {
		if _, err := a.api.Register(ctx, reg); err != nil {
			return nil, err
		}
		return func() {
			a.state.Fulfill()
			a.registered = true
		}, nil
	}
	return a.s.run(ctx, o)
}

// LoadCurrentUser fetches the user of the stored token. Without a token it
// settles immediately with ErrNoSession and leaves the slice untouched.
func (a *Auth) LoadCurrentUser(ctx context.Context) *Intent {
	if a.s.session.Token() == "" {
		it := newIntent()
		it.finish(ErrNoSession)
		return it
	}
	o := a.op("current_user", nil)
	o.call = func(ctx context.Context) (func(), error) {
		u, err := a.api.CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		return func() { a.state.Set(u) }, nil
	}
	return a.s.run(ctx, o)
}

// UpdateProfile saves profile fields and replaces the current user.
func (a *Auth) UpdateProfile(ctx context.Context, upd user.ProfileUpdate) *Intent {
	o := a.op("update_profile", func() { a.updated = false })
	if err := upd.Validate(); err != nil {
		return a.s.rejectNow(o, err)
	}
	o.call = func(ctx context.Context) (func(), error) {
		u, err := a.api.UpdateProfile(ctx, upd)
		if err != nil {
			return nil, err
		}
		return func() {
			a.state.Set(u)
			a.updated = true
		}, nil
	}
	return a.s.run(ctx, o)
}

// ChangePassword changes the password of the current user.
func (a *Auth) ChangePassword(ctx context.Context, chg user.PasswordChange) *Intent {
	o := a.op("change_password", func() { a.updated = false })
	if err := chg.Validate(); err != nil {
		return a.s.rejectNow(o, err)
	}
	o.call = func(ctx context.Context) (func(), error) {
		if err := a.api.ChangePassword(ctx, chg); err != nil {
			return nil, err
		}
		return func() {
			a.state.Fulfill()
			a.updated = true
		}, nil
	}
	return a.s.run(ctx, o)
}

// Logout drops the token and the current user. It is synchronous.
func (a *Auth) Logout() error {
	err := a.s.session.Clear()
	a.s.mutate(DomainAuth, "logout", func() resource.Status {
		a.reset()
		return a.state.Status
	})
	if err != nil {
		return errors.Wrap(err, "clear session")
	}
	return nil
}

// SessionChanged reconciles the slice with a token written by another
// process. An empty token logs out; a new one reloads the current user.
func (a *Auth) SessionChanged(ctx context.Context, token string) *Intent {
	a.s.mutate(DomainAuth, "session_changed", func() resource.Status {
		a.reset()
		return a.state.Status
	})
	if token == "" {
		a.s.lg.Info("Session cleared externally")
		it := newIntent()
		it.finish(nil)
		return it
	}
	a.s.lg.Info("Session replaced externally")
	return a.LoadCurrentUser(ctx)
}

// ClearError dismisses the last error.
func (a *Auth) ClearError() {
	a.s.mutate(DomainAuth, "clear_error", func() resource.Status {
		a.state.ClearError()
		return a.state.Status
	})
}

// ClearRegistrationSuccess resets the registration flag.
func (a *Auth) ClearRegistrationSuccess() {
	a.s.mutate(DomainAuth, "clear_registration_success", func() resource.Status {
		a.registered = false
		return a.state.Status
	})
}

// ClearUpdateSuccess resets the profile update flag.
func (a *Auth) ClearUpdateSuccess() {
	a.s.mutate(DomainAuth, "clear_update_success", func() resource.Status {
		a.updated = false
		return a.state.Status
	})
}

// Snapshot returns a copy of the slice.
func (a *Auth) Snapshot() AuthState {
	a.s.mu.RLock()
	v := a.state.Clone()
	st := AuthState{
		Status:              v.Status,
		Err:                 v.Err,
		User:                v.Value,
		RegistrationSuccess: a.registered,
		UpdateSuccess:       a.updated,
	}
	a.s.mu.RUnlock()

	st.Authenticated = a.s.session.Token() != ""
	return st
}

// HasRole reports whether the loaded user holds any of roles.
func (a *Auth) HasRole(roles ...user.Role) bool {
	u := a.Snapshot().User
	return u != nil && u.HasRole(roles...)
}

func (a *Auth) reset() {
	a.state.Reset()
	a.registered = false
	a.updated = false
}

// expire records a 401. The user is dropped and cause is kept so the login
// entry point can explain why. Must be called under the store lock.
func (a *Auth) expire(cause error) {
	a.reset()
	a.state.Reject(cause)
}

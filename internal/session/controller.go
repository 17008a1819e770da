// Package session owns the top-level route state machine: Splash at
// process start, then Auth or Home depending on locally persisted
// credentials, with explicit transitions on login, register, and logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amanpay/appcore/internal/api"
	"github.com/amanpay/appcore/internal/event"
	"github.com/amanpay/appcore/internal/models"
	"github.com/amanpay/appcore/internal/vault"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Route is the top-level navigation mode.
type Route int

const (
	RouteSplash Route = iota
	RouteAuth
	RouteHome
)

func (r Route) String() string {
	switch r {
	case RouteSplash:
		return "splash"
	case RouteAuth:
		return "auth"
	case RouteHome:
		return "home"
	default:
		return fmt.Sprintf("route(%d)", int(r))
	}
}

// State is the published snapshot of the session machine. CurrentUser
// may be briefly nil on Home while the background profile fetch runs.
type State struct {
	Route       Route
	CurrentUser *models.ProfileRecord
}

// API is the slice of the backend client the session needs.
type API interface {
	Login(ctx context.Context, phone, password string) (*models.AuthSuccess, error)
	Register(ctx context.Context, phone, first, last, password string) (*models.AuthSuccess, error)
	Refresh(ctx context.Context, refresh string) (string, error)
	Me(ctx context.Context, access string) (*models.ProfileRecord, error)
}

// ProfileCache is the slice of the profile store the session needs.
type ProfileCache interface {
	Save(p *models.ProfileRecord) error
	Read() *models.ProfileRecord
	Clear() error
}

// ErrNoRefreshToken is returned by RefreshAccess when the vault holds no
// refresh token.
var ErrNoRefreshToken = errors.New("session: no refresh token")

// Controller drives login/register against the backend and persists
// tokens and profile on every transition. One instance per process,
// constructed in the composition root.
type Controller struct {
	mu       sync.Mutex
	api      API
	vault    *vault.Vault
	profiles ProfileCache
	bus      *event.Bus[State]
	log      *zap.Logger

	route    Route
	user     *models.ProfileRecord
	degraded bool
}

// New builds a controller in the Splash route.
func New(client API, v *vault.Vault, profiles ProfileCache, log *zap.Logger) *Controller {
	return &Controller{
		api:      client,
		vault:    v,
		profiles: profiles,
		bus:      event.NewBus[State](),
		log:      log,
		route:    RouteSplash,
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Route: c.route, CurrentUser: c.user}
}

// Degraded reports whether the current session survived a failed token
// write: the user is logged in for this process but will not survive a
// restart.
func (c *Controller) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// Subscribe returns a channel of state snapshots published on every
// transition, plus a cancel function.
func (c *Controller) Subscribe() (<-chan State, func()) {
	return c.bus.Subscribe(8)
}

// Bootstrap runs the startup route decision concurrently with a minimum
// display timer, so the splash never flashes faster than the floor nor
// waits on anything but local storage. The decided route is entered only
// after both branches complete. Only meaningful from Splash; later calls
// return the current route unchanged.
func (c *Controller) Bootstrap(ctx context.Context, minimum time.Duration) Route {
	c.mu.Lock()
	if c.route != RouteSplash {
		route := c.route
		c.mu.Unlock()
		return route
	}
	c.mu.Unlock()

	var decided Route
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Local storage only; must not stall on network.
		if c.vault.HasSession() {
			decided = RouteHome
		} else {
			decided = RouteAuth
		}
		return nil
	})
	g.Go(func() error {
		timer := time.NewTimer(minimum)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})
	if err := g.Wait(); err != nil {
		c.log.Warn("bootstrap interrupted", zap.Error(err))
	}

	c.mu.Lock()
	c.route = decided
	if decided == RouteHome {
		if saved := c.profiles.Read(); saved != nil {
			c.user = saved
		} else {
			// Fire-and-forget: a fetch failure leaves the user nil but
			// never reverts the route to Auth.
			go c.loadProfile(context.WithoutCancel(ctx))
		}
	}
	snapshot := State{Route: c.route, CurrentUser: c.user}
	c.mu.Unlock()

	c.log.Info("bootstrap decided route", zap.Stringer("route", decided))
	c.bus.Publish(snapshot)
	return decided
}

func (c *Controller) loadProfile(ctx context.Context) {
	profile, err := c.api.Me(ctx, c.vault.AccessToken())
	if err != nil {
		c.log.Warn("profile fetch failed", zap.Error(err))
		return
	}
	if err := c.profiles.Save(profile); err != nil {
		c.log.Warn("profile cache write failed", zap.Error(err))
	}

	c.mu.Lock()
	c.user = profile
	snapshot := State{Route: c.route, CurrentUser: c.user}
	c.mu.Unlock()
	c.bus.Publish(snapshot)
}

// Login authenticates and, on success, persists tokens and profile and
// enters Home. The returned error is one of the api taxonomy types; use
// ErrorMessage to render it.
func (c *Controller) Login(ctx context.Context, phone, password string) error {
	res, err := c.api.Login(ctx, phone, password)
	if err != nil {
		return err
	}
	c.completeAuth(res)
	return nil
}

// Register creates an account; the success path is identical to Login.
func (c *Controller) Register(ctx context.Context, phone, first, last, password string) error {
	res, err := c.api.Register(ctx, phone, first, last, password)
	if err != nil {
		return err
	}
	c.completeAuth(res)
	return nil
}

// completeAuth persists credentials and enters Home. A failed token
// write does not fail the login: the session continues for this process
// and the controller marks itself degraded.
func (c *Controller) completeAuth(res *models.AuthSuccess) {
	degraded := false
	if err := c.vault.SaveTokens(res.Access, res.Refresh); err != nil {
		c.log.Error("token write failed after successful auth", zap.Error(err))
		degraded = true
	}
	if err := c.profiles.Save(&res.User); err != nil {
		c.log.Warn("profile cache write failed", zap.Error(err))
	}

	c.mu.Lock()
	user := res.User
	c.user = &user
	c.route = RouteHome
	c.degraded = degraded
	snapshot := State{Route: c.route, CurrentUser: c.user}
	c.mu.Unlock()
	c.bus.Publish(snapshot)
}

// RefreshAccess silently exchanges the stored refresh token for a new
// access token. Failures never change the route; expiry handling stays
// an explicit product decision.
func (c *Controller) RefreshAccess(ctx context.Context) error {
	refresh := c.vault.RefreshToken()
	if refresh == "" {
		return ErrNoRefreshToken
	}
	access, err := c.api.Refresh(ctx, refresh)
	if err != nil {
		return err
	}
	if err := c.vault.UpdateAccess(access); err != nil {
		c.log.Error("access token write failed after refresh", zap.Error(err))
		return err
	}
	return nil
}

// Logout clears tokens and the cached profile and enters Auth
// unconditionally. Device-lock configuration is untouched: the lock
// persists across logout.
func (c *Controller) Logout() {
	c.vault.ClearTokens()
	if err := c.profiles.Clear(); err != nil {
		c.log.Warn("profile cache clear failed", zap.Error(err))
	}

	c.mu.Lock()
	c.user = nil
	c.route = RouteAuth
	c.degraded = false
	snapshot := State{Route: c.route, CurrentUser: nil}
	c.mu.Unlock()
	c.bus.Publish(snapshot)
}

// Close shuts down the event bus.
func (c *Controller) Close() {
	c.bus.Close()
}

// ErrorMessage maps a Login/Register/Refresh error to the user-facing
// string. 400/401 means bad credentials; other statuses surface the
// server detail when present; transport problems ask the user to retry.
func ErrorMessage(err error) string {
	var status *api.StatusError
	if errors.As(err, &status) {
		if status.Code == 400 || status.Code == 401 {
			return "Incorrect phone number or password."
		}
		if status.Detail != "" {
			return status.Detail
		}
		return fmt.Sprintf("Server error (%d). Please try again later.", status.Code)
	}
	var transport *api.TransportError
	if errors.As(err, &transport) {
		return "Connection problem. Please check your internet and try again."
	}
	return "Unexpected error. Please try again."
}

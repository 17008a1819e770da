// Package devicelock decides whether the app surface is obscured behind
// a local factor (PIN and/or biometric), independent of server session
// state. It owns the Locked/Unlocked state machine; token material is
// never touched here.
package devicelock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amanpay/appcore/internal/event"
	"github.com/amanpay/appcore/internal/pinlock"
	"go.uber.org/zap"
)

// biometricPrefKey is the preference name under which the biometric
// toggle is persisted.
const biometricPrefKey = "biometricEnabled"

// Attempt backoff: after freeAttempts consecutive failures each further
// attempt requires a cooldown that doubles per failure, capped.
const (
	freeAttempts = 5
	baseCooldown = time.Second
	maxCooldown  = 5 * time.Minute
)

// ErrCooldown is returned while the attempt backoff window is active.
// The lock state is unchanged; the caller retries after the window.
var ErrCooldown = errors.New("devicelock: attempt cooldown active")

// ErrNoPin is returned by UnlockWithPin when no PIN is configured.
var ErrNoPin = errors.New("devicelock: no pin configured")

// Preferences persists the biometric toggle in the non-secure tier.
type Preferences interface {
	SetBool(name string, on bool) error
	GetBool(name string) bool
}

// State is the published snapshot of the lock machine.
type State struct {
	Locked             bool
	HasPin             bool
	BiometricEnabled   bool
	BiometricAvailable bool
	PinLength          int
}

// Controller combines the PIN lock, the biometric probe, and the
// persisted biometric preference. All entry points are expected to be
// called from one coordinating context; the mutex only guards against
// accidental cross-goroutine use, not concurrent mutation by design.
type Controller struct {
	mu    sync.Mutex
	pin   *pinlock.PinLock
	bio   BiometricChallenger
	prefs Preferences
	bus   *event.Bus[State]
	log   *zap.Logger
	now   func() time.Time

	pinLength    int
	locked       bool
	hasPin       bool
	bioEnabled   bool
	bioAvailable bool

	failures  int
	retryFrom time.Time
}

// Option configures the controller.
type Option func(*Controller)

// WithPinLength fixes the installation's PIN length to 4 or 6 digits.
// Other values are ignored and the default of 4 is kept.
func WithPinLength(n int) Option {
	return func(c *Controller) {
		if n == 4 || n == 6 {
			c.pinLength = n
		}
	}
}

// withClock overrides the time source in tests.
func withClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New builds the controller and computes the initial state: Locked iff a
// PIN exists or the biometric factor is enabled. Biometric availability
// is probed live, never loaded from storage.
func New(pin *pinlock.PinLock, bio BiometricChallenger, prefs Preferences, log *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		pin:       pin,
		bio:       bio,
		prefs:     prefs,
		bus:       event.NewBus[State](),
		log:       log,
		now:       time.Now,
		pinLength: 4,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.hasPin = pin.Exists()
	c.bioEnabled = prefs.GetBool(biometricPrefKey)
	c.bioAvailable = bio.Available()
	c.locked = c.hasPin || c.bioEnabled
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Subscribe returns a channel of state snapshots published on every
// transition, plus a cancel function.
func (c *Controller) Subscribe() (<-chan State, func()) {
	return c.bus.Subscribe(8)
}

func (c *Controller) snapshot() State {
	return State{
		Locked:             c.locked,
		HasPin:             c.hasPin,
		BiometricEnabled:   c.bioEnabled,
		BiometricAvailable: c.bioAvailable,
		PinLength:          c.pinLength,
	}
}

func (c *Controller) publish() {
	c.bus.Publish(c.snapshot())
}

// EnablePin sets a new PIN. The PIN must match the configured length.
// Success forces Locked: the next interaction must re-authenticate
// against the new factor.
func (c *Controller) EnablePin(pin string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enablePinLocked(pin)
}

func (c *Controller) enablePinLocked(pin string) bool {
	if len(pin) != c.pinLength {
		return false
	}
	if !c.pin.Save(pin) {
		c.log.Error("pin save failed")
		return false
	}
	c.hasPin = true
	c.locked = true
	c.publish()
	return true
}

// ChangePin replaces the PIN after verifying the old one. On failure
// nothing changes; the result is a bare boolean so the caller cannot
// distinguish a length rejection from a wrong old PIN.
func (c *Controller) ChangePin(old, newPin string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pin.Verify(old) {
		return false
	}
	return c.enablePinLocked(newPin)
}

// DisablePin removes the PIN after verifying it. If biometric remains
// the active factor the lock stays engaged, otherwise the device
// converges to unlocked.
func (c *Controller) DisablePin(current string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pin.Verify(current) {
		return false
	}
	c.pin.Clear()
	c.hasPin = false
	c.locked = c.bioEnabled
	c.failures = 0
	c.retryFrom = time.Time{}
	c.publish()
	return true
}

// UnlockWithPin attempts a PIN unlock. A wrong PIN leaves the state
// unchanged and never weakens the configuration. Repeated failures
// engage the attempt backoff, during which ErrCooldown is returned.
func (c *Controller) UnlockWithPin(pin string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasPin {
		return false, ErrNoPin
	}
	if now := c.now(); now.Before(c.retryFrom) {
		return false, ErrCooldown
	}

	if !c.pin.Verify(pin) {
		c.registerFailure()
		return false, nil
	}
	c.failures = 0
	c.retryFrom = time.Time{}
	c.locked = false
	c.publish()
	return true, nil
}

// registerFailure advances the backoff window. Caller holds the mutex.
func (c *Controller) registerFailure() {
	c.failures++
	if c.failures < freeAttempts {
		return
	}
	shift := c.failures - freeAttempts
	cooldown := maxCooldown
	if shift <= 30 {
		if d := baseCooldown << shift; d < maxCooldown {
			cooldown = d
		}
	}
	c.retryFrom = c.now().Add(cooldown)
	c.log.Warn("pin attempt backoff engaged",
		zap.Int("failures", c.failures),
		zap.Duration("cooldown", cooldown))
}

// Lock forces Locked from any state. Called when the app returns to the
// foreground. With no factor configured there is nothing to unlock with,
// so the state stays converged at Unlocked.
func (c *Controller) Lock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked || (!c.hasPin && !c.bioEnabled) {
		return
	}
	c.locked = true
	c.publish()
}

// Authenticate runs the platform biometric/passcode challenge once. On
// success the controller transitions to Unlocked. Cancellation or
// dismissal resolves to false with no state change.
func (c *Controller) Authenticate(ctx context.Context, reason string, allowPasscode bool) (bool, error) {
	policy := BiometricOnly
	if allowPasscode {
		policy = BiometricOrPasscode
	}

	ok, err := c.bio.Challenge(ctx, reason, policy)
	if err != nil {
		c.log.Warn("biometric challenge failed", zap.Error(err))
		return false, err
	}
	if !ok {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
	c.retryFrom = time.Time{}
	c.locked = false
	c.publish()
	return true, nil
}

// UnlockWithBiometrics is Authenticate without the passcode fallback.
func (c *Controller) UnlockWithBiometrics(ctx context.Context, reason string) (bool, error) {
	return c.Authenticate(ctx, reason, false)
}

// SetBiometricEnabled persists the preference. Turning the factor on
// forces Locked so it must prove itself before being trusted; turning it
// off with no PIN converges the state to unlocked.
func (c *Controller) SetBiometricEnabled(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.prefs.SetBool(biometricPrefKey, on); err != nil {
		return err
	}
	c.bioEnabled = on
	if on {
		c.locked = true
	} else if !c.hasPin {
		c.locked = false
	}
	c.publish()
	return nil
}

// Close shuts down the event bus.
func (c *Controller) Close() {
	c.bus.Close()
}

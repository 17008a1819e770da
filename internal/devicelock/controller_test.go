package devicelock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amanpay/appcore/internal/pinlock"
	"github.com/amanpay/appcore/internal/vault"
	"go.uber.org/zap"
)

// fakePrefs is an in-memory Preferences implementation.
type fakePrefs struct {
	values map[string]bool
	err    error
}

func newFakePrefs() *fakePrefs { return &fakePrefs{values: make(map[string]bool)} }

func (f *fakePrefs) SetBool(name string, on bool) error {
	if f.err != nil {
		return f.err
	}
	f.values[name] = on
	return nil
}

func (f *fakePrefs) GetBool(name string) bool { return f.values[name] }

// fakeBio is a scriptable challenger.
type fakeBio struct {
	available bool
	grant     bool
	err       error
	calls     int
}

func (f *fakeBio) Available() bool { return f.available }

func (f *fakeBio) Challenge(context.Context, string, BiometricPolicy) (bool, error) {
	f.calls++
	return f.grant, f.err
}

type fixture struct {
	ctrl  *Controller
	pin   *pinlock.PinLock
	prefs *fakePrefs
	bio   *fakeBio
	now   time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		pin:   pinlock.New(vault.New(vault.NewMemoryStore(), zap.NewNop())),
		prefs: newFakePrefs(),
		bio:   &fakeBio{available: true},
		now:   time.Unix(1_700_000_000, 0),
	}
	opts = append(opts, withClock(func() time.Time { return f.now }))
	f.ctrl = New(f.pin, f.bio, f.prefs, zap.NewNop(), opts...)
	t.Cleanup(f.ctrl.Close)
	return f
}

func TestInitialState(t *testing.T) {
	tests := []struct {
		name       string
		setPin     bool
		bioEnabled bool
		wantLocked bool
	}{
		{"no factors", false, false, false},
		{"pin only", true, false, true},
		{"biometric only", false, true, true},
		{"both", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pin := pinlock.New(vault.New(vault.NewMemoryStore(), zap.NewNop()))
			if tt.setPin && !pin.Save("1234") {
				t.Fatal("pin seed failed")
			}
			prefs := newFakePrefs()
			prefs.values[biometricPrefKey] = tt.bioEnabled

			ctrl := New(pin, &fakeBio{available: true}, prefs, zap.NewNop())
			defer ctrl.Close()

			state := ctrl.State()
			if state.Locked != tt.wantLocked {
				t.Errorf("Locked = %v, want %v", state.Locked, tt.wantLocked)
			}
			if state.HasPin != tt.setPin {
				t.Errorf("HasPin = %v, want %v", state.HasPin, tt.setPin)
			}
			if state.BiometricEnabled != tt.bioEnabled {
				t.Errorf("BiometricEnabled = %v, want %v", state.BiometricEnabled, tt.bioEnabled)
			}
		})
	}
}

func TestEnablePinLengthPolicy(t *testing.T) {
	f := newFixture(t)

	if f.ctrl.EnablePin("123") {
		t.Error("short PIN accepted")
	}
	if f.ctrl.EnablePin("12345") {
		t.Error("overlong PIN accepted")
	}
	if !f.ctrl.EnablePin("1234") {
		t.Fatal("valid PIN rejected")
	}
	state := f.ctrl.State()
	if !state.HasPin || !state.Locked {
		t.Errorf("expected hasPin+locked after enable, got %+v", state)
	}
}

func TestSixDigitInstallation(t *testing.T) {
	f := newFixture(t, WithPinLength(6))
	if f.ctrl.EnablePin("1234") {
		t.Error("4-digit PIN accepted on 6-digit installation")
	}
	if !f.ctrl.EnablePin("123456") {
		t.Error("6-digit PIN rejected")
	}
}

func TestUnlockWithPin(t *testing.T) {
	f := newFixture(t)
	if !f.ctrl.EnablePin("1234") {
		t.Fatal("enable failed")
	}

	ok, err := f.ctrl.UnlockWithPin("4321")
	if err != nil || ok {
		t.Errorf("wrong PIN: got (%v, %v)", ok, err)
	}
	if !f.ctrl.State().Locked {
		t.Error("failed attempt must not unlock")
	}

	ok, err = f.ctrl.UnlockWithPin("1234")
	if err != nil || !ok {
		t.Fatalf("correct PIN: got (%v, %v)", ok, err)
	}
	if f.ctrl.State().Locked {
		t.Error("expected unlocked")
	}
}

func TestUnlockWithoutPin(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.UnlockWithPin("1234"); !errors.Is(err, ErrNoPin) {
		t.Errorf("expected ErrNoPin, got %v", err)
	}
}

func TestChangePin(t *testing.T) {
	f := newFixture(t)
	if !f.ctrl.EnablePin("1234") {
		t.Fatal("enable failed")
	}

	if f.ctrl.ChangePin("0000", "5678") {
		t.Error("change with wrong old PIN accepted")
	}
	if ok, _ := f.ctrl.UnlockWithPin("1234"); !ok {
		t.Error("old PIN should survive failed change")
	}

	if !f.ctrl.ChangePin("1234", "5678") {
		t.Fatal("valid change rejected")
	}
	if !f.ctrl.State().Locked {
		t.Error("change must force re-authentication")
	}
	if ok, _ := f.ctrl.UnlockWithPin("1234"); ok {
		t.Error("old PIN still unlocks after change")
	}
	if ok, _ := f.ctrl.UnlockWithPin("5678"); !ok {
		t.Error("new PIN does not unlock")
	}
}

func TestDisablePin(t *testing.T) {
	f := newFixture(t)
	if !f.ctrl.EnablePin("1234") {
		t.Fatal("enable failed")
	}

	if f.ctrl.DisablePin("0000") {
		t.Error("disable with wrong PIN accepted")
	}
	if !f.ctrl.DisablePin("1234") {
		t.Fatal("disable rejected")
	}
	state := f.ctrl.State()
	if state.HasPin {
		t.Error("HasPin after disable")
	}
	if state.Locked {
		t.Error("expected unlocked: biometric is off")
	}
}

func TestDisablePinKeepsBiometricLock(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.SetBiometricEnabled(true); err != nil {
		t.Fatal(err)
	}
	if !f.ctrl.EnablePin("1234") {
		t.Fatal("enable failed")
	}
	if !f.ctrl.DisablePin("1234") {
		t.Fatal("disable rejected")
	}
	if !f.ctrl.State().Locked {
		t.Error("biometric factor still active, lock must hold")
	}
}

func TestLockFromAnyState(t *testing.T) {
	f := newFixture(t)

	// No factor configured: nothing can unlock, so Lock must not engage.
	f.ctrl.Lock()
	if f.ctrl.State().Locked {
		t.Error("Lock engaged with no factors configured")
	}

	if !f.ctrl.EnablePin("1234") {
		t.Fatal("enable failed")
	}
	if ok, _ := f.ctrl.UnlockWithPin("1234"); !ok {
		t.Fatal("unlock failed")
	}
	f.ctrl.Lock()
	if !f.ctrl.State().Locked {
		t.Error("Lock must re-engage while a factor is configured")
	}
}

func TestBiometricToggle(t *testing.T) {
	f := newFixture(t)

	if err := f.ctrl.SetBiometricEnabled(true); err != nil {
		t.Fatal(err)
	}
	state := f.ctrl.State()
	if !state.BiometricEnabled || !state.Locked {
		t.Errorf("enable must persist and lock, got %+v", state)
	}
	if !f.prefs.values[biometricPrefKey] {
		t.Error("preference not persisted")
	}

	if err := f.ctrl.SetBiometricEnabled(false); err != nil {
		t.Fatal(err)
	}
	state = f.ctrl.State()
	if state.Locked {
		t.Error("no factors remain, state must converge to unlocked")
	}
}

func TestBiometricTogglePersistFailure(t *testing.T) {
	f := newFixture(t)
	f.prefs.err = errors.New("storage rejected")
	if err := f.ctrl.SetBiometricEnabled(true); err == nil {
		t.Fatal("expected error")
	}
	if f.ctrl.State().BiometricEnabled {
		t.Error("state changed despite persist failure")
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.SetBiometricEnabled(true); err != nil {
		t.Fatal(err)
	}

	f.bio.grant = false
	ok, err := f.ctrl.Authenticate(context.Background(), "unlock", true)
	if err != nil || ok {
		t.Errorf("denied challenge: got (%v, %v)", ok, err)
	}
	if !f.ctrl.State().Locked {
		t.Error("denied challenge must not unlock")
	}

	f.bio.grant = true
	ok, err = f.ctrl.Authenticate(context.Background(), "unlock", true)
	if err != nil || !ok {
		t.Fatalf("granted challenge: got (%v, %v)", ok, err)
	}
	if f.ctrl.State().Locked {
		t.Error("expected unlocked after granted challenge")
	}
	if f.bio.calls != 2 {
		t.Errorf("challenge invoked %d times, want 2", f.bio.calls)
	}
}

func TestAuthenticateServiceError(t *testing.T) {
	f := newFixture(t)
	// Enable the factor first: that engages the lock the failing
	// challenge must not release.
	if err := f.ctrl.SetBiometricEnabled(true); err != nil {
		t.Fatal(err)
	}
	if !f.ctrl.State().Locked {
		t.Fatal("expected locked after enabling the biometric factor")
	}
	f.bio.err = errors.New("service unavailable")

	ok, err := f.ctrl.Authenticate(context.Background(), "unlock", false)
	if ok || err == nil {
		t.Errorf("expected (false, err), got (%v, %v)", ok, err)
	}
	if !f.ctrl.State().Locked {
		t.Error("service error must not unlock")
	}
}

func TestFailedUnlockNeverWeakensConfiguration(t *testing.T) {
	f := newFixture(t)
	if !f.ctrl.EnablePin("1234") {
		t.Fatal("enable failed")
	}
	for i := 0; i < 3; i++ {
		if ok, _ := f.ctrl.UnlockWithPin("0000"); ok {
			t.Fatal("wrong PIN unlocked")
		}
	}
	state := f.ctrl.State()
	if !state.HasPin || !state.Locked {
		t.Errorf("failed attempts changed configuration: %+v", state)
	}
	if !f.pin.Exists() {
		t.Error("credential cleared by failed attempts")
	}
}

func TestAttemptBackoff(t *testing.T) {
	f := newFixture(t)
	if !f.ctrl.EnablePin("1234") {
		t.Fatal("enable failed")
	}

	// First failures are free.
	for i := 0; i < freeAttempts; i++ {
		if _, err := f.ctrl.UnlockWithPin("0000"); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
	}

	// Now the cooldown window is active.
	if _, err := f.ctrl.UnlockWithPin("1234"); !errors.Is(err, ErrCooldown) {
		t.Fatalf("expected ErrCooldown, got %v", err)
	}

	// After the window passes, even the correct PIN works and resets.
	f.now = f.now.Add(2 * time.Second)
	ok, err := f.ctrl.UnlockWithPin("1234")
	if err != nil || !ok {
		t.Fatalf("post-cooldown unlock: got (%v, %v)", ok, err)
	}

	// Counter reset: failures are free again.
	f.ctrl.Lock()
	if _, err := f.ctrl.UnlockWithPin("0000"); err != nil {
		t.Errorf("counter not reset after success: %v", err)
	}
}

func TestStateChangedEvents(t *testing.T) {
	f := newFixture(t)
	events, cancel := f.ctrl.Subscribe()
	defer cancel()

	if !f.ctrl.EnablePin("1234") {
		t.Fatal("enable failed")
	}
	select {
	case state := <-events:
		if !state.Locked || !state.HasPin {
			t.Errorf("unexpected event %+v", state)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published for EnablePin")
	}
}

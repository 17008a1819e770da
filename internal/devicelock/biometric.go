package devicelock

import "context"

// BiometricPolicy selects what the platform challenge accepts.
type BiometricPolicy int

const (
	// BiometricOnly accepts biometrics with no fallback.
	BiometricOnly BiometricPolicy = iota
	// BiometricOrPasscode falls back to the device passcode when the
	// biometric read fails or is unavailable.
	BiometricOrPasscode
)

// BiometricChallenger abstracts the platform biometric service.
//
// Available is the live capability probe: hardware present and a factor
// enrolled. It is re-checked at every process start and never persisted.
//
// Challenge presents the platform prompt exactly once and blocks until
// the user acts or the context/platform cancels. Cancellation and
// dismissal resolve to (false, nil); errors are reserved for the service
// itself misbehaving.
type BiometricChallenger interface {
	Available() bool
	Challenge(ctx context.Context, reason string, policy BiometricPolicy) (bool, error)
}

// Unavailable is the null challenger for devices without biometric
// hardware. Every challenge fails.
type Unavailable struct{}

func (Unavailable) Available() bool { return false }

func (Unavailable) Challenge(context.Context, string, BiometricPolicy) (bool, error) {
	return false, nil
}

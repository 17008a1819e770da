// Package main wires the secure session subsystem together and drives it
// from an interactive shell: vault, profile cache, PIN lock, device-lock
// controller, and session controller are constructed once here and
// passed by reference, one instance per process.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amanpay/appcore/internal/api"
	"github.com/amanpay/appcore/internal/config"
	"github.com/amanpay/appcore/internal/devicelock"
	"github.com/amanpay/appcore/internal/logger"
	"github.com/amanpay/appcore/internal/pinlock"
	"github.com/amanpay/appcore/internal/profile"
	"github.com/amanpay/appcore/internal/session"
	"github.com/amanpay/appcore/internal/vault"
	"go.uber.org/zap"
)

var (
	version   string
	buildDate string
)

// terminalChallenger simulates the platform biometric prompt on the
// terminal: the challenge is granted when the user answers "y".
type terminalChallenger struct {
	in *bufio.Scanner
}

func (t *terminalChallenger) Available() bool { return true }

func (t *terminalChallenger) Challenge(_ context.Context, reason string, policy devicelock.BiometricPolicy) (bool, error) {
	if policy == devicelock.BiometricOrPasscode {
		fmt.Printf("[biometric] %s (passcode fallback allowed), approve? [y/N] ", reason)
	} else {
		fmt.Printf("[biometric] %s, approve? [y/N] ", reason)
	}
	if !t.in.Scan() {
		return false, nil
	}
	return strings.EqualFold(strings.TrimSpace(t.in.Text()), "y"), nil
}

func main() {
	var (
		configPath string
		showVer    bool
	)
	flag.StringVar(&configPath, "c", "config.json", "path to config file")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("AmanPay Core Shell\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	options, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(options.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := os.MkdirAll(options.DataDir, 0o700); err != nil {
		log.Fatal("cannot create data dir", zap.Error(err))
	}

	// Secure tier: encrypted file store keyed by device key material.
	deviceKey, err := vault.LoadDeviceKey(options.DataDir)
	if err != nil {
		log.Fatal("cannot load device key", zap.Error(err))
	}
	store, err := vault.NewFileStore(filepath.Join(options.DataDir, "vault.bin"), deviceKey)
	if err != nil {
		log.Fatal("cannot open vault", zap.Error(err))
	}
	secrets := vault.New(store, log)

	// Non-secure tier: profile cache and settings.
	profiles, err := profile.Open(filepath.Join(options.DataDir, "profile.db"), options.AppID, log)
	if err != nil {
		log.Fatal("cannot open profile cache", zap.Error(err))
	}
	defer profiles.Close()

	scanner := bufio.NewScanner(os.Stdin)

	pin := pinlock.New(secrets)
	lock := devicelock.New(pin, &terminalChallenger{in: scanner}, profiles, log,
		devicelock.WithPinLength(options.PinLength))
	defer lock.Close()

	client, err := api.New(options.APIBase, log)
	if err != nil {
		log.Fatal("cannot build api client", zap.Error(err))
	}
	sess := session.New(client, secrets, profiles, log)
	defer sess.Close()

	ctx := context.Background()
	fmt.Println("amanpay: starting up...")
	route := sess.Bootstrap(ctx, time.Duration(options.SplashSeconds*float64(time.Second)))
	fmt.Printf("amanpay: route %s\n", route)

	repl(ctx, scanner, sess, lock)
}

// repl is the interactive loop. While the device lock is engaged every
// command except unlock/bio-unlock is refused, mirroring the lock
// overlay blocking the app surface regardless of the session route.
func repl(ctx context.Context, scanner *bufio.Scanner, sess *session.Controller, lock *devicelock.Controller) {
	for {
		fmt.Print("amanpay> ")
		if !scanner.Scan() {
			return
		}
		args := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(args) == 0 {
			continue
		}

		if lock.State().Locked && !unlockCommand(args[0]) {
			fmt.Println("Locked. Use: unlock <pin> | faceid")
			continue
		}

		switch args[0] {
		case "help":
			fmt.Println("Commands: status, login <phone> <password>, register <phone> <first> <last> <password>,")
			fmt.Println("  logout, refresh, profile, setpin <pin>, changepin <old> <new>, disablepin <pin>,")
			fmt.Println("  unlock <pin>, faceid, lock, bio <on|off>, exit")
		case "status":
			printStatus(sess, lock)
		case "login":
			if len(args) != 3 {
				fmt.Println("Usage: login <phone> <password>")
				continue
			}
			if err := sess.Login(ctx, args[1], args[2]); err != nil {
				fmt.Println(session.ErrorMessage(err))
				continue
			}
			fmt.Println("Logged in.")
			if sess.Degraded() {
				fmt.Println("Warning: credentials could not be persisted; this session ends with the process.")
			}
		case "register":
			if len(args) != 5 {
				fmt.Println("Usage: register <phone> <first> <last> <password>")
				continue
			}
			if err := sess.Register(ctx, args[1], args[2], args[3], args[4]); err != nil {
				fmt.Println(session.ErrorMessage(err))
				continue
			}
			fmt.Println("Registered and logged in.")
		case "logout":
			sess.Logout()
			fmt.Println("Logged out.")
		case "refresh":
			if err := sess.RefreshAccess(ctx); err != nil {
				fmt.Println("Refresh failed:", session.ErrorMessage(err))
			} else {
				fmt.Println("Access token refreshed.")
			}
		case "profile":
			state := sess.State()
			if state.CurrentUser == nil {
				fmt.Println("No profile loaded.")
				continue
			}
			u := state.CurrentUser
			fmt.Printf("#%d %s %s <%s> %s\n", u.ID, u.FirstName, u.LastName, u.Email, u.PhoneNumber)
		case "setpin":
			if len(args) != 2 {
				fmt.Println("Usage: setpin <pin>")
				continue
			}
			if lock.EnablePin(args[1]) {
				fmt.Println("PIN set. Device locked.")
			} else {
				fmt.Printf("Could not set PIN (must be %d digits).\n", lock.State().PinLength)
			}
		case "changepin":
			if len(args) != 3 {
				fmt.Println("Usage: changepin <old> <new>")
				continue
			}
			if lock.ChangePin(args[1], args[2]) {
				fmt.Println("PIN changed. Device locked.")
			} else {
				fmt.Println("PIN change failed.")
			}
		case "disablepin":
			if len(args) != 2 {
				fmt.Println("Usage: disablepin <pin>")
				continue
			}
			if lock.DisablePin(args[1]) {
				fmt.Println("PIN disabled.")
			} else {
				fmt.Println("Wrong PIN.")
			}
		case "unlock":
			if len(args) != 2 {
				fmt.Println("Usage: unlock <pin>")
				continue
			}
			ok, err := lock.UnlockWithPin(args[1])
			switch {
			case err != nil:
				fmt.Println("Unlock unavailable:", err)
			case ok:
				fmt.Println("Unlocked.")
			default:
				fmt.Println("Wrong PIN.")
			}
		case "faceid":
			ok, err := lock.Authenticate(ctx, "Unlock AmanPay", true)
			switch {
			case err != nil:
				fmt.Println("Biometric error:", err)
			case ok:
				fmt.Println("Unlocked.")
			default:
				fmt.Println("Not recognized.")
			}
		case "lock":
			lock.Lock()
			fmt.Println("Locked.")
		case "bio":
			if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
				fmt.Println("Usage: bio <on|off>")
				continue
			}
			if err := lock.SetBiometricEnabled(args[1] == "on"); err != nil {
				fmt.Println("Could not save preference:", err)
			} else if args[1] == "on" {
				fmt.Println("Biometric unlock enabled. Device locked.")
			} else {
				fmt.Println("Biometric unlock disabled.")
			}
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func unlockCommand(cmd string) bool {
	switch cmd {
	case "unlock", "faceid", "status", "help", "exit":
		return true
	}
	return false
}

func printStatus(sess *session.Controller, lock *devicelock.Controller) {
	s := sess.State()
	l := lock.State()
	user := "-"
	if s.CurrentUser != nil {
		user = s.CurrentUser.PhoneNumber
	}
	fmt.Printf("route=%s user=%s locked=%v pin=%v biometric(enabled=%v available=%v) length=%d\n",
		s.Route, user, l.Locked, l.HasPin, l.BiometricEnabled, l.BiometricAvailable, l.PinLength)
}

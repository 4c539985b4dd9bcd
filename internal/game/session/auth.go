package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/storage/postgres"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

const welcomeBanner = `
` + telnet.Bold + telnet.BrightRed + `
 ██████╗ ██╗   ██╗███╗   ██╗ ██████╗ ███████╗ ██████╗ ███╗   ██╗
 ██╔══██╗██║   ██║████╗  ██║██╔════╝ ██╔════╝██╔═══██╗████╗  ██║
 ██║  ██║██║   ██║██╔██╗ ██║██║  ███╗█████╗  ██║   ██║██╔██╗ ██║
 ██║  ██║██║   ██║██║╚██╗██║██║   ██║██╔══╝  ██║   ██║██║╚██╗██║
 ██████╔╝╚██████╔╝██║ ╚████║╚██████╔╝███████╗╚██████╔╝██║ ╚████║
 ╚═════╝  ╚═════╝ ╚═╝  ╚═══╝ ╚═════╝ ╚══════╝ ╚═════╝ ╚═╝  ╚═══╝` + telnet.Reset + `

  Type ` + telnet.Green + `login <username> [password]` + telnet.Reset + ` to connect.
  Type ` + telnet.Green + `register <username> [password]` + telnet.Reset + ` to create an account.
  Type ` + telnet.Green + `quit` + telnet.Reset + ` to disconnect.
`

// authenticate shows the welcome banner and runs the login loop.
//
// Postcondition: Returns (acct, nil) on successful login, (Account{}, nil)
// on clean quit or too many failures, or (Account{}, error) on fatal
// connection errors.
func (h *Handler) authenticate(ctx context.Context, conn *telnet.Conn) (postgres.Account, error) {
	addr := conn.RemoteAddr().String()
	opts := h.deps.Options
	conn.SetReadTimeout(opts.AuthTimeout)

	if err := conn.Write([]byte(welcomeBanner)); err != nil {
		return postgres.Account{}, fmt.Errorf("sending welcome: %w", err)
	}

	failures := 0
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Server shutting down. Goodbye!"))
			return postgres.Account{}, ctx.Err()
		default:
		}

		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "> ")); err != nil {
			return postgres.Account{}, fmt.Errorf("writing prompt: %w", err)
		}

		line, err := conn.ReadLine()
		if err != nil {
			if isTimeout(err) {
				_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Login timed out. Goodbye!"))
				return postgres.Account{}, nil
			}
			return postgres.Account{}, fmt.Errorf("reading input: %w", err)
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "quit", "exit":
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
			return postgres.Account{}, nil

		case "login":
			acct, ok, err := h.handleLogin(ctx, conn, args)
			if err != nil {
				return postgres.Account{}, err
			}
			if ok {
				h.deps.Logger.Info("player logged in",
					zap.String("remote_addr", addr),
					zap.String("username", acct.Username),
				)
				if err := h.deps.Accounts.TouchLastSeen(ctx, acct.ID); err != nil {
					h.deps.Logger.Warn("touching last seen", zap.Error(err))
				}
				return acct, nil
			}
			failures++
			if failures >= opts.AuthAttempts {
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Too many failed logins. Goodbye!"))
				h.deps.Logger.Info("auth failures exceeded", zap.String("remote_addr", addr))
				return postgres.Account{}, nil
			}

		case "register":
			if err := h.handleRegister(ctx, conn, args); err != nil {
				return postgres.Account{}, err
			}

		case "help":
			h.showAuthHelp(conn)

		default:
			_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Unknown command: %s. Type 'help' for available commands.", cmd))
		}
	}
}

// handleLogin authenticates against the account store. The password may be
// given inline or entered at a no-echo prompt.
//
// Postcondition: Returns (acct, true, nil) on success, (Account{}, false,
// nil) when the failure was shown to the user, or a non-nil error on fatal
// connection errors.
func (h *Handler) handleLogin(ctx context.Context, conn *telnet.Conn, args []string) (postgres.Account, bool, error) {
	if len(args) < 1 {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: login <username> [password]"))
		return postgres.Account{}, false, nil
	}
	username := args[0]

	var password string
	if len(args) >= 2 {
		password = args[1]
	} else {
		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "Password: ")); err != nil {
			return postgres.Account{}, false, err
		}
		pw, err := conn.ReadPassword()
		if err != nil {
			return postgres.Account{}, false, fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimSpace(pw)
	}

	start := time.Now()
	acct, err := h.deps.Accounts.Authenticate(ctx, username, password)
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrAccountNotFound):
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Account not found. Use 'register' to create one."))
		case errors.Is(err, postgres.ErrInvalidCredentials):
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Invalid password."))
		default:
			h.deps.Logger.Error("authentication error", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
		}
		return postgres.Account{}, false, nil
	}

	_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen, "Welcome back, %s!", acct.Username))
	return acct, true, nil
}

func (h *Handler) handleRegister(ctx context.Context, conn *telnet.Conn, args []string) error {
	if len(args) < 1 {
		return conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: register <username> [password]"))
	}
	username := args[0]
	if len(username) < 3 || len(username) > 32 {
		return conn.WriteLine(telnet.Colorize(telnet.Red, "Username must be 3-32 characters."))
	}

	var password string
	if len(args) >= 2 {
		password = args[1]
	} else {
		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "Choose a password: ")); err != nil {
			return err
		}
		pw, err := conn.ReadPassword()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimSpace(pw)
	}
	if len(password) < 4 {
		return conn.WriteLine(telnet.Colorize(telnet.Red, "Password must be at least 4 characters."))
	}

	acct, err := h.deps.Accounts.Create(ctx, username, password)
	if err != nil {
		if errors.Is(err, postgres.ErrAccountExists) {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "That username is already taken."))
			return nil
		}
		h.deps.Logger.Error("registration error", zap.Error(err))
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
		return nil
	}

	_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen, "Account created: %s. You may now 'login'.", acct.Username))
	return nil
}

func (h *Handler) showAuthHelp(conn *telnet.Conn) {
	help := telnet.Colorize(telnet.BrightWhite, "Available commands:") + "\r\n" +
		telnet.Colorize(telnet.Green, "  login <username> [password]") + "    — Log in to your account\r\n" +
		telnet.Colorize(telnet.Green, "  register <username> [password]") + " — Create a new account\r\n" +
		telnet.Colorize(telnet.Green, "  help") + "                           — Show this help\r\n" +
		telnet.Colorize(telnet.Green, "  quit") + "                           — Disconnect\r\n"
	_ = conn.Write([]byte(help))
}

// isTimeout reports whether the read error is a deadline expiry rather than
// a closed connection.
func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

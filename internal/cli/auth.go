package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/existflow/blogdesk/internal/api"
	"github.com/existflow/blogdesk/internal/notify"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with the admin key",
	Long: `Verify the admin secret key with the server and start a local session.

Without --key the key is prompted for without echo.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the admin session",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the admin session",
	RunE:  runStatus,
}

var loginKey string

func init() {
	loginCmd.Flags().StringVar(&loginKey, "key", "", "Admin secret key")
}

// withApp opens the app for one command and closes it afterwards. Success
// notices are printed; failures come back as errors.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *appContext) error) error {
	out := cmd.OutOrStdout()
	printer := notify.Func(func(kind notify.Kind, msg string) {
		if kind == notify.KindSuccess {
			fmt.Fprintf(out, "✅ %s\n", msg)
		}
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := openApp(ctx, appConfig, printer)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

// friendly turns err into the message an admin should see
func friendly(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return errors.New(api.Message(err, fmt.Sprintf("%s: %v", fallback, err)))
}

func readKey(cmd *cobra.Command) (string, error) {
	if loginKey != "" {
		return loginKey, nil
	}

	out := cmd.OutOrStdout()
	fd := int(syscall.Stdin)
	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(fd) {
		fmt.Fprint(out, "Admin key: ")
		keyBytes, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return string(keyBytes), nil
	}

	// piped input
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	key, err := readKey(cmd)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *appContext) error {
		fmt.Fprintln(cmd.OutOrStdout(), "🔄 Verifying...")
		if err := app.auth.Login(ctx, key); err != nil {
			return friendly(err, "login failed")
		}
		sess := app.auth.Session()
		fmt.Fprintf(cmd.OutOrStdout(), "Session valid until %s\n", sess.ExpiresAt.Local().Format("Jan 02, 2006 15:04"))
		return nil
	})
}

func runLogout(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *appContext) error {
		if app.auth.Session().IsAnonymous() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "🔄 Logging out...")
		app.auth.Logout(ctx, false)
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *appContext) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "API:     %s\n", app.api.BaseURL())

		sess := app.auth.Session()
		now := time.Now()
		switch {
		case sess.IsAnonymous():
			fmt.Fprintln(out, "Session: not logged in")
		case sess.IsExpired(now):
			fmt.Fprintln(out, "Session: expired")
		default:
			fmt.Fprintf(out, "Session: active, expires %s (%s left)\n",
				sess.ExpiresAt.Local().Format("Jan 02, 2006 15:04"),
				sess.Remaining(now).Round(time.Minute))
		}
		return nil
	})
}

// ABOUTME: Gmail OAuth CLI command
// ABOUTME: Runs the browser flow with a local callback server or a manual code paste
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/harperreed/kontakt/sync"
)

// AuthCommand authorizes kontakt to read and send mail for the mailbox.
func AuthCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)
	manual := fs.Bool("manual", false, "Paste the authorization code instead of using a local callback")
	_ = fs.Parse(args)

	oauthCfg, err := sync.OAuthConfig()
	if err != nil {
		return err
	}

	state := uuid.NewString()
	authURL := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	var code string
	if *manual {
		code, err = readCode(app.Out, os.Stdin, authURL)
	} else {
		code, err = awaitCallback(ctx, app.Out, authURL, state)
	}
	if err != nil {
		return fmt.Errorf("OAuth flow failed: %w", err)
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	store := sync.DefaultTokenStore()
	if err := store.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Fprintf(app.Out, "\n✓ Authenticated successfully\n")
	fmt.Fprintf(app.Out, "✓ Tokens saved to %s\n\n", store.Path)
	fmt.Fprintln(app.Out, "Ready! Run 'kontakt poll' to process the mailbox once.")
	return nil
}

// callbackHandler accepts exactly one redirect carrying the expected state.
func callbackHandler(state string, codes chan<- string, errs chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var err error
		switch {
		case q.Get("error") != "":
			err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("state") != state:
			err = errors.New("state mismatch in OAuth callback")
		case q.Get("code") == "":
			err = errors.New("no authorization code received")
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			select {
			case errs <- err:
			default:
			}
			return
		}

		_, _ = fmt.Fprint(w, "Authorization successful! You can close this window.")
		select {
		case codes <- q.Get("code"):
		default:
		}
	})
}

func awaitCallback(ctx context.Context, out io.Writer, authURL, state string) (string, error) {
	redirect, err := url.Parse(sync.RedirectURL)
	if err != nil {
		return "", err
	}
	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", fmt.Errorf("failed to listen for callback on %s: %w", redirect.Host, err)
	}

	codes := make(chan string, 1)
	errs := make(chan error, 1)
	mux := http.NewServeMux()
	mux.Handle(redirect.Path, callbackHandler(state, codes, errs))

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errs <- err:
			default:
			}
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	fmt.Fprintln(out, "Opening browser for Google OAuth...")
	fmt.Fprintf(out, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)
	_ = openBrowser(authURL)

	select {
	case code := <-codes:
		return code, nil
	case err := <-errs:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// readCode is for hosts where the browser cannot reach localhost. The code
// is read without echo when in is a terminal.
func readCode(out io.Writer, in *os.File, authURL string) (string, error) {
	fmt.Fprintf(out, "Visit this URL and paste the code parameter of the redirect:\n%s\n\nCode: ", authURL)

	var code string
	if term.IsTerminal(int(in.Fd())) {
		raw, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read code: %w", err)
		}
		code = string(raw)
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read code: %w", err)
		}
		code = line
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return "", errors.New("no authorization code given")
	}
	return code, nil
}

func openBrowser(target string) error {
	name, args := "xdg-open", []string{target}
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		name, args = "cmd", []string{"/c", "start", target}
	}
	return exec.Command(name, args...).Start()
}

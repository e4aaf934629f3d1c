package auth

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// CodeSource obtains an authorization code from the user. Implementations
// differ only in how the Google consent redirect is captured; exchange and
// persistence stay in the Manager.
type CodeSource interface {
	// ObtainCode runs the consent flow and returns the authorization code
	// together with the redirect URI it was delivered to. The same redirect
	// URI must be presented during the code exchange.
	ObtainCode(ctx context.Context, conf *oauth2.Config) (code, redirectURI string, err error)
}

// NewCodeSource selects a grant strategy by name.
// "auto" (or "loopback") captures the redirect on a local listener,
// "manual" asks the user to paste the redirect URL or code.
func NewCodeSource(flow string, port int, in io.Reader, out io.Writer) (CodeSource, error) {
	switch flow {
	case "", "auto", "loopback":
		return &LoopbackCodeSource{Port: port, Out: out}, nil
	case "manual":
		return &ManualCodeSource{In: in, Out: out}, nil
	default:
		return nil, fmt.Errorf("unknown auth flow %q (expected auto or manual)", flow)
	}
}

func authCodeURL(conf *oauth2.Config, redirectURI, state string) string {
	c := *conf
	c.RedirectURL = redirectURI
	// Offline access with forced consent, otherwise Google omits the
	// refresh token on repeat grants and the session cannot survive expiry.
	return c.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// LoopbackCodeSource serves a one-shot HTTP listener on the loopback
// interface and captures the authorization code from the consent redirect.
type LoopbackCodeSource struct {
	// Port for the local listener; 0 picks a free port.
	Port int
	// Out receives the consent URL for the user to open. Defaults to stderr
	// semantics are up to the caller; nil discards.
	Out io.Writer
}

func (s *LoopbackCodeSource) ObtainCode(ctx context.Context, conf *oauth2.Config) (string, string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.Port))
	if err != nil {
		return "", "", fmt.Errorf("failed to start local callback listener: %w", err)
	}
	defer ln.Close()

	redirectURI := fmt.Sprintf("http://%s/callback", ln.Addr().String())

	state, err := randomState()
	if err != nil {
		return "", "", err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization redirect state mismatch")
			return
		}
		if errCode := q.Get("error"); errCode != "" {
			http.Error(w, "authorization failed: "+errCode, http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", errCode)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization redirect carried no code")
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		codeCh <- code
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if s.Out != nil {
		fmt.Fprintf(s.Out, "Open the following URL in your browser to authorize Gmail access:\n\n%s\n\n", authCodeURL(conf, redirectURI, state))
	}

	select {
	case code := <-codeCh:
		return code, redirectURI, nil
	case err := <-errCh:
		return "", "", err
	case <-ctx.Done():
		return "", "", fmt.Errorf("authorization cancelled: %w", ctx.Err())
	}
}

// manualRedirectURI is the redirect target used when no local listener runs.
// The browser lands on a dead page; the user copies the URL or code back.
const manualRedirectURI = "http://localhost"

// ManualCodeSource prints the consent URL and reads the authorization code
// (or the full redirect URL) from an input stream. For headless hosts where
// a loopback listener cannot be reached by the user's browser.
type ManualCodeSource struct {
	In  io.Reader
	Out io.Writer
}

func (s *ManualCodeSource) ObtainCode(ctx context.Context, conf *oauth2.Config) (string, string, error) {
	state, err := randomState()
	if err != nil {
		return "", "", err
	}

	if s.Out != nil {
		fmt.Fprintf(s.Out, "Open the following URL in your browser to authorize Gmail access:\n\n%s\n\nPaste the authorization code (or the full redirect URL) here: ", authCodeURL(conf, manualRedirectURI, state))
	}

	lineCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(s.In)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				errCh <- fmt.Errorf("failed to read authorization code: %w", err)
				return
			}
			errCh <- fmt.Errorf("no authorization code entered")
			return
		}
		lineCh <- strings.TrimSpace(sc.Text())
	}()

	select {
	case line := <-lineCh:
		code, err := parseAuthCode(line)
		if err != nil {
			return "", "", err
		}
		return code, manualRedirectURI, nil
	case err := <-errCh:
		return "", "", err
	case <-ctx.Done():
		return "", "", fmt.Errorf("authorization cancelled: %w", ctx.Err())
	}
}

// parseAuthCode accepts either a bare authorization code or the full
// redirect URL pasted from the browser address bar.
func parseAuthCode(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("no authorization code entered")
	}
	if !strings.Contains(input, "code=") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URL carries no authorization code")
	}
	return code, nil
}

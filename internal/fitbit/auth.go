package fitbit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"golang.org/x/oauth2"

	"github.com/erika-dike/fitbit-uploader/internal/config"
)

const (
	callbackAddr    = "127.0.0.1:8080"
	callbackPath    = "/callback"
	callbackTimeout = 120 * time.Second
)

// Authorize runs the one-time OAuth2 authorization-code flow with PKCE:
// opens the consent page in a browser, waits for the redirect on a local
// listener, exchanges the code for a token pair and persists it.
func Authorize(ctx context.Context, cfg *config.Config) error {
	oauth := oauthConfig(cfg)
	verifier := oauth2.GenerateVerifier()
	state, err := randomState()
	if err != nil {
		return err
	}

	authURL := oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	fmt.Println("\nOpening browser for Fitbit authorization...")
	fmt.Printf("If the browser doesn't open, visit this URL manually:\n%s\n\n", authURL)
	openBrowser(authURL)

	ln, err := net.Listen("tcp", callbackAddr)
	if err != nil {
		return fmt.Errorf("starting callback listener on %s: %w", callbackAddr, err)
	}

	fmt.Println("Waiting for callback...")
	code, err := waitForCallback(ctx, ln, callbackPath, state, callbackTimeout)
	if err != nil {
		return err
	}

	token, err := oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	if err := saveToken(cfg.TokenFile, token); err != nil {
		return fmt.Errorf("saving token file %s: %w", cfg.TokenFile, err)
	}

	fmt.Println("Authorization successful! Tokens saved.")
	return nil
}

type callbackResult struct {
	code string
	err  error
}

// waitForCallback serves exactly one OAuth redirect on ln and returns the
// authorization code, the provider's error, or a timeout error. The listener
// is torn down before returning.
func waitForCallback(ctx context.Context, ln net.Listener, path, state string, timeout time.Duration) (string, error) {
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			respondHTML(w, "Authorization failed: "+q.Get("error"))
			results <- callbackResult{err: fmt.Errorf("authorization denied: %s", q.Get("error"))}
		case q.Get("state") != state:
			respondHTML(w, "Authorization failed: state mismatch")
			results <- callbackResult{err: errors.New("callback state did not match")}
		case q.Get("code") == "":
			respondHTML(w, "Authorization failed: no code received")
			results <- callbackResult{err: errors.New("callback carried no authorization code")}
		default:
			respondHTML(w, "Authorization successful! You can close this tab.")
			results <- callbackResult{code: q.Get("code")}
		}
	})

	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		return res.code, res.err
	case <-time.After(timeout):
		return "", fmt.Errorf("no authorization callback received within %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func respondHTML(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, "<html><body><h2>%s</h2></body></html>", message)
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// openBrowser tries to open the URL in a browser
func openBrowser(url string) {
	var err error

	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

package fitbit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callbackListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func hitCallback(t *testing.T, ln net.Listener, query string) {
	t.Helper()
	go func() {
		// Give waitForCallback a moment to start serving.
		time.Sleep(50 * time.Millisecond)
		resp, err := http.Get(fmt.Sprintf("http://%s/callback?%s", ln.Addr(), query))
		if err == nil {
			resp.Body.Close()
		}
	}()
}

func TestWaitForCallbackCode(t *testing.T) {
	ln := callbackListener(t)
	hitCallback(t, ln, "state=xyz&code=abc123")

	code, err := waitForCallback(context.Background(), ln, "/callback", "xyz", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "abc123", code)
}

func TestWaitForCallbackDenied(t *testing.T) {
	ln := callbackListener(t)
	hitCallback(t, ln, "state=xyz&error=access_denied")

	_, err := waitForCallback(context.Background(), ln, "/callback", "xyz", 5*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")
}

func TestWaitForCallbackStateMismatch(t *testing.T) {
	ln := callbackListener(t)
	hitCallback(t, ln, "state=forged&code=abc123")

	_, err := waitForCallback(context.Background(), ln, "/callback", "xyz", 5*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state")
}

func TestWaitForCallbackTimeout(t *testing.T) {
	ln := callbackListener(t)

	_, err := waitForCallback(context.Background(), ln, "/callback", "xyz", 100*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authorization callback")
}

// Package server exposes the fetch-and-write pipeline over HTTP so a daily
// run can be triggered from a browser or cron hitting a single URL.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/erika-dike/fitbit-uploader/internal/fitbit"
)

const dateLayout = "2006-01-02"

// Pipeline runs the fetch-and-write sequence for one date.
type Pipeline interface {
	Run(ctx context.Context, day time.Time) (fitbit.Metrics, error)
}

type Handler struct {
	apiKey   string
	pipeline Pipeline

	// One pipeline run at a time; the credential file is not safe for
	// concurrent refresh.
	mu sync.Mutex
}

// NewHandler returns the route table for the trigger listener.
func NewHandler(apiKey string, pipeline Pipeline) http.Handler {
	h := &Handler{apiKey: apiKey, pipeline: pipeline}

	r := chi.NewRouter()
	r.Get("/fetch", h.fetch)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		plainText(w, http.StatusNotFound, "Not found. Use /fetch?key=YOUR_API_KEY")
	})
	return r
}

// NewServer wraps the handler in an http.Server. The write timeout is
// generous because a pipeline run makes a dozen upstream calls.
func NewServer(port int, apiKey string, pipeline Pipeline) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewHandler(apiKey, pipeline),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  time.Minute,
	}
}

func (h *Handler) fetch(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
		plainText(w, http.StatusForbidden, "Forbidden: invalid or missing API key.")
		return
	}

	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			plainText(w, http.StatusBadRequest, fmt.Sprintf("Bad date format: %s. Use YYYY-MM-DD.", raw))
			return
		}
		day = parsed
	}

	h.mu.Lock()
	metrics, err := h.pipeline.Run(r.Context(), day)
	h.mu.Unlock()
	if err != nil {
		plainText(w, http.StatusInternalServerError, fmt.Sprintf("Error: %v", err))
		return
	}

	plainText(w, http.StatusOK, fmt.Sprintf("OK - Fitbit data for %s written to sheet.\n\n%s",
		day.Format(dateLayout), summarize(metrics)))
}

func summarize(metrics fitbit.Metrics) string {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %v\n", k, metrics[k])
	}
	return b.String()
}

func plainText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, body)
}

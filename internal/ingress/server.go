// Package ingress receives edit events pushed by the spreadsheet host over HTTP.
package ingress

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sheet_notify/internal/edits"
	"sheet_notify/internal/processing"

	"github.com/rs/zerolog/log"
)

const (
	EditPath     = "/edit"
	SecretHeader = "X-Webhook-Secret"

	maxBodyBytes             = 1 << 20
	defaultShutdownTimeout   = 5 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
)

type EditHandler interface {
	HandleEdit(ctx context.Context, raw edits.RawEvent) processing.Result
}

type editResponse struct {
	EventID       string `json:"event_id"`
	Filtered      string `json:"filtered,omitempty"`
	Status        string `json:"status,omitempty"`
	NewRecord     string `json:"new_record,omitempty"`
	Notifications int    `json:"notifications"`
}

// NewHandler serves POST /edit and GET /healthz. An empty secret disables the
// shared-secret check.
func NewHandler(handler EditHandler, secret string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", writeHealthStatus)
	mux.HandleFunc(EditPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(secret)) != 1 {
			log.Warn().Str("remote", r.RemoteAddr).Msg("Rejected edit event with bad secret")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var raw edits.RawEvent
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&raw); err != nil {
			log.Debug().Err(err).Msg("Failed to decode edit event")
			http.Error(w, "invalid json payload", http.StatusBadRequest)
			return
		}

		// The host does not wait for delivery, so a dropped connection must not cancel it.
		result := handler.HandleEdit(context.WithoutCancel(r.Context()), raw)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(editResponse{
			EventID:       result.EventID,
			Filtered:      result.Filtered,
			Status:        string(result.Status.Outcome),
			NewRecord:     string(result.NewRecord.Outcome),
			Notifications: result.Notifications(),
		})
	})
	return mux
}

// Run serves handler on addr until ctx is cancelled.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = ":8080"
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- httpServer.ListenAndServe()
	}()
	log.Info().Str("addr", addr).Msg("Listening for edit events")

	select {
	case err := <-serveErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		shutdownErr := httpServer.Shutdown(shutdownCtx)
		serveErr := <-serveErrCh
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
			return fmt.Errorf("shutdown server: %w", shutdownErr)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve after shutdown: %w", serveErr)
		}
		log.Info().Msg("Edit listener stopped")
		return nil
	}
}

func writeHealthStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

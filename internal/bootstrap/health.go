package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/social-autoposter/internal/scheduler"
	"github.com/social-autoposter/pkg/logger"
)

// StatusSource exposes the scheduler snapshot
type StatusSource interface {
	Status() scheduler.Status
}

type healthResponse struct {
	Status    string     `json:"status"`
	State     string     `json:"state"`
	Completed int        `json:"completed"`
	LastCycle *time.Time `json:"last_cycle,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	Success   int        `json:"last_success"`
	Simulated int        `json:"last_simulated"`
	Failed    int        `json:"last_failed"`
}

// HealthHandler serves /health with the scheduler status
func HealthHandler(src StatusSource) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		st := src.Status()
		resp := healthResponse{
			Status:    "ok",
			State:     st.State.String(),
			Completed: st.Completed,
			Success:   st.LastSummary.Success,
			Simulated: st.LastSummary.Simulated,
			Failed:    st.LastSummary.Failed,
		}
		if !st.LastCycleAt.IsZero() {
			resp.LastCycle = &st.LastCycleAt
		}
		if !st.NextRunAt.IsZero() {
			resp.NextRun = &st.NextRunAt
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Social Autoposter"))
	})
	return mux
}

// ServeHealth runs the health endpoint on port until ctx is done
func ServeHealth(ctx context.Context, port string, src StatusSource, log *logger.Logger) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           HealthHandler(src),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", port).Msg("Health check server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Health server failed")
	}
}

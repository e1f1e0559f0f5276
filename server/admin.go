package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wgnet/clacks/internal/config"
)

// adminServer is the HTTP side channel alongside the TCP command
// ports: Prometheus scraping and a liveness probe. Grounded on
// ruaan-deysel-unraid-management-agent's daemon/services/api/server.go
// (mux.NewRouter plus an *http.Server with fixed read/write timeouts)
// and its metrics.go (promhttp.HandlerFor against a private registry).
type adminServer struct {
	cfg     config.AdminConfig
	metrics *Metrics
	srv     *http.Server
}

func newAdminServer(cfg config.AdminConfig, metrics *Metrics) *adminServer {
	router := mux.NewRouter()
	a := &adminServer{cfg: cfg, metrics: metrics}

	router.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)

	a.srv = &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return a
}

func (a *adminServer) enabled() bool { return a.cfg.Enabled }

func (a *adminServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// run serves the admin HTTP surface until ctx is cancelled.
func (a *adminServer) run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.srv.Shutdown(shutdownCtx)
	}()

	err := a.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

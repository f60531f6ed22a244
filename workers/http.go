package workers

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"gowicpbridge/config"
	"gowicpbridge/logger"
	"gowicpbridge/workers/handlers"
)

func NewRouter(api *handlers.API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Options("/*", CORSHeaders)

	r.Get("/state", api.State)
	r.Get("/health", api.HealthCheck)

	r.Get("/config", api.GetConfig)
	r.Post("/identity", api.PostIdentity)

	r.Post("/deposits", api.PostDeposit)
	r.Get("/deposits/{id}", api.GetDeposit)
	r.Post("/deposits/{id}/deposit", api.PostDepositRetry)
	r.Post("/deposits/{id}/mint", api.PostMint)
	r.Post("/deposits/{id}/reset", api.PostReset)
	r.Get("/ledger/deposits", api.GetLedgerDeposits)

	r.Post("/burns", api.PostBurn)
	r.Get("/burns/{id}", api.GetBurn)
	r.Post("/burns/{id}/retry", api.PostBurnRetry)

	r.Get("/dashboard", api.GetDashboard)
	r.Post("/dashboard/refresh", api.PostDashboardRefresh)
	r.Get("/dashboard/audit", api.GetAudit)

	r.Get("/stats/{status}", api.GetOperations)

	return r
}

// Worker_HTTP serves handler until ctx is done, then shuts down gracefully.
func Worker_HTTP(ctx context.Context, cfg *config.Configuration, handler http.Handler) error {
	logger.Info("starting HTTP service", "listen", cfg.Server.Listen, "ssl", cfg.Server.UseSSL)

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Server.UseSSL {
		cert, err := tls.LoadX509KeyPair(cfg.Server.CertFile, cfg.Server.KeyFile)
		if err != nil {
			return errors.Wrap(err, "cannot load TLS key pair")
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	failed := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.UseSSL {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		close(failed)
	}()
	logger.Info("HTTP service started")

	select {
	case err := <-failed:
		return errors.Wrap(err, "error listening")
	case <-ctx.Done():
	}
	logger.Info("HTTP service stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP service shutdown error")
	}
	logger.Info("HTTP service shutdown normal")
	return nil
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Requested-With")
}

// requestLogger tags the request context with its id and logs the outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithContext(r.Context(), "requestId", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.DebugContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

package telegram

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/bloodlife/core/logger"
)

// startHealthListener serves a bare 200 responder so hosting platforms can
// probe the process while it runs in longpoll mode. It shuts down with ctx.
func startHealthListener(ctx context.Context, listen string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info(ctx, "tg", "health.listen",
			slog.String("listen", listen),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "tg", "health.listen",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"semdex/internal/app"
	"semdex/internal/contextutil"
	"semdex/internal/handlers"
	"semdex/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the HTTP API on the configured port. When INDEX_ON_OPEN is set,
a full reindex of the corpus runs in the background after startup.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// searchEngineOrNil returns a nil interface when search is not configured, so
// the handler's nil check works despite the concrete pointer type.
func searchEngineOrNil(a *app.App) handlers.SearchEngine {
	if a.Search == nil {
		return nil
	}
	return a.Search
}

func answerEngineOrNil(a *app.App) handlers.AnswerEngine {
	if a.Answerer == nil {
		return nil
	}
	return a.Answerer
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	router := http.NewRouter(http.Deps{
		Index:  handlers.NewIndexHandler(a.Pipeline),
		Search: handlers.NewSearchHandler(searchEngineOrNil(a)),
		Ask:    handlers.NewAskHandler(answerEngineOrNil(a)),
		Status: handlers.NewStatusHandler(a.Pipeline, a.Config.SearchEnabled(), a.Config.AnswerEnabled()),
		Health: handlers.NewHealthHandler(a.Vectors, a.Config.QdrantCollection),
	})

	if a.Config.IndexOnOpen && a.Pipeline != nil {
		go func() {
			indexCtx := contextutil.WithLogger(context.Background(), a.Logger)
			a.Logger.Info("starting background indexing")
			summary, err := a.Pipeline.Reindex(indexCtx)
			if err != nil {
				a.Logger.Error("background indexing failed", "error", err)
				return
			}
			a.Logger.Info("background indexing completed",
				"created", summary.Created,
				"updated", summary.Updated,
				"deleted", summary.Deleted,
				"unchanged", summary.Unchanged,
				"failed", summary.Failed,
			)
		}()
	}

	server := &nethttp.Server{
		Addr:              ":" + a.Config.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting API server", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

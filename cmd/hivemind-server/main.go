// Command hivemind-server runs the agent-facing MCP Tool Surface, the SSE
// event stream, and the background Notifier fan-out loop, wiring every
// singleton service together the way the teacher's cmd/controller/main.go
// wires its own server from components.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hivemind-dev/hivemind/internal/auth"
	"github.com/hivemind-dev/hivemind/internal/config"
	"github.com/hivemind-dev/hivemind/internal/embedder"
	"github.com/hivemind-dev/hivemind/internal/env"
	"github.com/hivemind-dev/hivemind/internal/ingest"
	"github.com/hivemind-dev/hivemind/internal/logging"
	"github.com/hivemind-dev/hivemind/internal/mcpserver"
	"github.com/hivemind-dev/hivemind/internal/notifier"
	"github.com/hivemind-dev/hivemind/internal/retrieval"
	"github.com/hivemind-dev/hivemind/internal/sanitizer"
	"github.com/hivemind-dev/hivemind/internal/sse"
	"github.com/hivemind-dev/hivemind/internal/store"
	"github.com/hivemind-dev/hivemind/internal/tracing"
)

// version is stamped at build time via -ldflags; defaults to "dev" for local builds.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	zl, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zl.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logging.Into(ctx, zapr.NewLogger(zl))
	log := logging.From(ctx).WithName("hivemind-server")

	if env.TracingEnabled.Get() {
		tracing.EnableSampling()
	}

	st, err := store.NewPostgresStore(store.Config{
		URL:     env.PostgresURL.Get(),
		URLFile: env.PostgresURLFile.Get(),
	})
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	defer st.Close()

	emb := embedder.New(embedder.Config{
		APIKey:     env.OpenAIAPIKey.Get(),
		BaseURL:    env.OpenAIBaseURL.Get(),
		ModelID:    env.EmbeddingModelID.Get(),
		Dimensions: env.EmbeddingDimensions.Get(),
		QueueDepth: env.EmbedderQueueDepth.Get(),
	})

	if err := st.EnsureDeploymentIdentity(ctx, emb.ModelID(), emb.Revision(), emb.Dimensions()); err != nil {
		return fmt.Errorf("deployment identity check: %w", err)
	}

	san := sanitizer.New(env.SanitiserQueueDepth.Get())

	ing := ingest.New(san, st, ingest.Config{
		MaxContentLength: env.ContentMaxLength.Get(),
		RatioCeiling:     env.RedactionRatioCeiling.Get(),
	})
	ret := retrieval.New(st, emb)

	credentials, err := config.LoadCredentials(env.CredentialsFile.Get())
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	authr := auth.NewStaticTokenAuthenticator(credentials)

	notif := notifier.New(env.SubscriberBufferSize.Get(), env.HeartbeatInterval.Get())
	approvals, err := st.SubscribeApprovals(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to approvals: %w", err)
	}
	go notif.Run(ctx, approvals)

	mcpHandler := mcpserver.New(version, ing, ret, st, authr)
	sseHandler := sse.New(notif, authr)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/events", sseHandler)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:        env.ListenAddr.Get(),
		Handler:     mux,
		ReadTimeout: env.RequestDeadline.Get(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

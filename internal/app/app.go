// Package app wires the full specgate service: outbound adapters, use
// cases, the HTTP API and the MCP preview surface. Both the server
// binary and the CLI serve command run through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/speclab/specgate/configs"
	"github.com/speclab/specgate/internal/adapter/inbound/httpapi"
	"github.com/speclab/specgate/internal/adapter/inbound/mcppreview"
	"github.com/speclab/specgate/internal/adapter/outbound/evaluator"
	"github.com/speclab/specgate/internal/adapter/outbound/fetch"
	"github.com/speclab/specgate/internal/adapter/outbound/genaieval"
	"github.com/speclab/specgate/internal/adapter/outbound/github"
	"github.com/speclab/specgate/internal/adapter/outbound/openapi"
	"github.com/speclab/specgate/internal/adapter/outbound/postman"
	"github.com/speclab/specgate/internal/adapter/outbound/ruleeval"
	"github.com/speclab/specgate/internal/adapter/outbound/sessionrepo"
	"github.com/speclab/specgate/internal/domain"
	"github.com/speclab/specgate/internal/usecase"
)

// App holds the wired service.
type App struct {
	cfg    *configs.Config
	logger *slog.Logger

	mcpServer *mcpGoServer.MCPServer
	handlers  *httpapi.Handlers
	registrar *mcppreview.Registrar

	createSession *usecase.CreateSessionUseCase
	classify      *usecase.ClassifyCapabilitiesUseCase
	sessions      usecase.SessionRepository
}

// New builds the dependency graph. The context is only used for client
// construction, not retained.
func New(ctx context.Context, cfg *configs.Config, logger *slog.Logger) (*App, error) {
	// --- Outbound adapters ---
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	fetcher := fetch.NewFetcher(httpClient, github.NewClient(logger), logger)
	normalizers := map[domain.SourceFormat]usecase.SpecNormalizer{
		domain.FormatOpenAPI:    openapi.NewNormalizer(logger),
		domain.FormatCollection: postman.NewNormalizer(logger),
	}
	linter := openapi.NewLinter(logger)
	logger.Debug("Spec fetcher and normalizers initialized.")

	rules := ruleeval.NewEvaluator(logger)
	var model usecase.CapabilityEvaluator
	if cfg.GeminiAPIKey != "" {
		genaiEval, err := genaieval.NewEvaluator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create model evaluator: %w", err)
		}
		model = evaluator.NewFallback(genaiEval, rules, cfg.ClassifyBatchSize, logger)
		logger.Info("Model evaluator configured.", slog.String("model", cfg.GeminiModel))
	} else {
		logger.Info("No Gemini API key configured, classification uses rules only.")
	}

	var repo usecase.SessionRepository
	if cfg.SessionDir == "" {
		repo = sessionrepo.NewMemorySessionRepository(logger)
		logger.Info("Session persistence disabled, sessions are held in memory only.")
	} else {
		fileRepo, err := sessionrepo.NewFileSessionRepository(cfg.SessionDir, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create session repository: %w", err)
		}
		repo = fileRepo
	}

	// --- Use cases ---
	ingest := usecase.NewIngestSpecUseCase(fetcher, normalizers, linter, logger)
	createSession := usecase.NewCreateSessionUseCase(ingest, rules, repo, logger)
	classify := usecase.NewClassifyCapabilitiesUseCase(rules, model, repo, logger)
	confirm := usecase.NewConfirmExposureUseCase(repo, logger)

	// --- Inbound adapters ---
	handlers := httpapi.NewHandlers(createSession, classify, confirm, repo, logger)
	mcpSrv := mcpGoServer.NewMCPServer("specgate", "0.1.0")
	registrar := mcppreview.NewRegistrar(mcpSrv, logger)

	return &App{
		cfg:           cfg,
		logger:        logger,
		mcpServer:     mcpSrv,
		handlers:      handlers,
		registrar:     registrar,
		createSession: createSession,
		classify:      classify,
		sessions:      repo,
	}, nil
}

// SyncSpecSources ingests every configured source and registers its
// approved capabilities as preview tools. A failing source is skipped so
// startup continues.
func (a *App) SyncSpecSources(ctx context.Context) {
	if len(a.cfg.SpecSources) == 0 {
		return
	}
	policy, err := domain.ParsePolicy(a.cfg.Policy)
	if err != nil {
		a.logger.Error("Invalid configured policy, skipping spec source sync.", slog.Any("error", err))
		return
	}

	a.logger.Info("Syncing configured spec sources.", slog.Int("count", len(a.cfg.SpecSources)))
	for _, source := range a.cfg.SpecSources {
		session, err := a.createSession.Execute(ctx, source)
		if err != nil {
			a.logger.Error("Failed to ingest configured source.",
				slog.String("source", source), slog.Any("error", err))
			continue
		}

		// Session creation always classifies under moderate rules; rerun
		// when the configured policy or model asks for more.
		if policy != domain.PolicyModerate || a.cfg.UseModel {
			if _, err := a.classify.Execute(ctx, session.ID, policy, a.cfg.UseModel); err != nil {
				a.logger.Error("Failed to classify configured source.",
					slog.String("source", source), slog.Any("error", err))
				continue
			}
			session, err = a.sessions.Find(ctx, session.ID)
			if err != nil {
				a.logger.Error("Failed to reload session after classification.",
					slog.String("source", source), slog.Any("error", err))
				continue
			}
		}

		a.registrar.RegisterSession(ctx, session)
	}
}

// Run serves until ctx is cancelled. SSE mode runs the HTTP API and the
// MCP SSE server on separate listeners; stdio mode speaks MCP on
// stdin/stdout only so stdout stays protocol-clean.
func (a *App) Run(ctx context.Context, transport string) error {
	switch transport {
	case "stdio":
		a.logger.Info("Starting in STDIO mode")

		stdioServer := mcpGoServer.NewStdioServer(a.mcpServer)
		if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
			return fmt.Errorf("stdio server error: %w", err)
		}
		return nil

	case "sse":
		a.logger.Info("Starting in SSE mode")
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		apiMux := http.NewServeMux()
		a.handlers.RegisterRoutes(apiMux)
		apiMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "OK\n")
		})
		apiServer := &http.Server{
			Addr:         a.cfg.ListenAddr,
			Handler:      apiMux,
			ReadTimeout:  a.cfg.ServerReadTimeout,
			WriteTimeout: a.cfg.ServerWriteTimeout,
			IdleTimeout:  a.cfg.ServerIdleTimeout,
		}
		go func() {
			a.logger.Info("HTTP API server starting.", slog.String("address", apiServer.Addr))
			if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("HTTP API server failed.", slog.Any("error", err))
				cancel()
			}
		}()

		sseServer := mcpGoServer.NewSSEServer(a.mcpServer, mcpGoServer.WithBaseURL("http://"+a.cfg.MCPListenAddr))
		go func() {
			a.logger.Info("MCP SSE server starting.", slog.String("address", a.cfg.MCPListenAddr))
			if err := sseServer.Start(a.cfg.MCPListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("MCP SSE server failed.", slog.Any("error", err))
				cancel()
			}
		}()

		// Wait for interrupt signal.
		<-ctx.Done()

		a.logger.Info("Shutting down servers...")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancelShutdown()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP API server graceful shutdown failed.", slog.Any("error", err))
		}
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("MCP SSE server graceful shutdown failed.", slog.Any("error", err))
		}

		a.logger.Info("Servers shut down gracefully.")
		return nil

	default:
		return fmt.Errorf("invalid transport mode %q (expected sse or stdio)", transport)
	}
}

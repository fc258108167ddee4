package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hive-corporation/responder/internal/adapter/handler"
	"github.com/hive-corporation/responder/internal/adapter/notifier"
	"github.com/hive-corporation/responder/internal/adapter/provider"
	"github.com/hive-corporation/responder/internal/adapter/resilient"
	"github.com/hive-corporation/responder/internal/adapter/webex"
	"github.com/hive-corporation/responder/internal/commands"
	"github.com/hive-corporation/responder/internal/config"
	"github.com/hive-corporation/responder/internal/core/dispatch"
	"github.com/hive-corporation/responder/internal/metrics"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		hclog.Default().Error("❌ failed to load configuration", "error", err)
		return 1
	}
	logger := cfg.Log.NewLogger("responder")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.InitMetrics()
	logger.Info("✅ Prometheus metrics initialized")

	upstream := resilient.ConfigFrom(cfg.Upstream)
	client := func(vendor string) *resilient.Client {
		return resilient.New(vendor, upstream, logger)
	}

	webexClient := webex.NewClient(cfg.Webex.APIURL, cfg.Webex.AccessToken, client("Webex"), logger)
	me, err := webexClient.Me(ctx)
	if err != nil {
		logger.Error("❌ Webex rejected the access token", "error", err)
		return 1
	}
	logger.Info("🤖 connected to Webex", "bot", me.DisplayName, "email", me.Email())

	registry := dispatch.NewRegistry()
	err = commands.RegisterAll(registry, commands.Deps{
		Endpoint:     provider.NewSecureEndpointProvider(client("Secure Endpoint"), cfg.Endpoint),
		DNS:          provider.NewUmbrellaReportsProvider(client("Umbrella Reporting"), cfg.Umbrella),
		Investigator: provider.NewUmbrellaInvestigateProvider(client("Umbrella Investigate"), cfg.Umbrella),
		IPReputation: provider.NewSpamhausProvider(client("Spamhaus"), cfg.Spamhaus),
		Mailer:       notifier.NewMailNotifier(cfg.SMTP, logger),
		Logger:       logger,
	})
	if err != nil {
		logger.Error("❌ failed to register commands", "error", err)
		return 1
	}
	logger.Info("✅ commands registered", "count", len(registry.Commands()))

	policy := dispatch.AccessPolicy{Domain: cfg.Access.Domain, User: cfg.Access.User}
	if policy.Domain == "" && policy.User == "" {
		logger.Warn("⚠️ no access restriction configured - every sender is allowed")
	}
	dispatcher := dispatch.NewDispatcher(registry, policy, logger)

	if cfg.Webex.WebhookTargetURL != "" {
		if err := webexClient.EnsureWebhooks(ctx, cfg.Webex.WebhookTargetURL, cfg.Webex.WebhookSecret); err != nil {
			logger.Error("❌ failed to register webhooks", "error", err)
			return 1
		}
	} else {
		logger.Warn("⚠️ WEBEX_WEBHOOK_TARGET_URL not set - webhooks must be registered manually")
	}

	// Cancelled only when draining times out.
	taskCtx, cancelTasks := context.WithCancel(context.Background())
	defer cancelTasks()

	sessions := handler.NewSessions()
	webhook := handler.NewWebhookHandler(taskCtx, webexClient, dispatcher, sessions, handler.WebhookConfig{
		BotID:      me.ID,
		BotName:    me.DisplayName,
		Secret:     cfg.Webex.WebhookSecret,
		DenySilent: cfg.Access.DenySilent,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler.NewRouter(webhook, cfg.Server.AuthToken, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var health *handler.HealthServer
	if addr := cfg.Server.HealthGRPCAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("❌ failed to listen for gRPC health", "addr", addr, "error", err)
			return 1
		}
		health = handler.NewHealthServer(logger)
		go func() {
			if err := health.Serve(lis); err != nil {
				logger.Error("❌ gRPC health server stopped", "error", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("🚀 responder listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	if health != nil {
		health.SetServing(true)
	}

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("🛑 shutting down")
	case err := <-serveErr:
		logger.Error("❌ failed to start server", "error", err)
		exitCode = 1
	}

	if health != nil {
		health.SetServing(false)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ server forced to shutdown", "error", err)
	}
	if err := sessions.Drain(shutdownCtx); err != nil {
		logger.Warn("⚠️ in-flight messages abandoned", "active", sessions.Active(), "error", err)
		cancelTasks()
	}
	if health != nil {
		health.Stop()
	}

	logger.Info("✅ stopped gracefully")
	return exitCode
}

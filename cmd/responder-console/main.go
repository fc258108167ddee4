package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/hive-corporation/responder/internal/adapter/notifier"
	"github.com/hive-corporation/responder/internal/adapter/provider"
	"github.com/hive-corporation/responder/internal/adapter/resilient"
	"github.com/hive-corporation/responder/internal/commands"
	"github.com/hive-corporation/responder/internal/config"
	"github.com/hive-corporation/responder/internal/core/dispatch"
	"github.com/hive-corporation/responder/internal/core/domain"
)

func main() {
	sender := flag.String("as", "", "Email address to run commands as (default: WEBEX_RESTRICT_USER)")
	flag.Parse()

	cfg, err := config.LoadLocal()
	if err != nil {
		hclog.Default().Error("❌ failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger("responder-console")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	upstream := resilient.ConfigFrom(cfg.Upstream)
	client := func(vendor string) *resilient.Client {
		return resilient.New(vendor, upstream, logger)
	}

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
		os.Exit(1)
	}

	email := *sender
	if email == "" {
		email = cfg.Access.User
	}
	policy := dispatch.AccessPolicy{Domain: cfg.Access.Domain, User: cfg.Access.User}
	dispatcher := dispatch.NewDispatcher(registry, policy, logger)

	fmt.Fprintf(os.Stderr, "🔍 responder console, running as %q. Type help for commands.\n", email)
	if err := repl(ctx, os.Stdin, os.Stdout, dispatcher, domain.Sender{Email: email, DisplayName: email}); err != nil {
		logger.Error("❌ failed to read input", "error", err)
		os.Exit(1)
	}
}

type dispatcher interface {
	Dispatch(ctx context.Context, raw string, sender domain.Sender) dispatch.Result
}

// repl dispatches one command per input line and prints each card.
func repl(ctx context.Context, in io.Reader, out io.Writer, d dispatcher, sender domain.Sender) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}

		result := d.Dispatch(ctx, line, sender)
		fmt.Fprintln(out, result.Card.Text())
		fmt.Fprintln(out, "------------------------------------------------")
	}
	return scanner.Err()
}

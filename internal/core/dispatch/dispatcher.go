package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/hive-corporation/responder/internal/core/domain"
	"github.com/hive-corporation/responder/internal/metrics"
	"github.com/hive-corporation/responder/internal/render"
)

type ResultKind string

const (
	ResultCard   ResultKind = "card"
	ResultHelp   ResultKind = "help"
	ResultError  ResultKind = "error"
	ResultDenied ResultKind = "denied"
)

// Result is the outcome of one dispatched message. Card is always set.
type Result struct {
	Kind      ResultKind
	Command   string // empty unless a command matched
	Card      domain.Card
	Err       error
	RequestID string
}

type Dispatcher struct {
	registry *Registry
	policy   AccessPolicy
	logger   hclog.Logger
}

func NewDispatcher(registry *Registry, policy AccessPolicy, logger hclog.Logger) *Dispatcher {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Dispatcher{
		registry: registry,
		policy:   policy,
		logger:   logger.Named("dispatch"),
	}
}

// Dispatch checks the sender against the access policy, then runs the
// command named by the first word of raw with the rest as its arguments.
// Unknown commands, and empty input, get the help card.
func (d *Dispatcher) Dispatch(ctx context.Context, raw string, sender domain.Sender) Result {
	metrics.MessageStarted()
	defer metrics.MessageFinished()

	requestID := uuid.NewString()
	log := d.logger.With("request_id", requestID, "sender", sender.Email)

	if !IsAllowed(sender, d.policy) {
		metrics.RecordAccessDenied()
		metrics.RecordCommand("", string(ResultDenied))
		log.Warn("🚫 access denied")
		return Result{
			Kind:      ResultDenied,
			Card:      render.Denied(sender),
			Err:       &domain.AccessDeniedError{Email: sender.Email},
			RequestID: requestID,
		}
	}

	name, args := splitCommand(raw)

	cmd, ok := d.registry.Lookup(name)
	if !ok {
		metrics.RecordCommand("", string(ResultHelp))
		log.Debug("no matching command, sending help", "input", name)
		return Result{Kind: ResultHelp, Card: HelpCard(d.registry), RequestID: requestID}
	}

	cmdName := cmd.Name()
	log = log.With("command", cmdName)
	log.Info("▶️ running command", "args", args)

	timer := metrics.StartTimer(cmdName)
	card, err := d.execute(ctx, cmd, args, sender)
	timer.ObserveDuration()

	if err != nil {
		kind := domain.KindOf(err)
		metrics.RecordCommand(cmdName, string(ResultError))
		if kind == domain.KindInternal {
			log.Error("❌ command failed", "kind", kind, "error", err)
		} else {
			log.Warn("⚠️ command failed", "kind", kind, "error", err)
		}
		return Result{
			Kind:      ResultError,
			Command:   cmdName,
			Card:      render.Error(err),
			Err:       err,
			RequestID: requestID,
		}
	}

	metrics.RecordCommand(cmdName, string(ResultCard))
	log.Info("✅ command finished")
	return Result{Kind: ResultCard, Command: cmdName, Card: card, RequestID: requestID}
}

// execute runs the handler, turning a panic into an internal error.
func (d *Dispatcher) execute(ctx context.Context, cmd Command, args string, sender domain.Sender) (card domain.Card, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("🔥 command panicked", "command", cmd.Name(), "panic", r, "stack", string(debug.Stack()))
			card = domain.Card{}
			err = fmt.Errorf("command %s panicked: %v", cmd.Name(), r)
		}
	}()
	return cmd.Execute(ctx, args, sender)
}

// splitCommand returns the first word of raw and the trimmed remainder.
func splitCommand(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	idx := strings.IndexFunc(raw, unicode.IsSpace)
	if idx == -1 {
		return raw, ""
	}
	return raw[:idx], strings.TrimSpace(raw[idx:])
}

// HelpCard lists every registered command in registration order.
func HelpCard(registry *Registry) domain.Card {
	commands := registry.Commands()
	entries := make([]render.HelpEntry, 0, len(commands))
	for _, c := range commands {
		entries = append(entries, render.HelpEntry{Name: c.Name(), Help: c.Help()})
	}
	return render.Help(entries)
}

// NewHelpCommand returns the "help" command.
func NewHelpCommand(registry *Registry) Command {
	return Definition{
		CommandName: "help",
		HelpText:    "Show this list of commands",
		Handler: func(ctx context.Context, args string, sender domain.Sender) (domain.Card, error) {
			return HelpCard(registry), nil
		},
	}
}

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/hive-corporation/responder/internal/core/domain"
	"github.com/hive-corporation/responder/internal/core/ports"
	"github.com/hive-corporation/responder/internal/render"
)

// ActionsCommand shows the containment actions for a computer. Its buttons
// dispatch the isolate and notify commands.
type ActionsCommand struct{}

func NewActionsCommand() *ActionsCommand {
	return &ActionsCommand{}
}

func (c *ActionsCommand) Name() string { return "actions" }

func (c *ActionsCommand) Help() string {
	return "See potential actions to take against a compromised computer"
}

func (c *ActionsCommand) Execute(ctx context.Context, args string, sender domain.Sender) (domain.Card, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return domain.Card{}, &domain.ArgumentError{
			Command: c.Name(),
			Message: "Please provide a computer name",
			Usage:   "actions <computername>",
		}
	}
	return render.ContainmentActions(fields[0]), nil
}

// IsolateCommand isolates a computer from the network and tells its user.
type IsolateCommand struct {
	endpoint ports.EndpointProvider
	mailer   ports.Mailer
	logger   hclog.Logger
}

func NewIsolateCommand(endpoint ports.EndpointProvider, mailer ports.Mailer, logger hclog.Logger) *IsolateCommand {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &IsolateCommand{
		endpoint: endpoint,
		mailer:   mailer,
		logger:   logger.Named("isolate"),
	}
}

func (c *IsolateCommand) Name() string { return "isolate" }

func (c *IsolateCommand) Help() string {
	return "Isolate a computer through Secure Endpoint and email its user, ex. isolate WIN-7 jdoe@example.com"
}

// Execute isolates the computer, then emails the given address, or the
// computer's user when it looks like an address. A failed email is reported
// on the card and never undoes the isolation.
func (c *IsolateCommand) Execute(ctx context.Context, args string, sender domain.Sender) (domain.Card, error) {
	usage := "isolate <computername> [email]"

	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 2 {
		return domain.Card{}, &domain.ArgumentError{Command: c.Name(), Message: "Please provide a computer name", Usage: usage}
	}
	hostname := fields[0]

	var recipient string
	if len(fields) == 2 {
		recipient = domain.Refang(fields[1])
		if !domain.LooksLikeEmail(recipient) {
			return domain.Card{}, &domain.ArgumentError{Command: c.Name(), Message: fmt.Sprintf("%q is not an email address", fields[1]), Usage: usage}
		}
	}

	computer, err := c.endpoint.FindComputer(ctx, hostname)
	if err != nil {
		return domain.Card{}, err
	}

	comment := "Isolated by responder"
	if sender.Email != "" {
		comment += " at the request of " + sender.Email
	}

	result, err := c.endpoint.Isolate(ctx, *computer, comment)
	if err != nil {
		return domain.Card{}, err
	}
	result.RequestedBy = sender.Email

	c.logger.Info("🔒 isolation requested", "hostname", computer.Hostname, "status", result.Status, "by", sender.Email)

	if recipient == "" && domain.LooksLikeEmail(computer.User) {
		recipient = computer.User
	}
	if recipient != "" && c.mailer != nil {
		if err := c.mailer.SendInfectionNotice(ctx, recipient, computer.Hostname); err != nil {
			c.logger.Warn("⚠️ isolation succeeded but notice failed", "hostname", computer.Hostname, "to", recipient, "error", err)
			result.NotifyError = domain.UserMessage(err)
		} else {
			result.NotifiedTo = recipient
		}
	}

	return render.Isolation(*result), nil
}

// NotifyCommand only sends the infection notice.
type NotifyCommand struct {
	mailer ports.Mailer
}

func NewNotifyCommand(mailer ports.Mailer) *NotifyCommand {
	return &NotifyCommand{mailer: mailer}
}

func (c *NotifyCommand) Name() string { return "notify" }

func (c *NotifyCommand) Help() string {
	return "Email a user to bring in their computer for inspection, ex. notify WIN-7 jdoe@example.com"
}

func (c *NotifyCommand) Execute(ctx context.Context, args string, sender domain.Sender) (domain.Card, error) {
	usage := "notify <computername> <email>"

	fields := strings.Fields(args)
	if len(fields) != 2 {
		return domain.Card{}, &domain.ArgumentError{Command: c.Name(), Message: "Please provide a computer name and an email address", Usage: usage}
	}

	hostname, email := fields[0], domain.Refang(fields[1])
	if !domain.LooksLikeEmail(email) {
		return domain.Card{}, &domain.ArgumentError{Command: c.Name(), Message: fmt.Sprintf("%q is not an email address", fields[1]), Usage: usage}
	}

	if err := c.mailer.SendInfectionNotice(ctx, email, hostname); err != nil {
		return domain.Card{}, err
	}
	return render.Notification(hostname, email), nil
}

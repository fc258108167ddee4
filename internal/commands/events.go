package commands

import (
	"context"
	"time"

	"github.com/hive-corporation/responder/internal/core/domain"
	"github.com/hive-corporation/responder/internal/core/ports"
	"github.com/hive-corporation/responder/internal/render"
)

const lookbackHelp = "lookback is a period in hours or days (ex. 4h or 3d, default 24h, at most 30d)"

func lookbackError(command string, err error) error {
	return &domain.ArgumentError{
		Command: command,
		Message: "Sorry, I didn't understand the time period you specified: " + err.Error(),
		Usage:   command + " [lookback], where " + lookbackHelp,
	}
}

// EventsCommand lists recent Secure Endpoint threat events.
type EventsCommand struct {
	endpoint ports.EndpointProvider
	now      func() time.Time
}

func NewEventsCommand(endpoint ports.EndpointProvider, now func() time.Time) *EventsCommand {
	if now == nil {
		now = time.Now
	}
	return &EventsCommand{endpoint: endpoint, now: now}
}

func (c *EventsCommand) Name() string { return "events" }

func (c *EventsCommand) Help() string {
	return "Recent Secure Endpoint threat events, ex. events 4h (" + lookbackHelp + ")"
}

func (c *EventsCommand) Execute(ctx context.Context, args string, sender domain.Sender) (domain.Card, error) {
	lookback, err := domain.ParseLookback(args)
	if err != nil {
		return domain.Card{}, lookbackError(c.Name(), err)
	}

	events, err := c.endpoint.ListEvents(ctx, c.now().Add(-lookback))
	if err != nil {
		return domain.Card{}, err
	}
	return render.EndpointEvents(events), nil
}

// DNSCommand lists Umbrella security blocks.
type DNSCommand struct {
	dns ports.DNSActivityProvider
}

func NewDNSCommand(dns ports.DNSActivityProvider) *DNSCommand {
	return &DNSCommand{dns: dns}
}

func (c *DNSCommand) Name() string { return "dns" }

func (c *DNSCommand) Help() string {
	return "Recent Umbrella DNS security blocks, ex. dns 3d (" + lookbackHelp + ")"
}

func (c *DNSCommand) Execute(ctx context.Context, args string, sender domain.Sender) (domain.Card, error) {
	lookback, err := domain.ParseLookback(args)
	if err != nil {
		return domain.Card{}, lookbackError(c.Name(), err)
	}

	events, err := c.dns.ListSecurityEvents(ctx, lookback)
	if err != nil {
		return domain.Card{}, err
	}
	return render.DNSEvents(events), nil
}

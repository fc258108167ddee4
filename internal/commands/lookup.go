package commands

import (
	"context"

	"github.com/hive-corporation/responder/internal/core/domain"
	"github.com/hive-corporation/responder/internal/core/ports"
	"github.com/hive-corporation/responder/internal/render"
)

type InvestigateCommand struct {
	investigator ports.DomainInvestigator
}

func NewInvestigateCommand(investigator ports.DomainInvestigator) *InvestigateCommand {
	return &InvestigateCommand{investigator: investigator}
}

func (c *InvestigateCommand) Name() string { return "investigate" }

func (c *InvestigateCommand) Help() string {
	return "Umbrella Investigate risk score, categories and WHOIS for a domain or URL"
}

func (c *InvestigateCommand) Execute(ctx context.Context, args string, sender domain.Sender) (domain.Card, error) {
	name, ok := domain.NormalizeDomain(args)
	if !ok {
		return domain.Card{}, &domain.ArgumentError{
			Command: c.Name(),
			Message: "Please provide a domain name or URL",
			Usage:   "investigate <domain or url>",
		}
	}

	report, err := c.investigator.Investigate(ctx, name)
	if err != nil {
		return domain.Card{}, err
	}
	return render.DomainReport(*report), nil
}

type IPCommand struct {
	reputation ports.IPReputationProvider
}

func NewIPCommand(reputation ports.IPReputationProvider) *IPCommand {
	return &IPCommand{reputation: reputation}
}

func (c *IPCommand) Name() string { return "ip" }

func (c *IPCommand) Help() string {
	return "Spamhaus reputation details for an IP address"
}

func (c *IPCommand) Execute(ctx context.Context, args string, sender domain.Sender) (domain.Card, error) {
	ip, ok := domain.NormalizeIP(args)
	if !ok {
		return domain.Card{}, &domain.ArgumentError{
			Command: c.Name(),
			Message: "Please provide a valid IPv4 or IPv6 address",
			Usage:   "ip <address>",
		}
	}

	rep, err := c.reputation.Lookup(ctx, ip)
	if err != nil {
		return domain.Card{}, err
	}
	return render.IPReputation(*rep), nil
}

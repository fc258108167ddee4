// Package commands holds the chat commands. Each one parses its argument
// text, calls a vendor port and renders the result.
package commands

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hive-corporation/responder/internal/core/dispatch"
	"github.com/hive-corporation/responder/internal/core/ports"
)

// Deps are the collaborators shared by the commands.
type Deps struct {
	Endpoint     ports.EndpointProvider
	DNS          ports.DNSActivityProvider
	Investigator ports.DomainInvestigator
	IPReputation ports.IPReputationProvider
	Mailer       ports.Mailer
	Logger       hclog.Logger
	Now          func() time.Time
}

// RegisterAll registers every command, help last. It fails on the first
// duplicate name.
func RegisterAll(registry *dispatch.Registry, deps Deps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = hclog.NewNullLogger()
	}

	all := []dispatch.Command{
		NewEventsCommand(deps.Endpoint, deps.Now),
		NewDNSCommand(deps.DNS),
		NewInvestigateCommand(deps.Investigator),
		NewIPCommand(deps.IPReputation),
		NewActionsCommand(),
		NewIsolateCommand(deps.Endpoint, deps.Mailer, deps.Logger),
		NewNotifyCommand(deps.Mailer),
		dispatch.NewHelpCommand(registry),
	}

	for _, cmd := range all {
		if err := registry.Register(cmd); err != nil {
			return fmt.Errorf("failed to register %q: %w", cmd.Name(), err)
		}
	}
	return nil
}

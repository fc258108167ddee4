package dispatch

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/hive-corporation/responder/internal/core/domain"
)

// Command is a chat command. Implementations must be safe for concurrent use.
type Command interface {
	Name() string
	Help() string
	Execute(ctx context.Context, args string, sender domain.Sender) (domain.Card, error)
}

type HandlerFunc func(ctx context.Context, args string, sender domain.Sender) (domain.Card, error)

// Definition is a Command backed by a function.
type Definition struct {
	CommandName string
	HelpText    string
	Handler     HandlerFunc
}

func (d Definition) Name() string { return d.CommandName }
func (d Definition) Help() string { return d.HelpText }

func (d Definition) Execute(ctx context.Context, args string, sender domain.Sender) (domain.Card, error) {
	return d.Handler(ctx, args, sender)
}

// Registry holds the commands in registration order. Names are unique
// ignoring case.
type Registry struct {
	mu       sync.RWMutex
	commands []Command
	byName   map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Command)}
}

func (r *Registry) Register(cmd Command) error {
	name := cmd.Name()
	if name == "" || strings.IndexFunc(name, unicode.IsSpace) != -1 {
		return &domain.ArgumentError{Command: name, Message: "command names must be a single non-empty word"}
	}

	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[key]; exists {
		return &domain.DuplicateCommandError{Name: name}
	}
	r.byName[key] = cmd
	r.commands = append(r.commands, cmd)
	return nil
}

// Lookup is an exact, case-insensitive name match.
func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, ok := r.byName[strings.ToLower(name)]
	return cmd, ok
}

// Commands returns a copy of the registered commands in registration order.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

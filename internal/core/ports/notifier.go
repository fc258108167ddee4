package ports

import (
	"context"

	"github.com/hive-corporation/responder/internal/core/domain"
)

// Mailer sends the end-user notice for a compromised computer.
type Mailer interface {
	SendInfectionNotice(ctx context.Context, to string, hostname string) error
}

// CardSender posts a rendered card to a chat room.
type CardSender interface {
	SendCard(ctx context.Context, roomID string, card domain.Card) error
}

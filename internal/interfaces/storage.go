package interfaces

import (
	"context"

	"aktis-pm-agent/internal/models"
)

// ChatHistory is the append-only transcript owned by a conversational client.
type ChatHistory interface {
	Append(session, sender, message string) (*models.ChatTurn, error)
	Load(session string) ([]models.ChatTurn, error)
	Sessions() ([]string, error)
	Clear(session string) error
	Close() error
}

type WebService interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
	Addr() string
}

package moderatorRepo

import (
	"errors"

	"medichat/models"
)

// ErrNotFound is returned when no moderator matches.
var ErrNotFound = errors.New("moderator not found")

// ModeratorRepository is the minimal access this core needs to staff accounts:
// enough to authenticate web sessions and resolve push targets.
type ModeratorRepository interface {
	GetByID(id string) (*models.Moderator, error)
	GetByEmail(email string) (*models.Moderator, error)
	GetByTokenHash(tokenHash string) (*models.Moderator, error)
	SetTokenHash(id, tokenHash string) error
}

package dal

import (
	"context"

	"github.com/pkg/errors"
)

// ErrAccountExists is returned when creating an account with an id
// that is already taken
var ErrAccountExists = errors.New("Account already exists")

// ErrAccountNotFound is returned when updating an account that the
// directory has no entry for
var ErrAccountNotFound = errors.New("Account not found")

// AccountDTO is a DTO to store an account directory entry
type AccountDTO struct {
	ID      string
	Balance float64
	PIN     string
	IsAdmin bool
}

// Storage is a persistance layer of the account directory
type Storage interface {
	Setup(ctx context.Context) error
	CreateAccount(ctx context.Context, account *AccountDTO) error

	// FindAccount returns nil without an error if no such account exists
	FindAccount(ctx context.Context, accountID string) (*AccountDTO, error)

	// SaveBalance and SetAdmin return ErrAccountNotFound when the
	// account id matches no directory entry
	SaveBalance(ctx context.Context, accountID string, balance float64) error
	SetAdmin(ctx context.Context, accountID string, isAdmin bool) error
	ListAccounts(ctx context.Context) ([]string, error)
}

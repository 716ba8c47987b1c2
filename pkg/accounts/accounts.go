package accounts

import (
	"context"

	"github.com/pkg/errors"

	"github.com/fancybank/bankcore/pkg/dal"
	"github.com/fancybank/bankcore/pkg/diag"
)

var logger = diag.CreateLogger()

// Service is an account directory abstraction. It owns registration,
// authentication and the admin flag of every account
type Service interface {
	Register(ctx context.Context, accountID string, pin string, isAdmin bool) error
	Exists(ctx context.Context, accountID string) (bool, error)

	// Authenticate compares the pin with plain equality. Known
	// weakness inherited from the legacy system: secrets are stored
	// and compared without hashing
	Authenticate(ctx context.Context, accountID string, pin string) (bool, error)

	IsAdmin(ctx context.Context, accountID string) (bool, error)
	Promote(ctx context.Context, accountID string) error

	// GetBalance returns 0 for an unknown account rather than failing
	GetBalance(ctx context.Context, accountID string) (float64, error)

	List(ctx context.Context) ([]string, error)
}

type service struct {
	storage dal.Storage
}

func (svc *service) Register(ctx context.Context, accountID string, pin string, isAdmin bool) error {
	logger.Debug(ctx, "Registering account %v", accountID)
	if err := svc.storage.CreateAccount(ctx, &dal.AccountDTO{
		ID:      accountID,
		Balance: 0,
		PIN:     pin,
		IsAdmin: isAdmin,
	}); err != nil {
		if err == dal.ErrAccountExists {
			return err
		}
		return errors.Wrap(err, "Failed to register account")
	}
	return nil
}

func (svc *service) Exists(ctx context.Context, accountID string) (bool, error) {
	account, err := svc.storage.FindAccount(ctx, accountID)
	if err != nil {
		return false, errors.Wrap(err, "Failed to lookup account")
	}
	return account != nil, nil
}

func (svc *service) Authenticate(ctx context.Context, accountID string, pin string) (bool, error) {
	account, err := svc.storage.FindAccount(ctx, accountID)
	if err != nil {
		return false, errors.Wrap(err, "Failed to lookup account")
	}
	if account == nil {
		return false, nil
	}
	return account.PIN == pin, nil
}

func (svc *service) IsAdmin(ctx context.Context, accountID string) (bool, error) {
	account, err := svc.storage.FindAccount(ctx, accountID)
	if err != nil {
		return false, errors.Wrap(err, "Failed to lookup account")
	}
	if account == nil {
		return false, nil
	}
	return account.IsAdmin, nil
}

func (svc *service) Promote(ctx context.Context, accountID string) error {
	logger.Info(ctx, "Promoting account %v to admin", accountID)
	if err := svc.storage.SetAdmin(ctx, accountID, true); err != nil {
		if err == dal.ErrAccountNotFound {
			return err
		}
		return errors.Wrap(err, "Failed to promote account")
	}
	return nil
}

func (svc *service) GetBalance(ctx context.Context, accountID string) (float64, error) {
	account, err := svc.storage.FindAccount(ctx, accountID)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to lookup account")
	}
	if account == nil {
		return 0, nil
	}
	return account.Balance, nil
}

func (svc *service) List(ctx context.Context) ([]string, error) {
	ids, err := svc.storage.ListAccounts(ctx)
	return ids, errors.Wrap(err, "Failed to list accounts")
}

// ServiceOpt is an option for accounts service
type ServiceOpt func(*service)

// WithStorage will init the service with storage
func WithStorage(storage dal.Storage) ServiceOpt {
	return func(svc *service) {
		svc.storage = storage
	}
}

// NewService returns an instance of an accounts service
func NewService(opts ...ServiceOpt) Service {
	svc := &service{}
	for _, opt := range opts {
		opt(svc)
	}
	return Service(svc)
}

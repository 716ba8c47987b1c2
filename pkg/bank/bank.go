package bank

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/fancybank/bankcore/pkg/accounts"
	"github.com/fancybank/bankcore/pkg/dal"
	"github.com/fancybank/bankcore/pkg/diag"
	"github.com/fancybank/bankcore/pkg/engine"
	"github.com/fancybank/bankcore/pkg/txlog"
)

var logger = diag.CreateLogger()

// Service is the transaction surface consumed by UI collaborators.
// Deposits and withdrawals run validate-append-save as one logical
// unit: validation against the current balance, durable ledger
// append, then directory balance save. The whole sequence holds a
// service wide lock so two concurrent operations can not both read
// the same balance and lose one of the updates
type Service interface {
	Deposit(ctx context.Context, accountID string, amount float64) (float64, error)
	Withdraw(ctx context.Context, accountID string, amount float64) (float64, error)
	GetBalance(ctx context.Context, accountID string) (float64, error)

	// History returns the account transactions newest first
	History(ctx context.Context, accountID string) ([]txlog.Record, error)
}

type service struct {
	mu       sync.Mutex
	engine   engine.Engine
	accounts accounts.Service
	storage  dal.Storage
	ledgers  *txlog.Store
}

func (svc *service) Deposit(ctx context.Context, accountID string, amount float64) (float64, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := svc.ensureAccount(ctx, accountID); err != nil {
		return 0, err
	}
	rec, err := svc.engine.Deposit(ctx, accountID, amount)
	if err != nil {
		return 0, err
	}
	return svc.commit(ctx, accountID, rec)
}

func (svc *service) Withdraw(ctx context.Context, accountID string, amount float64) (float64, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := svc.ensureAccount(ctx, accountID); err != nil {
		return 0, err
	}
	rec, err := svc.engine.Withdraw(ctx, accountID, amount)
	if err != nil {
		return 0, err
	}
	return svc.commit(ctx, accountID, rec)
}

// ensureAccount rejects operations on an id the directory has never
// seen. The engine would happily read a default 0 balance for such an
// id and the balance save would then match no directory row, leaving
// a ledger line the directory knows nothing about
func (svc *service) ensureAccount(ctx context.Context, accountID string) error {
	exists, err := svc.accounts.Exists(ctx, accountID)
	if err != nil {
		return err
	}
	if !exists {
		return dal.ErrAccountNotFound
	}
	return nil
}

// commit appends the accepted record to the ledger and only then
// saves the new directory balance. If the balance save fails the
// operation is reported failed, the already appended line stands as
// an audit trace of the attempt
func (svc *service) commit(ctx context.Context, accountID string, rec *txlog.Record) (float64, error) {
	if err := svc.ledgers.Ledger(accountID).Append(ctx, rec); err != nil {
		return 0, errors.Wrap(err, "Failed to append transaction")
	}
	if err := svc.storage.SaveBalance(ctx, accountID, rec.Balance); err != nil {
		return 0, errors.Wrap(err, "Failed to save balance")
	}
	logger.Info(ctx, "Committed %v of %v for %v", rec.Kind, txlog.FormatAmount(rec.Amount), accountID)
	return rec.Balance, nil
}

func (svc *service) GetBalance(ctx context.Context, accountID string) (float64, error) {
	return svc.accounts.GetBalance(ctx, accountID)
}

func (svc *service) History(ctx context.Context, accountID string) ([]txlog.Record, error) {
	records, skipped, err := svc.ledgers.Ledger(accountID).Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to load transactions")
	}
	if skipped > 0 {
		logger.Warn(ctx, "Skipped %v malformed ledger lines of %v", skipped, accountID)
	}
	return records, nil
}

// ServiceOpt is an option for bank service
type ServiceOpt func(*service)

// WithEngine will init the service with balance engine
func WithEngine(e engine.Engine) ServiceOpt {
	return func(svc *service) {
		svc.engine = e
	}
}

// WithAccounts will init the service with accounts service
func WithAccounts(accountsSvc accounts.Service) ServiceOpt {
	return func(svc *service) {
		svc.accounts = accountsSvc
	}
}

// WithStorage will init the service with directory storage
func WithStorage(storage dal.Storage) ServiceOpt {
	return func(svc *service) {
		svc.storage = storage
	}
}

// WithLedgers will init the service with ledger store
func WithLedgers(ledgers *txlog.Store) ServiceOpt {
	return func(svc *service) {
		svc.ledgers = ledgers
	}
}

// NewService returns an instance of a bank service
func NewService(opts ...ServiceOpt) Service {
	svc := &service{}
	for _, opt := range opts {
		opt(svc)
	}
	return Service(svc)
}

package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/fancybank/bankcore/pkg/accounts"
	"github.com/fancybank/bankcore/pkg/txlog"
)

// ErrNonPositiveAmount rejects deposits and withdrawals of zero or
// negative amounts
var ErrNonPositiveAmount = errors.New("Amount must be positive")

// ErrInsufficientFunds rejects withdrawals that exceed the balance
var ErrInsufficientFunds = errors.New("Insufficient funds")

// NowService provides current time. Tests substitute it with a mock
type NowService interface {
	Now() time.Time
}

type systemNow struct{}

func (s *systemNow) Now() time.Time {
	return time.Now()
}

// NewSystemNowService returns a NowService backed by the system clock
func NewSystemNowService() NowService {
	return &systemNow{}
}

// Engine validates deposits and withdrawals against the current
// balance and builds the resulting transaction record. The engine
// never persists anything, the caller is responsible for handing the
// record to the ledger and the new balance to the directory as one
// logical unit
type Engine interface {
	Deposit(ctx context.Context, accountID string, amount float64) (*txlog.Record, error)
	Withdraw(ctx context.Context, accountID string, amount float64) (*txlog.Record, error)
}

type engine struct {
	accounts accounts.Service
	now      NowService
}

func (e *engine) Deposit(ctx context.Context, accountID string, amount float64) (*txlog.Record, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}
	balance, err := e.accounts.GetBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return e.buildRecord(txlog.KindDeposit, amount, balance+amount), nil
}

func (e *engine) Withdraw(ctx context.Context, accountID string, amount float64) (*txlog.Record, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}
	balance, err := e.accounts.GetBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if amount > balance {
		return nil, ErrInsufficientFunds
	}
	return e.buildRecord(txlog.KindWithdrawal, amount, balance-amount), nil
}

func (e *engine) buildRecord(kind txlog.Kind, amount float64, newBalance float64) *txlog.Record {
	return &txlog.Record{
		Kind:   kind,
		Amount: amount,

		// The ledger line format keeps second precision
		OccurredAt: e.now.Now().Truncate(time.Second),
		Balance:    newBalance,
	}
}

// EngineOpt is an option for balance engine
type EngineOpt func(*engine)

// WithAccounts will init the engine with accounts service
func WithAccounts(svc accounts.Service) EngineOpt {
	return func(e *engine) {
		e.accounts = svc
	}
}

// WithNowService will init the engine with given now service
func WithNowService(now NowService) EngineOpt {
	return func(e *engine) {
		e.now = now
	}
}

// NewEngine returns an instance of a balance engine
func NewEngine(opts ...EngineOpt) Engine {
	e := &engine{now: NewSystemNowService()}
	for _, opt := range opts {
		opt(e)
	}
	return Engine(e)
}

package dal

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"

	"github.com/fancybank/bankcore/pkg/diag"

	// This has to be here to let go mods work work
	_ "github.com/mattn/go-sqlite3"
)

var logger = diag.CreateLogger()

// sqlStorage keeps the whole directory in a single sqlite table.
// Every operation, reads included, holds the storage wide lock so a
// read-modify-write sequence of two concurrent callers can not lose
// an update
type sqlStorage struct {
	mu sync.Mutex
	db *sql.DB
}

func (s *sqlStorage) Setup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logger.Info(ctx, "Setup SQL storage")
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS accounts(
	id       nvarchar(255) NOT NULL PRIMARY KEY,
	balance  REAL NOT NULL,
	pin      nvarchar(255) NOT NULL,
	is_admin INTEGER(1) NOT NULL
);
`)
	return errors.Wrap(err, "Failed to setup storage")
}

func (s *sqlStorage) CreateAccount(ctx context.Context, account *AccountDTO) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.findAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAccountExists
	}

	if _, err := s.db.ExecContext(ctx, `
	INSERT INTO accounts(id, balance, pin, is_admin)
	VALUES($1, $2, $3, $4)
	`, account.ID, account.Balance, account.PIN, account.IsAdmin); err != nil {
		return errors.Wrap(err, "Failed to create account")
	}
	return nil
}

func (s *sqlStorage) FindAccount(ctx context.Context, accountID string) (*AccountDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findAccount(ctx, accountID)
}

func (s *sqlStorage) findAccount(ctx context.Context, accountID string) (*AccountDTO, error) {
	res, err := s.db.QueryContext(ctx, `
	SELECT
		id, balance, pin, is_admin
	FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	if !res.Next() {
		return nil, res.Err()
	}

	result := &AccountDTO{}
	if err := res.Scan(
		&result.ID,
		&result.Balance,
		&result.PIN,
		&result.IsAdmin,
	); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *sqlStorage) SaveBalance(ctx context.Context, accountID string, balance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
	UPDATE accounts SET balance=?2 WHERE id=?1
	`, accountID, balance)
	if err != nil {
		return errors.Wrap(err, "Failed to save balance")
	}
	return ensureRowUpdated(res, "Failed to save balance")
}

func (s *sqlStorage) SetAdmin(ctx context.Context, accountID string, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
	UPDATE accounts SET is_admin=?2 WHERE id=?1
	`, accountID, isAdmin)
	if err != nil {
		return errors.Wrap(err, "Failed to set admin flag")
	}
	return ensureRowUpdated(res, "Failed to set admin flag")
}

// ensureRowUpdated surfaces updates that silently matched no row.
// An update of an unknown account id must fail rather than report
// success with the directory left untouched
func ensureRowUpdated(res sql.Result, msg string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *sqlStorage) ListAccounts(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.QueryContext(ctx, `SELECT id FROM accounts`)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to list accounts")
	}
	defer res.Close()

	var ids []string
	for res.Next() {
		var id string
		if err := res.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, res.Err()
}

// SQLStorageOpt is an option of SQL storage
type SQLStorageOpt func(s *sqlStorage)

// WithSQLDb will set an explicit db instance for a storage
func WithSQLDb(db *sql.DB) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.db = db
	}
}

// NewSQLStorage returns an instance of a local storage
func NewSQLStorage(opts ...SQLStorageOpt) (Storage, error) {
	storage := &sqlStorage{}
	for _, opt := range opts {
		opt(storage)
	}
	return storage, nil
}

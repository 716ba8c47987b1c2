package txlog

import (
	"bufio"
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/fancybank/bankcore/pkg/diag"
)

var logger = diag.CreateLogger()

// Ledger is an append only transaction history of a single account,
// backed by one text file. A ledger instance is the single writer of
// its file, appends are serialized with a per ledger lock
type Ledger struct {
	accountID string
	filePath  string
	mu        sync.Mutex
}

// AccountID returns id of an account this ledger belongs to
func (l *Ledger) AccountID() string {
	return l.accountID
}

// Append encodes given record and durably writes it to the end of the
// ledger file. The file is created if absent. The write is synced
// before returning
func (l *Ledger) Append(ctx context.Context, rec *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "Failed to open ledger file")
	}
	defer file.Close()

	if _, err := file.WriteString(EncodeLine(rec) + "\n"); err != nil {
		return errors.Wrap(err, "Failed to append ledger record")
	}
	if err := file.Sync(); err != nil {
		return errors.Wrap(err, "Failed to sync ledger file")
	}
	logger.Debug(ctx, "Appended %v of %v to ledger of %v", rec.Kind, FormatAmount(rec.Amount), l.accountID)
	return nil
}

// Load reads the whole ledger file and decodes every line. Lines that
// fail to decode are skipped and counted. Records are returned newest
// first, stable sorted by OccurredAt so records sharing a timestamp
// keep their physical order. A missing file yields an empty history
func (l *Ledger) Load(ctx context.Context) ([]Record, int, error) {
	data, err := ioutil.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, errors.Wrap(err, "Failed to read ledger file")
	}

	var records []Record
	skipped := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		rec, err := DecodeLine(scanner.Text())
		if err != nil {
			skipped++
			logger.WithError(err).Warn(ctx, "Skipping malformed ledger line of %v", l.accountID)
			continue
		}
		records = append(records, *rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, errors.Wrap(err, "Failed to scan ledger file")
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].OccurredAt.After(records[j].OccurredAt)
	})
	return records, skipped, nil
}

// Store maintains ledgers of all accounts within a data dir. Ledger
// instances are cached so every account gets exactly one writer
type Store struct {
	dir     string
	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// Ledger returns the ledger of given account, creating the instance
// on first use. The backing file is named after the account id
func (s *Store) Ledger(accountID string) *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ledger, ok := s.ledgers[accountID]; ok {
		return ledger
	}
	ledger := &Ledger{
		accountID: accountID,
		filePath:  path.Join(s.dir, accountID+"_history.txt"),
	}
	s.ledgers[accountID] = ledger
	return ledger
}

// NewStore creates a ledger store that keeps account history files
// under given dir. The dir is created if absent
func NewStore(dir string) *Store {
	logger.Info(nil, "Initializing ledger store: %v", dir)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		logger.WithError(err).Error(nil, "Failed to create ledger dir %v", dir)
	}
	return &Store{dir: dir, ledgers: map[string]*Ledger{}}
}

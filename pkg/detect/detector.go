package detect

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/pkg/errors"

	"github.com/fancybank/bankcore/pkg/accounts"
	"github.com/fancybank/bankcore/pkg/txlog"
)

// Severity of an alert
type Severity string

// SeverityInfo marks alerts that require an admin to look, not to act
const SeverityInfo Severity = "informational"

// Alert is a single suspicious activity finding
type Alert struct {
	ID        string
	Severity  Severity
	AccountID string
	Message   string

	// Records that triggered the alert, newest first
	Records []txlog.Record
}

// NowService provides current time for the frequency window
type NowService interface {
	Now() time.Time
}

// Detector scans account ledgers against thresholds and reports
// alerts. It only reads, presenting or delivering alerts is up to the
// caller
type Detector interface {
	Run(ctx context.Context, cfg Thresholds) ([]Alert, error)
}

type detector struct {
	accounts accounts.Service
	ledgers  *txlog.Store
	now      NowService
	newUUID  func() uuid.UUID
}

// Run evaluates every account independently. Per account it emits
// large deposit and large withdrawal alerts in the ledger's newest
// first order, then at most one aggregate frequent activity alert
func (d *detector) Run(ctx context.Context, cfg Thresholds) ([]Alert, error) {
	ids, err := d.accounts.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to enumerate accounts")
	}

	alerts := []Alert{}
	for _, accountID := range ids {
		records, skipped, err := d.ledgers.Ledger(accountID).Load(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to load ledger of %v", accountID)
		}
		if skipped > 0 {
			logger.Warn(ctx, "Ledger of %v had %v malformed lines", accountID, skipped)
		}
		alerts = append(alerts, d.scanAccount(accountID, records, cfg)...)
	}
	logger.Info(ctx, "Detection pass finished: %v accounts, %v alerts", len(ids), len(alerts))
	return alerts, nil
}

func (d *detector) scanAccount(accountID string, records []txlog.Record, cfg Thresholds) []Alert {
	var alerts []Alert

	for _, rec := range records {
		if rec.Kind == txlog.KindDeposit && rec.Amount >= cfg.LargeDeposit {
			alerts = append(alerts, d.newAlert(accountID,
				fmt.Sprintf("Large deposit of $%v by %v on %v",
					txlog.FormatAmount(rec.Amount), accountID, rec.OccurredAt.Format(txlog.TimeLayout)),
				[]txlog.Record{rec}))
		}
		if rec.Kind == txlog.KindWithdrawal && rec.Amount >= cfg.LargeWithdrawal {
			alerts = append(alerts, d.newAlert(accountID,
				fmt.Sprintf("Large withdrawal of $%v by %v on %v",
					txlog.FormatAmount(rec.Amount), accountID, rec.OccurredAt.Format(txlog.TimeLayout)),
				[]txlog.Record{rec}))
		}
	}

	if len(records) >= cfg.FrequentCount {
		cutoff := d.now.Now().Add(-time.Duration(cfg.FrequentWindowHours) * time.Hour)
		var recent []txlog.Record
		for _, rec := range records {
			if rec.OccurredAt.After(cutoff) {
				recent = append(recent, rec)
			}
		}
		if len(recent) >= cfg.FrequentCount {
			alerts = append(alerts, d.newAlert(accountID,
				fmt.Sprintf("Frequent activity detected - %v transactions by %v in the last %v hours",
					len(recent), accountID, cfg.FrequentWindowHours),
				recent))
		}
	}
	return alerts
}

func (d *detector) newAlert(accountID string, message string, records []txlog.Record) Alert {
	return Alert{
		ID:        d.newUUID().String(),
		Severity:  SeverityInfo,
		AccountID: accountID,
		Message:   message,
		Records:   records,
	}
}

// DetectorOpt is an option for detector
type DetectorOpt func(*detector)

// WithAccounts will init the detector with accounts service
func WithAccounts(svc accounts.Service) DetectorOpt {
	return func(d *detector) {
		d.accounts = svc
	}
}

// WithLedgers will init the detector with ledger store
func WithLedgers(ledgers *txlog.Store) DetectorOpt {
	return func(d *detector) {
		d.ledgers = ledgers
	}
}

// WithNowService will init the detector with given now service
func WithNowService(now NowService) DetectorOpt {
	return func(d *detector) {
		d.now = now
	}
}

// WithNewUUID will init the detector with an alert id factory
func WithNewUUID(newUUID func() uuid.UUID) DetectorOpt {
	return func(d *detector) {
		d.newUUID = newUUID
	}
}

type systemNow struct{}

func (s *systemNow) Now() time.Time {
	return time.Now()
}

// NewDetector returns an instance of a detector
func NewDetector(opts ...DetectorOpt) Detector {
	d := &detector{
		now:     &systemNow{},
		newUUID: uuid.NewV4,
	}
	for _, opt := range opts {
		opt(d)
	}
	return Detector(d)
}

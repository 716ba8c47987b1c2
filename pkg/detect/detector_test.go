package detect

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/fancybank/bankcore/pkg/accounts"
	"github.com/fancybank/bankcore/pkg/dal"
	tst "github.com/fancybank/bankcore/pkg/internal/testing"
	"github.com/fancybank/bankcore/pkg/txlog"
)

type detectorFixture struct {
	detector Detector
	accounts accounts.Service
	ledgers  *txlog.Store
	now      *tst.MockNowService
	cleanup  func()
}

func setupDetector(t *testing.T, name string) *detectorFixture {
	db, err := sql.Open("sqlite3", ":memory:")
	if !assert.NoError(t, err) {
		panic(err)
	}
	storage, err := dal.NewSQLStorage(dal.WithSQLDb(db))
	if !assert.NoError(t, err) {
		panic(err)
	}
	if err := storage.Setup(context.Background()); !assert.NoError(t, err) {
		panic(err)
	}
	accountsSvc := accounts.NewService(accounts.WithStorage(storage))
	now := tst.NewMockNowService(time.Date(2023, 5, 10, 12, 0, 0, 0, time.Local))
	ledgers := txlog.NewStore(ensureTmpDir(name))
	detector := NewDetector(
		WithAccounts(accountsSvc),
		WithLedgers(ledgers),
		WithNowService(now),
	)
	return &detectorFixture{
		detector: detector,
		accounts: accountsSvc,
		ledgers:  ledgers,
		now:      now,
		cleanup:  func() { db.Close() },
	}
}

func (f *detectorFixture) register(t *testing.T, accountID string) {
	if err := f.accounts.Register(context.Background(), accountID, "1234", false); err != nil {
		panic(err)
	}
}

func (f *detectorFixture) append(t *testing.T, accountID string, kind txlog.Kind, amount float64, occurredAt time.Time) {
	err := f.ledgers.Ledger(accountID).Append(context.Background(), &txlog.Record{
		Kind:       kind,
		Amount:     amount,
		OccurredAt: occurredAt,
		Balance:    amount,
	})
	if err != nil {
		panic(err)
	}
}

func Test_detector_Run_MixedActivity(t *testing.T) {
	f := setupDetector(t, "detector-mixed-test")
	defer f.cleanup()
	ctx := context.Background()
	now := f.now.Now()

	// 5 small withdrawals within the last hour plus one large deposit
	// three days ago
	f.register(t, "alice")
	f.append(t, "alice", txlog.KindDeposit, 12000, now.Add(-72*time.Hour))
	for i := 0; i < 5; i++ {
		f.append(t, "alice", txlog.KindWithdrawal, 1000, now.Add(-time.Hour).Add(time.Duration(i)*time.Minute))
	}

	alerts, err := f.detector.Run(ctx, DefaultThresholds())
	if !assert.NoError(t, err) {
		return
	}
	if !assert.Len(t, alerts, 2) {
		return
	}

	large := alerts[0]
	assert.Equal(t, "alice", large.AccountID)
	assert.Equal(t, SeverityInfo, large.Severity)
	assert.Contains(t, large.Message, "Large deposit of $12,000.00 by alice")
	if assert.Len(t, large.Records, 1) {
		assert.Equal(t, 12000.0, large.Records[0].Amount)
	}

	frequent := alerts[1]
	assert.Equal(t, "alice", frequent.AccountID)
	assert.Equal(t, "Frequent activity detected - 5 transactions by alice in the last 24 hours", frequent.Message)
	assert.Len(t, frequent.Records, 5, "Only the recent withdrawals should trigger")
	assert.NotEqual(t, large.ID, frequent.ID)
}

func Test_detector_Run_LargeWithdrawal(t *testing.T) {
	f := setupDetector(t, "detector-withdrawal-test")
	defer f.cleanup()
	now := f.now.Now()

	f.register(t, "bob")
	f.append(t, "bob", txlog.KindWithdrawal, 5000, now.Add(-time.Hour))
	f.append(t, "bob", txlog.KindWithdrawal, 4999.99, now.Add(-2*time.Hour))

	alerts, err := f.detector.Run(context.Background(), DefaultThresholds())
	if !assert.NoError(t, err) {
		return
	}
	if !assert.Len(t, alerts, 1, "Threshold is inclusive, only the $5,000.00 one should fire") {
		return
	}
	assert.Contains(t, alerts[0].Message, "Large withdrawal of $5,000.00 by bob")
}

func Test_detector_Run_FrequencyWindow(t *testing.T) {
	f := setupDetector(t, "detector-window-test")
	defer f.cleanup()
	now := f.now.Now()
	cfg := Thresholds{
		LargeDeposit:        1000000,
		LargeWithdrawal:     1000000,
		FrequentCount:       3,
		FrequentWindowHours: 24,
	}

	// 3 records total but only 2 within the window
	f.register(t, "carol")
	f.append(t, "carol", txlog.KindDeposit, 10, now.Add(-48*time.Hour))
	f.append(t, "carol", txlog.KindDeposit, 10, now.Add(-time.Hour))
	f.append(t, "carol", txlog.KindDeposit, 10, now.Add(-2*time.Hour))

	alerts, err := f.detector.Run(context.Background(), cfg)
	if !assert.NoError(t, err) {
		return
	}
	assert.Empty(t, alerts, "Recent count below the threshold should not fire")

	// One more recent record crosses the line
	f.append(t, "carol", txlog.KindDeposit, 10, now.Add(-3*time.Hour))
	alerts, err = f.detector.Run(context.Background(), cfg)
	if !assert.NoError(t, err) {
		return
	}
	if !assert.Len(t, alerts, 1) {
		return
	}
	assert.Equal(t, "Frequent activity detected - 3 transactions by carol in the last 24 hours", alerts[0].Message)
}

func Test_detector_Run_AlertOrdering(t *testing.T) {
	f := setupDetector(t, "detector-ordering-test")
	defer f.cleanup()
	now := f.now.Now()
	cfg := Thresholds{
		LargeDeposit:        100,
		LargeWithdrawal:     100,
		FrequentCount:       2,
		FrequentWindowHours: 24,
	}

	f.register(t, "dave")
	f.append(t, "dave", txlog.KindDeposit, 200, now.Add(-3*time.Hour))
	f.append(t, "dave", txlog.KindWithdrawal, 300, now.Add(-2*time.Hour))
	f.append(t, "dave", txlog.KindDeposit, 400, now.Add(-time.Hour))

	alerts, err := f.detector.Run(context.Background(), cfg)
	if !assert.NoError(t, err) {
		return
	}
	if !assert.Len(t, alerts, 4) {
		return
	}
	assert.Contains(t, alerts[0].Message, "Large deposit of $400.00")
	assert.Contains(t, alerts[1].Message, "Large withdrawal of $300.00")
	assert.Contains(t, alerts[2].Message, "Large deposit of $200.00")
	assert.Contains(t, alerts[3].Message, "Frequent activity")
}

func Test_detector_Run_NoAccounts(t *testing.T) {
	f := setupDetector(t, "detector-empty-test")
	defer f.cleanup()

	alerts, err := f.detector.Run(context.Background(), DefaultThresholds())
	assert.NoError(t, err)
	assert.Empty(t, alerts)
}

func Test_detector_Run_SkipsMalformedLines(t *testing.T) {
	f := setupDetector(t, "detector-malformed-test")
	defer f.cleanup()
	now := f.now.Now()

	f.register(t, "eve")
	f.append(t, "eve", txlog.KindDeposit, 15000, now.Add(-time.Hour))

	// An account with no ledger file at all should not fail the run
	f.register(t, fmt.Sprintf("ghost-%v", now.Unix()))

	alerts, err := f.detector.Run(context.Background(), DefaultThresholds())
	if !assert.NoError(t, err) {
		return
	}
	assert.Len(t, alerts, 1)
}

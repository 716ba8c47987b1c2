package txlog

import (
	"context"
	"io/ioutil"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ensureTmpDir(name string) string {
	var tmpDir = path.Join("..", "..", "tmp", name)
	os.RemoveAll(tmpDir)
	if err := os.MkdirAll(tmpDir, os.ModePerm); err != nil {
		panic(err)
	}
	return tmpDir
}

func Test_Ledger_Append(t *testing.T) {
	dir := ensureTmpDir("ledger-append-test")
	store := NewStore(dir)
	ledger := store.Ledger("alice")
	ctx := context.Background()

	rec1 := &Record{Kind: KindDeposit, Amount: 100, OccurredAt: mustParseTime(t, "2023-01-01 10:00:00"), Balance: 100}
	rec2 := &Record{Kind: KindWithdrawal, Amount: 40, OccurredAt: mustParseTime(t, "2023-01-01 11:00:00"), Balance: 60}

	if !assert.NoError(t, ledger.Append(ctx, rec1)) {
		return
	}
	if !assert.NoError(t, ledger.Append(ctx, rec2)) {
		return
	}

	data, err := ioutil.ReadFile(path.Join(dir, "alice_history.txt"))
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, EncodeLine(rec1)+"\n"+EncodeLine(rec2)+"\n", string(data))
}

func Test_Ledger_Load(t *testing.T) {
	type testCase struct {
		name   string
		lines  []string
		assert func(t *testing.T, records []Record, skipped int, err error)
	}
	tests := []func() testCase{
		func() testCase {
			return testCase{
				name: "valid lines sorted newest first",
				lines: []string{
					"[2023-01-01 10:00:00] Deposit: $100.00 - Balance: $100.00",
					"[2023-01-03 10:00:00] Deposit: $300.00 - Balance: $450.00",
					"[2023-01-02 10:00:00] Deposit: $50.00 - Balance: $150.00",
				},
				assert: func(t *testing.T, records []Record, skipped int, err error) {
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, 0, skipped)
					if !assert.Len(t, records, 3) {
						return
					}
					assert.Equal(t, 300.0, records[0].Amount)
					assert.Equal(t, 50.0, records[1].Amount)
					assert.Equal(t, 100.0, records[2].Amount)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "malformed lines are skipped and counted",
				lines: []string{
					"[2023-01-01 10:00:00] Deposit: $100.00 - Balance: $100.00",
					"total garbage",
					"[2023-01-02 10:00:00] Withdrawal: $30.00 - Balance: $70.00",
					"",
					"[broken timestamp] Deposit: $1.00",
				},
				assert: func(t *testing.T, records []Record, skipped int, err error) {
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, 3, skipped)
					assert.Len(t, records, 2)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "identical timestamps keep physical order",
				lines: []string{
					"[2023-01-02 10:00:00] Deposit: $1.00 - Balance: $1.00",
					"[2023-01-02 10:00:00] Deposit: $2.00 - Balance: $3.00",
					"[2023-01-01 10:00:00] Deposit: $3.00 - Balance: $6.00",
				},
				assert: func(t *testing.T, records []Record, skipped int, err error) {
					if !assert.NoError(t, err) {
						return
					}
					if !assert.Len(t, records, 3) {
						return
					}
					assert.Equal(t, 1.0, records[0].Amount)
					assert.Equal(t, 2.0, records[1].Amount)
					assert.Equal(t, 3.0, records[2].Amount)
				},
			}
		},
	}
	dir := ensureTmpDir("ledger-load-test")
	store := NewStore(dir)
	for i, ttFn := range tests {
		tt := ttFn()
		t.Run(tt.name, func(t *testing.T) {
			accountID := "account" + string(rune('a'+i))
			filePath := path.Join(dir, accountID+"_history.txt")
			content := strings.Join(tt.lines, "\n") + "\n"
			if err := ioutil.WriteFile(filePath, []byte(content), 0644); !assert.NoError(t, err) {
				return
			}
			records, skipped, err := store.Ledger(accountID).Load(context.Background())
			tt.assert(t, records, skipped, err)
		})
	}
}

func Test_Ledger_Load_NoFile(t *testing.T) {
	dir := ensureTmpDir("ledger-nofile-test")
	store := NewStore(dir)
	records, skipped, err := store.Ledger("ghost").Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Empty(t, records)
}

func Test_Store_Ledger(t *testing.T) {
	dir := ensureTmpDir("ledger-store-test")
	store := NewStore(dir)
	first := store.Ledger("bob")
	second := store.Ledger("bob")
	assert.True(t, first == second, "Should reuse the ledger instance per account")
	assert.Equal(t, "bob", first.AccountID())
}

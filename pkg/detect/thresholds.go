package detect

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fancybank/bankcore/pkg/diag"
)

var logger = diag.CreateLogger()

// Threshold settings file keys
const (
	keyLargeDeposit    = "LARGE_DEPOSIT_THRESHOLD"
	keyLargeWithdrawal = "LARGE_WITHDRAWAL_THRESHOLD"
	keyFrequentCount   = "FREQUENT_TRANSACTION_COUNT"
	keyFrequentHours   = "FREQUENT_TRANSACTION_HOURS"
)

// Thresholds holds detection limits. A detection run takes the value
// as an argument so concurrent config changes can not affect it
type Thresholds struct {
	LargeDeposit        float64
	LargeWithdrawal     float64
	FrequentCount       int
	FrequentWindowHours int
}

// DefaultThresholds returns built-in detection limits
func DefaultThresholds() Thresholds {
	return Thresholds{
		LargeDeposit:        10000.0,
		LargeWithdrawal:     5000.0,
		FrequentCount:       5,
		FrequentWindowHours: 24,
	}
}

// ThresholdsStore is a durable storage of detection limits
type ThresholdsStore interface {
	Load(ctx context.Context) (Thresholds, error)
	Save(ctx context.Context, cfg Thresholds) error
}

type fsThresholdsStore struct {
	filePath string
}

// Load reads the settings file. A missing file yields the defaults. A
// malformed value leaves its key at the default and parsing continues
func (s *fsThresholdsStore) Load(ctx context.Context) (Thresholds, error) {
	cfg := DefaultThresholds()

	data, err := ioutil.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "Failed to read thresholds file")
	}

	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		var parseErr error
		switch key {
		case keyLargeDeposit:
			parseErr = parseFloatInto(&cfg.LargeDeposit, value)
		case keyLargeWithdrawal:
			parseErr = parseFloatInto(&cfg.LargeWithdrawal, value)
		case keyFrequentCount:
			parseErr = parsePositiveIntInto(&cfg.FrequentCount, value)
		case keyFrequentHours:
			parseErr = parsePositiveIntInto(&cfg.FrequentWindowHours, value)
		}
		if parseErr != nil {
			logger.WithError(parseErr).Warn(ctx, "Ignoring malformed thresholds entry %v", key)
		}
	}
	return cfg, nil
}

// Save persists the settings immediately, creating the parent dir if
// needed
func (s *fsThresholdsStore) Save(ctx context.Context, cfg Thresholds) error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), os.ModePerm); err != nil {
		return errors.Wrap(err, "Failed to create thresholds dir")
	}
	var content strings.Builder
	fmt.Fprintf(&content, "%v=%v\n", keyLargeDeposit, strconv.FormatFloat(cfg.LargeDeposit, 'f', -1, 64))
	fmt.Fprintf(&content, "%v=%v\n", keyLargeWithdrawal, strconv.FormatFloat(cfg.LargeWithdrawal, 'f', -1, 64))
	fmt.Fprintf(&content, "%v=%v\n", keyFrequentCount, cfg.FrequentCount)
	fmt.Fprintf(&content, "%v=%v\n", keyFrequentHours, cfg.FrequentWindowHours)
	if err := ioutil.WriteFile(s.filePath, []byte(content.String()), 0644); err != nil {
		return errors.Wrap(err, "Failed to write thresholds file")
	}
	logger.Info(ctx, "Saved thresholds to %v", s.filePath)
	return nil
}

func parseFloatInto(target *float64, value string) error {
	val, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return err
	}
	*target = val
	return nil
}

func parsePositiveIntInto(target *int, value string) error {
	val, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	if val < 1 {
		return fmt.Errorf("value must be at least 1, got %v", val)
	}
	*target = val
	return nil
}

// NewFSThresholdsStore creates a thresholds store backed by a
// KEY=VALUE text file at given path
func NewFSThresholdsStore(filePath string) ThresholdsStore {
	return &fsThresholdsStore{filePath: filePath}
}

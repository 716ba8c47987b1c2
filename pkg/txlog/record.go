package txlog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is a kind of a ledger transaction
type Kind string

const (
	// KindDeposit marks transactions that increase the balance
	KindDeposit Kind = "Deposit"

	// KindWithdrawal marks transactions that decrease the balance
	KindWithdrawal Kind = "Withdrawal"
)

// UnknownBalance is a sentinel for records decoded from a legacy line
// that carries no balance clause. Balances are never negative so the
// sentinel can not collide with a real value.
const UnknownBalance float64 = -1

// TimeLayout is the timestamp format of ledger lines, second precision
const TimeLayout = "2006-01-02 15:04:05"

const balanceClause = " - Balance:"

// Record represents a single ledger transaction
type Record struct {
	Kind       Kind
	Amount     float64
	OccurredAt time.Time

	// Balance is the account balance right after this transaction
	Balance float64
}

// ParseError indicates a malformed ledger line. Loaders are expected
// to skip such lines rather than abort
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("can not parse ledger line %q: %v", e.Line, e.Reason)
}

// IsParseError tells if given error is a ParseError
func IsParseError(err error) bool {
	_, ok := err.(*ParseError)
	return ok
}

// EncodeLine renders a record to its canonical single line text form:
// [2023-01-01 12:00:00] Deposit: $1,500.00 - Balance: $2,500.00
// A record carrying the UnknownBalance sentinel is rendered in the
// legacy form without the balance clause, never as a literal -1
func EncodeLine(rec *Record) string {
	line := fmt.Sprintf("[%v] %v: $%v",
		rec.OccurredAt.Format(TimeLayout),
		rec.Kind,
		FormatAmount(rec.Amount),
	)
	if rec.Balance == UnknownBalance {
		return line
	}
	return line + fmt.Sprintf("%v $%v", balanceClause, FormatAmount(rec.Balance))
}

// DecodeLine parses a single ledger line. It accepts the canonical form
// produced by EncodeLine and a legacy form without the balance clause,
// in which case Balance is set to UnknownBalance
func DecodeLine(line string) (*Record, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, &ParseError{Line: line, Reason: "line does not start with '['"}
	}
	endBracket := strings.Index(trimmed, "]")
	if endBracket <= 1 {
		return nil, &ParseError{Line: line, Reason: "no closing ']' found"}
	}
	occurredAt, err := time.ParseInLocation(TimeLayout, trimmed[1:endBracket], time.Local)
	if err != nil {
		return nil, &ParseError{Line: line, Reason: fmt.Sprintf("bad timestamp: %v", err)}
	}

	rest := strings.TrimSpace(trimmed[endBracket+1:])
	colon := strings.Index(rest, ":")
	if colon == -1 {
		return nil, &ParseError{Line: line, Reason: "no ':' after timestamp"}
	}

	var kind Kind
	switch kindText := strings.TrimSpace(rest[:colon]); kindText {
	case string(KindDeposit):
		kind = KindDeposit
	case string(KindWithdrawal):
		kind = KindWithdrawal
	default:
		return nil, &ParseError{Line: line, Reason: fmt.Sprintf("unknown transaction kind: %q", kindText)}
	}

	amountPart := strings.TrimSpace(rest[colon+1:])
	balance := UnknownBalance
	if clause := strings.Index(amountPart, balanceClause); clause != -1 {
		if val, err := ParseAmount(amountPart[clause+len(balanceClause):]); err == nil {
			balance = val
		}
		amountPart = strings.TrimSpace(amountPart[:clause])
	}

	amount, err := ParseAmount(amountPart)
	if err != nil {
		return nil, &ParseError{Line: line, Reason: err.Error()}
	}

	return &Record{
		Kind:       kind,
		Amount:     amount,
		OccurredAt: occurredAt,
		Balance:    balance,
	}, nil
}

// FormatAmount renders a money value with two decimals and thousands
// separators, e.g 12345.6 -> "12,345.60"
func FormatAmount(val float64) string {
	plain := strconv.FormatFloat(val, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(plain, "-") {
		sign = "-"
		plain = plain[1:]
	}
	intPart := plain[:len(plain)-3]
	fracPart := plain[len(plain)-3:]

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}
	return sign + grouped.String() + fracPart
}

// ParseAmount parses a money value, tolerating a leading '$' and
// thousands separators. Negative values are rejected
func ParseAmount(text string) (float64, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.Replace(cleaned, ",", "", -1)
	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q", text)
	}
	if val < 0 {
		return 0, fmt.Errorf("negative amount %q", text)
	}
	return val, nil
}

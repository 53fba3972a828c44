package model

// IntentType names a classified banking intent
type IntentType string

const (
	IntentUnknown            IntentType = "unknown"
	IntentCheckBalance       IntentType = "check_balance"
	IntentTransferMoney      IntentType = "transfer_money"
	IntentTransactionHistory IntentType = "transaction_history"
)

// Period is the time window requested by a transaction_history intent
type Period string

const (
	PeriodRecent    Period = "recent"
	PeriodLastWeek  Period = "last_week"
	PeriodLastMonth Period = "last_month"
)

// Valid reports whether p is one of the known periods
func (p Period) Valid() bool {
	switch p {
	case PeriodRecent, PeriodLastWeek, PeriodLastMonth:
		return true
	}
	return false
}

// Parameters holds the values extracted for an intent.
// Absent values are omitted from JSON.
type Parameters struct {
	Amount    *float64 `json:"amount,omitempty"`
	Recipient string   `json:"recipient,omitempty"`
	Period    Period   `json:"period,omitempty"`
}

// AmountValue returns the amount and whether one was extracted
func (p Parameters) AmountValue() (float64, bool) {
	if p.Amount == nil {
		return 0, false
	}
	return *p.Amount, true
}

// IntentResult is the outcome of a single extraction call
type IntentResult struct {
	IntentType IntentType `json:"intent_type"`
	Parameters Parameters `json:"parameters"`
}

// UnknownResult returns a fresh unknown result with no parameters
func UnknownResult() IntentResult {
	return IntentResult{IntentType: IntentUnknown}
}

// IsUnknown reports whether no intent was recognized
func (r IntentResult) IsUnknown() bool {
	return r.IntentType == IntentUnknown || r.IntentType == ""
}

// Float returns a pointer to v, for building Parameters literals
func Float(v float64) *float64 {
	return &v
}

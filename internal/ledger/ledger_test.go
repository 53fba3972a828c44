package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ppiankov/bankintent/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	seeded, err := s.Seed(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !seeded {
		t.Fatal("expected empty store to be seeded")
	}
	return s
}

func transfer(amount float64, recipient string) model.IntentResult {
	return model.IntentResult{
		IntentType: model.IntentTransferMoney,
		Parameters: model.Parameters{Amount: model.Float(amount), Recipient: recipient},
	}
}

func TestSeed_Idempotent(t *testing.T) {
	s := newTestStore(t)

	seeded, err := s.Seed(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded {
		t.Error("expected second seed to be a no-op")
	}

	users, err := s.Users(context.Background())
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) != 2 || users[0].Name != "John Doe" || users[1].Name != "Jane Smith" {
		t.Errorf("expected John Doe and Jane Smith, got %+v", users)
	}
}

func TestProcess_CheckBalance(t *testing.T) {
	s := newTestStore(t)

	resp, err := s.Process(context.Background(), "1", model.IntentResult{IntentType: model.IntentCheckBalance})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if len(resp.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(resp.Accounts))
	}
	if resp.Accounts[0].Kind != "savings" || resp.Accounts[0].Balance != 5000 {
		t.Errorf("expected savings 5000 first, got %+v", resp.Accounts[0])
	}
	expected := "Your current balances are: savings: 5000.00 USD, checking: 1200.50 USD"
	if resp.Message != expected {
		t.Errorf("expected message %q, got %q", expected, resp.Message)
	}
}

func TestProcess_Transfer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	resp, err := s.Process(ctx, "1", transfer(100, "jane"))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.NewBalance == nil || *resp.NewBalance != 4900 {
		t.Errorf("expected new balance 4900, got %v", resp.NewBalance)
	}
	if resp.Message != "Successfully transferred 100.00 to Jane Smith" {
		t.Errorf("unexpected message %q", resp.Message)
	}

	jane, _ := s.Accounts(ctx, "2")
	if jane[0].Balance != 8600.75 {
		t.Errorf("expected jane credited to 8600.75, got %v", jane[0].Balance)
	}

	johnTxs, _ := s.History(ctx, "1", model.PeriodRecent)
	janeTxs, _ := s.History(ctx, "2", model.PeriodRecent)
	if johnTxs[0].Type != TxTransferOut || janeTxs[0].Type != TxTransferIn {
		t.Fatalf("expected newest entries transfer_out/transfer_in, got %s/%s", johnTxs[0].Type, janeTxs[0].Type)
	}
	if johnTxs[0].ID != janeTxs[0].ID {
		t.Errorf("expected both sides to share an id, got %s and %s", johnTxs[0].ID, janeTxs[0].ID)
	}
	if janeTxs[0].Counterparty != "John Doe" {
		t.Errorf("expected counterparty John Doe, got %q", janeTxs[0].Counterparty)
	}
	if johnTxs[0].Counterparty != "Jane Smith" {
		t.Errorf("expected counterparty Jane Smith, got %q", johnTxs[0].Counterparty)
	}
	if johnTxs[0].Description != "Transfer to Jane Smith" {
		t.Errorf("expected description with the resolved name, got %q", johnTxs[0].Description)
	}
}

func TestProcess_TransferFailures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		result model.IntentResult
		err    error
	}{
		{
			name:   "missing amount",
			result: model.IntentResult{IntentType: model.IntentTransferMoney, Parameters: model.Parameters{Recipient: "jane"}},
			err:    ErrAmountMissing,
		},
		{"zero amount", transfer(0, "jane"), ErrInvalidAmount},
		{"unknown recipient", transfer(10, "bob"), ErrRecipientNotFound},
		{"no recipient", transfer(10, ""), ErrRecipientNotFound},
		{"insufficient funds", transfer(5000.01, "jane"), ErrInsufficientFunds},
	}

	for _, tt := range tests {
		resp, err := s.Process(ctx, "1", tt.result)
		if !errors.Is(err, tt.err) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.err, err)
		}
		if resp == nil || resp.Success {
			t.Errorf("%s: expected unsuccessful response, got %+v", tt.name, resp)
		}
	}

	// Nothing moved
	accounts, _ := s.Accounts(ctx, "1")
	if accounts[0].Balance != 5000 {
		t.Errorf("expected balance unchanged at 5000, got %v", accounts[0].Balance)
	}
}

func TestProcess_TransferMatchesNameCaseInsensitively(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Process(context.Background(), "2", transfer(50, "DOE")); err != nil {
		t.Fatalf("expected DOE to match John Doe, got %v", err)
	}

	john, _ := s.Accounts(context.Background(), "1")
	if john[0].Balance != 5050 {
		t.Errorf("expected john credited to 5050, got %v", john[0].Balance)
	}
}

func TestProcess_History(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	resp, err := s.Process(ctx, "1", model.IntentResult{
		IntentType: model.IntentTransactionHistory,
		Parameters: model.Parameters{Period: model.PeriodLastWeek},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	// Seeded entries at -2 and -5 days fall within the week
	if len(resp.Transactions) != 2 {
		t.Errorf("expected 2 transactions in the last week, got %d", len(resp.Transactions))
	}

	month, _ := s.History(ctx, "1", model.PeriodLastMonth)
	if len(month) != 4 {
		t.Errorf("expected 4 transactions in the last month, got %d", len(month))
	}
	for i := 1; i < len(month); i++ {
		if month[i].Date.After(month[i-1].Date) {
			t.Errorf("expected newest first, got %v before %v", month[i-1].Date, month[i].Date)
		}
	}
}

func TestProcess_HistoryLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := s.Process(ctx, "1", transfer(1, "jane")); err != nil {
			t.Fatalf("transfer %d: %v", i, err)
		}
	}

	resp, err := s.Process(ctx, "1", model.IntentResult{IntentType: model.IntentTransactionHistory})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(resp.Transactions) != HistoryLimit {
		t.Errorf("expected %d transactions, got %d", HistoryLimit, len(resp.Transactions))
	}
	if resp.Parameters == nil || resp.Parameters.Period != model.PeriodRecent {
		t.Errorf("expected period defaulted to recent, got %+v", resp.Parameters)
	}
}

func TestProcess_UnknownIntentAndUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	resp, err := s.Process(ctx, "1", model.UnknownResult())
	if !errors.Is(err, ErrUnsupportedIntent) {
		t.Errorf("expected ErrUnsupportedIntent, got %v", err)
	}
	if resp.Success || resp.Message != UnknownRequestMessage {
		t.Errorf("expected unknown request message, got %+v", resp)
	}

	if _, err := s.Process(ctx, "42", model.IntentResult{IntentType: model.IntentCheckBalance}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	if got := describe(TxTransferOut); got != "Transfer Out" {
		t.Errorf("expected Transfer Out, got %q", got)
	}
}

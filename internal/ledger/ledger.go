// Package ledger is the demo account store that executes recognized
// banking intents.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/bankintent/internal/model"
)

//go:embed schema.sql
var schemaSQL string

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrAmountMissing     = errors.New("amount not specified")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnsupportedIntent = errors.New("unsupported intent")
)

// HistoryLimit caps the transactions returned by a history request
const HistoryLimit = 5

// Transaction kinds
const (
	TxDeposit     = "deposit"
	TxWithdrawal  = "withdrawal"
	TxTransferIn  = "transfer_in"
	TxTransferOut = "transfer_out"
	TxPayment     = "payment"
)

// Account is one of a user's accounts
type Account struct {
	ID       string  `json:"account_id"`
	Kind     string  `json:"kind"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// Transaction is a ledger entry as seen by one user
type Transaction struct {
	ID           string    `json:"transaction_id"`
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description"`
	Counterparty string    `json:"counterparty,omitempty"`
}

// User is an account holder
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Response is the outcome of processing an intent
type Response struct {
	Success      bool              `json:"success"`
	IntentType   model.IntentType  `json:"intent_type,omitempty"`
	Message      string            `json:"message,omitempty"`
	Error        string            `json:"error,omitempty"`
	Accounts     []Account         `json:"accounts,omitempty"`
	Transactions []Transaction     `json:"transactions,omitempty"`
	NewBalance   *float64          `json:"new_balance,omitempty"`
	Parameters   *model.Parameters `json:"parameters,omitempty"`
}

// Store is a sqlite-backed ledger
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens (creating if needed) the ledger at path. ":memory:" gives a
// private in-memory store.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// One connection: sqlite has a single writer, and each :memory:
	// connection would otherwise be its own database
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Seed creates the demo users when the store has none. It reports whether
// anything was written.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	users := []struct {
		user     User
		accounts []Account
		history  []Transaction
	}{
		{
			user: User{ID: "1", Name: "John Doe"},
			accounts: []Account{
				{ID: "SAV12345", Kind: "savings", Balance: 5000.00, Currency: "USD"},
				{ID: "CHK67890", Kind: "checking", Balance: 1200.50, Currency: "USD"},
			},
			history: []Transaction{
				{Type: TxDeposit, Amount: 250.00, Date: now.AddDate(0, 0, -2)},
				{Type: TxPayment, Amount: 42.75, Date: now.AddDate(0, 0, -5)},
				{Type: TxWithdrawal, Amount: 120.00, Date: now.AddDate(0, 0, -12)},
				{Type: TxDeposit, Amount: 1800.00, Date: now.AddDate(0, 0, -25)},
			},
		},
		{
			user: User{ID: "2", Name: "Jane Smith"},
			accounts: []Account{
				{ID: "SAV54321", Kind: "savings", Balance: 8500.75, Currency: "USD"},
			},
			history: []Transaction{
				{Type: TxPayment, Amount: 89.99, Date: now.AddDate(0, 0, -3)},
				{Type: TxDeposit, Amount: 3000.00, Date: now.AddDate(0, 0, -20)},
			},
		},
	}

	for _, u := range users {
		if _, err := tx.ExecContext(ctx, "INSERT INTO users (id, name) VALUES (?, ?)", u.user.ID, u.user.Name); err != nil {
			return false, fmt.Errorf("insert user %s: %w", u.user.ID, err)
		}
		for i, a := range u.accounts {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO accounts (id, user_id, kind, balance, currency, position) VALUES (?, ?, ?, ?, ?, ?)",
				a.ID, u.user.ID, a.Kind, a.Balance, a.Currency, i,
			); err != nil {
				return false, fmt.Errorf("insert account %s: %w", a.ID, err)
			}
		}
		for _, h := range u.history {
			desc := fmt.Sprintf("%s of $%.2f", describe(h.Type), h.Amount)
			if err := insertTx(ctx, tx, uuid.NewString(), u.user.ID, h.Type, h.Amount, h.Date, desc, ""); err != nil {
				return false, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func describe(kind string) string {
	words := strings.Split(kind, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func insertTx(ctx context.Context, tx *sql.Tx, id, userID, kind string, amount float64, at time.Time, desc, counterparty string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO transactions (id, user_id, type, amount, occurred_at, description, counterparty) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, userID, kind, amount, at.UnixMilli(), desc, counterparty,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// User returns the user with id
func (s *Store) User(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM users WHERE id = ?", id).Scan(&u.ID, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		return User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// Users lists all users ordered by id
func (s *Store) Users(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Accounts returns the user's accounts, first account first
func (s *Store) Accounts(ctx context.Context, userID string) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, balance, currency FROM accounts WHERE user_id = ? ORDER BY position", userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Kind, &a.Balance, &a.Currency); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// History returns up to HistoryLimit transactions since the period's
// cutoff, newest first
func (s *Store) History(ctx context.Context, userID string, period model.Period) ([]Transaction, error) {
	var since int64
	switch period {
	case model.PeriodLastWeek:
		since = s.now().AddDate(0, 0, -7).UnixMilli()
	case model.PeriodLastMonth:
		since = s.now().AddDate(0, 0, -30).UnixMilli()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount, occurred_at, description, counterparty
		FROM transactions
		WHERE user_id = ? AND occurred_at >= ?
		ORDER BY occurred_at DESC, seq DESC
		LIMIT ?`, userID, since, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		var at int64
		if err := rows.Scan(&t.ID, &t.Type, &t.Amount, &at, &t.Description, &t.Counterparty); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date = time.UnixMilli(at).UTC()
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

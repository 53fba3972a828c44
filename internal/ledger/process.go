package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/bankintent/internal/model"
)

// UnknownRequestMessage is returned for intents the ledger cannot act on
const UnknownRequestMessage = "I don't understand that banking request"

// Process executes result for userID. Business failures (missing amount,
// unknown recipient, insufficient funds, unknown intent) return an
// unsuccessful Response together with the matching sentinel error.
func (s *Store) Process(ctx context.Context, userID string, result model.IntentResult) (*Response, error) {
	user, err := s.User(ctx, userID)
	if err != nil {
		return &Response{Success: false, Error: err.Error()}, err
	}

	switch result.IntentType {
	case model.IntentCheckBalance:
		return s.balance(ctx, user)
	case model.IntentTransferMoney:
		return s.transfer(ctx, user, result.Parameters)
	case model.IntentTransactionHistory:
		return s.history(ctx, user, result.Parameters.Period)
	}

	return &Response{Success: false, Message: UnknownRequestMessage}, ErrUnsupportedIntent
}

func (s *Store) balance(ctx context.Context, user User) (*Response, error) {
	accounts, err := s.Accounts(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	parts := make([]string, 0, len(accounts))
	for _, a := range accounts {
		parts = append(parts, fmt.Sprintf("%s: %.2f %s", a.Kind, a.Balance, a.Currency))
	}

	return &Response{
		Success:    true,
		IntentType: model.IntentCheckBalance,
		Message:    "Your current balances are: " + strings.Join(parts, ", "),
		Accounts:   accounts,
	}, nil
}

func (s *Store) history(ctx context.Context, user User, period model.Period) (*Response, error) {
	if !period.Valid() {
		period = model.PeriodRecent
	}

	txs, err := s.History(ctx, user.ID, period)
	if err != nil {
		return nil, err
	}

	msg := "Here are your recent transactions"
	switch period {
	case model.PeriodLastWeek:
		msg = "Here are your transactions from the last week"
	case model.PeriodLastMonth:
		msg = "Here are your transactions from the last month"
	}

	return &Response{
		Success:      true,
		IntentType:   model.IntentTransactionHistory,
		Message:      msg,
		Transactions: txs,
		Parameters:   &model.Parameters{Period: period},
	}, nil
}

func failed(intent model.IntentType, err error) (*Response, error) {
	return &Response{Success: false, IntentType: intent, Error: err.Error()}, err
}

// transfer moves money from the sender's first account to the recipient's
// first account and records both sides under one transaction id
func (s *Store) transfer(ctx context.Context, sender User, params model.Parameters) (*Response, error) {
	intent := model.IntentTransferMoney

	amount, ok := params.AmountValue()
	if !ok {
		return failed(intent, ErrAmountMissing)
	}
	if amount <= 0 {
		return failed(intent, ErrInvalidAmount)
	}

	recipient, err := s.findRecipient(ctx, params.Recipient)
	if err != nil {
		return failed(intent, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	source, err := firstAccount(ctx, tx, sender.ID)
	if err != nil {
		return nil, err
	}
	if source.Balance < amount {
		return failed(intent, ErrInsufficientFunds)
	}
	target, err := firstAccount(ctx, tx, recipient.ID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "UPDATE accounts SET balance = balance - ? WHERE id = ?", amount, source.ID); err != nil {
		return nil, fmt.Errorf("debit %s: %w", source.ID, err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE accounts SET balance = balance + ? WHERE id = ?", amount, target.ID); err != nil {
		return nil, fmt.Errorf("credit %s: %w", target.ID, err)
	}

	id := uuid.NewString()
	now := s.now()
	if err := insertTx(ctx, tx, id, sender.ID, TxTransferOut, amount, now, "Transfer to "+recipient.Name, recipient.Name); err != nil {
		return nil, err
	}
	if err := insertTx(ctx, tx, id, recipient.ID, TxTransferIn, amount, now, "Transfer from "+sender.Name, sender.Name); err != nil {
		return nil, err
	}

	var newBalance float64
	if err := tx.QueryRowContext(ctx, "SELECT balance FROM accounts WHERE id = ?", source.ID).Scan(&newBalance); err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}

	return &Response{
		Success:    true,
		IntentType: intent,
		Message:    fmt.Sprintf("Successfully transferred %.2f to %s", amount, recipient.Name),
		NewBalance: &newBalance,
		Parameters: &params,
	}, nil
}

// findRecipient returns the first user, by id, whose name contains name
// case-insensitively
func (s *Store) findRecipient(ctx context.Context, name string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, fmt.Errorf("%w: no recipient given", ErrRecipientNotFound)
	}

	users, err := s.Users(ctx)
	if err != nil {
		return User{}, err
	}

	needle := strings.ToLower(name)
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), needle) {
			return u, nil
		}
	}

	return User{}, fmt.Errorf("%w: %s", ErrRecipientNotFound, name)
}

func firstAccount(ctx context.Context, tx *sql.Tx, userID string) (Account, error) {
	var a Account
	err := tx.QueryRowContext(ctx,
		"SELECT id, kind, balance, currency FROM accounts WHERE user_id = ? ORDER BY position LIMIT 1", userID,
	).Scan(&a.ID, &a.Kind, &a.Balance, &a.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("user %s has no account", userID)
	}
	if err != nil {
		return Account{}, fmt.Errorf("load account: %w", err)
	}
	return a, nil
}

// Package bank implements a customer support agent backed by a banking
// database. The agent answers balance questions and can block a
// customer's cards, then reports its advice as a structured risk
// assessment.
package bank

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kataras/golog"
)

var (
	// ErrCustomerNotFound is returned when the customer ID is unknown.
	ErrCustomerNotFound = errors.New("bank: customer not found")

	// ErrNoAccounts is returned when the customer has no accounts.
	ErrNoAccounts = errors.New("bank: customer has no accounts")
)

// DB is the slice of a pgx pool the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads and updates the banking tables.
type Store struct {
	db DB
}

// NewStore builds a store on the given pool.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// CustomerName returns the customer's name.
func (s *Store) CustomerName(ctx context.Context, customerID int) (string, error) {
	var name string
	err := s.db.QueryRow(ctx, "SELECT name FROM customers WHERE id = $1", customerID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrCustomerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query customer name: %w", err)
	}
	return name, nil
}

// CustomerBalance sums the customer's account balances plus their
// transactions. Pending transactions are included only when asked.
func (s *Store) CustomerBalance(ctx context.Context, customerID int, includePending bool) (float64, error) {
	accountIDs, base, err := s.accounts(ctx, customerID)
	if err != nil {
		return 0, err
	}
	if len(accountIDs) == 0 {
		return 0, ErrNoAccounts
	}

	statuses := []string{"confirmed"}
	if includePending {
		statuses = append(statuses, "pending")
	}

	var txSum float64
	err = s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0.0) FROM transactions
		 WHERE account_id = ANY($1::int[]) AND status = ANY($2::text[])`,
		accountIDs, statuses,
	).Scan(&txSum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}

	golog.Debugf("bank: balance for customer %d over %d account(s)", customerID, len(accountIDs))
	return base + txSum, nil
}

// BlockCards marks all of the customer's active cards as blocked. It
// reports whether any card changed state.
func (s *Store) BlockCards(ctx context.Context, customerID int) (bool, error) {
	accountIDs, _, err := s.accounts(ctx, customerID)
	if err != nil {
		return false, err
	}
	if len(accountIDs) == 0 {
		return false, nil
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE cards SET status = 'blocked'
		 WHERE account_id = ANY($1::int[]) AND status = 'active'`,
		accountIDs,
	)
	if err != nil {
		return false, fmt.Errorf("block cards: %w", err)
	}

	blocked := tag.RowsAffected() > 0
	if blocked {
		golog.Infof("bank: blocked %d card(s) for customer %d", tag.RowsAffected(), customerID)
	}
	return blocked, nil
}

// accounts returns the customer's account IDs and their summed base
// balance.
func (s *Store) accounts(ctx context.Context, customerID int) ([]int, float64, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, balance FROM accounts WHERE customer_id = $1", customerID)
	if err != nil {
		return nil, 0, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var (
		ids   []int
		total float64
	)
	for rows.Next() {
		var (
			id      int
			balance float64
		)
		if err := rows.Scan(&id, &balance); err != nil {
			return nil, 0, fmt.Errorf("scan account: %w", err)
		}
		ids = append(ids, id)
		total += balance
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("read accounts: %w", err)
	}
	return ids, total, nil
}

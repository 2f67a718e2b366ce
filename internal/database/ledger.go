package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"star-economy-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// appendLedgerEntryTx writes one audit-trail row inside the caller's
// transaction, so an entry exists exactly when its balance change does.
func appendLedgerEntryTx(ctx context.Context, tx *sql.Tx, accountId string, currency models.Currency,
	entryType string, amount, before, after decimal.Decimal, reference string, now time.Time) error {
	_, err := tx.ExecContext(ctx, queryInsertLedgerEntry,
		uuid.New().String(), accountId, string(currency), entryType,
		amount.String(), before.String(), after.String(), reference, now.Unix())
	if err != nil {
		return unavailable("append ledger entry", err)
	}
	return nil
}

// GetLedgerHistory returns paginated audit-trail entries, newest first.
func (s *Service) GetLedgerHistory(ctx context.Context, accountId string, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, queryGetLedgerHistory, accountId, limit, offset)
	if err != nil {
		return nil, unavailable("ledger history", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			entry                 models.LedgerEntry
			currency              string
			amount, before, after string
			createdAt             int64
		)
		err := rows.Scan(&entry.Id, &entry.AccountId, &currency, &entry.EntryType,
			&amount, &before, &after, &entry.Reference, &createdAt)
		if err != nil {
			return nil, unavailable("ledger history", err)
		}

		entry.Currency = models.Currency(currency)
		if entry.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
		}
		if entry.BalanceBefore, err = decimal.NewFromString(before); err != nil {
			return nil, fmt.Errorf("failed to parse balance_before %q: %w", before, err)
		}
		if entry.BalanceAfter, err = decimal.NewFromString(after); err != nil {
			return nil, fmt.Errorf("failed to parse balance_after %q: %w", after, err)
		}
		entry.CreatedAt = timeFromUnix(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("ledger history", err)
	}
	return entries, nil
}

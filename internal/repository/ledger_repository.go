package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-contracts/internal/models"
)

var (
	// ErrFundingNotFound означает отсутствие ожидаемой funding записи.
	// Для операции подтверждения это нарушение целостности данных,
	// а не ошибка пользователя.
	ErrFundingNotFound = errors.New("funding ledger entry not found")
)

// LedgerRepository хранит журнал финансовых операций по контрактам.
// Записи только добавляются; статус меняется лишь у funding записей
// при расходовании эскроу.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// InsertTx вставляет запись журнала идемпотентно: повторная вставка с тем
// же idempotency_key не создаёт дубль. Возвращает false, если запись уже
// существовала.
func (r *LedgerRepository) InsertTx(ctx context.Context, tx *sqlx.Tx, entry *models.ContractTransaction) (bool, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO contract_transactions
			(id, contract_id, milestone_id, purpose, amount, client_id, freelancer_id, description, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, entry.ID, entry.ContractID, entry.MilestoneID, entry.Purpose, entry.Amount,
		entry.ClientID, entry.FreelancerID, entry.Description, entry.Status, entry.IdempotencyKey)
	if err != nil {
		return false, fmt.Errorf("ledger repository: insert %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ledger repository: insert rows affected %w", err)
	}
	return affected == 1, nil
}

// MarkFundingTx переводит funding записи в новый статус (consumed или
// refunded_back_to_client) внутри транзакции расчёта.
func (r *LedgerRepository) MarkFundingTx(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID, status string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE contract_transactions SET status = ?
		WHERE id IN (?) AND purpose = 'funding'
	`, status, ids)
	if err != nil {
		return fmt.Errorf("ledger repository: mark funding %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("ledger repository: mark funding %w", err)
	}
	return nil
}

// FindOpenFunding возвращает самую раннюю нерастраченную funding запись
// контракта; для milestone контрактов — запись конкретной вехи.
func (r *LedgerRepository) FindOpenFunding(ctx context.Context, contractID uuid.UUID, milestoneID *uuid.UUID) (*models.ContractTransaction, error) {
	var entry models.ContractTransaction
	var err error

	if milestoneID != nil {
		err = r.db.GetContext(ctx, &entry, `
			SELECT * FROM contract_transactions
			WHERE contract_id = $1 AND milestone_id = $2 AND purpose = 'funding' AND status = $3
			ORDER BY created_at ASC LIMIT 1
		`, contractID, *milestoneID, models.TransactionStatusHeld)
	} else {
		err = r.db.GetContext(ctx, &entry, `
			SELECT * FROM contract_transactions
			WHERE contract_id = $1 AND milestone_id IS NULL AND purpose = 'funding' AND status = $2
			ORDER BY created_at ASC LIMIT 1
		`, contractID, models.TransactionStatusHeld)
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFundingNotFound
		}
		return nil, fmt.Errorf("ledger repository: find open funding %w", err)
	}
	return &entry, nil
}

// ListOpenFunding возвращает все нерастраченные funding записи контракта.
func (r *LedgerRepository) ListOpenFunding(ctx context.Context, contractID uuid.UUID) ([]models.ContractTransaction, error) {
	var entries []models.ContractTransaction
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM contract_transactions
		WHERE contract_id = $1 AND purpose = 'funding' AND status = $2
		ORDER BY created_at ASC
	`, contractID, models.TransactionStatusHeld)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: list open funding %w", err)
	}
	return entries, nil
}

// CountOpenFunding возвращает количество нерастраченных funding записей.
func (r *LedgerRepository) CountOpenFunding(ctx context.Context, contractID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM contract_transactions
		WHERE contract_id = $1 AND purpose = 'funding' AND status = $2
	`, contractID, models.TransactionStatusHeld)
	if err != nil {
		return 0, fmt.Errorf("ledger repository: count open funding %w", err)
	}
	return count, nil
}

// Totals считает агрегаты журнала по контракту.
func (r *LedgerRepository) Totals(ctx context.Context, contractID uuid.UUID) (*models.LedgerTotals, error) {
	var totals models.LedgerTotals
	err := r.db.GetContext(ctx, &totals, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE purpose = 'funding'), 0)    AS total_funded,
			COALESCE(SUM(amount) FILTER (WHERE purpose = 'release'), 0)    AS total_released,
			COALESCE(SUM(amount) FILTER (WHERE purpose = 'commission'), 0) AS total_commission,
			COALESCE(SUM(amount) FILTER (WHERE purpose = 'refund'), 0)     AS total_refunded
		FROM contract_transactions
		WHERE contract_id = $1
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: totals %w", err)
	}
	return &totals, nil
}

// ListByContract возвращает журнал контракта по порядку записи.
func (r *LedgerRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.ContractTransaction, error) {
	var entries []models.ContractTransaction
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM contract_transactions
		WHERE contract_id = $1
		ORDER BY created_at ASC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: list by contract %w", err)
	}
	return entries, nil
}

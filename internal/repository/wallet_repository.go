package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-contracts/internal/models"
)

// WalletRepository хранит балансы сторон. Изменяются они только внутри
// транзакций settlement операций.
type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetClientWallet возвращает кошелёк клиента, создаёт если не существует.
func (r *WalletRepository) GetClientWallet(ctx context.Context, userID uuid.UUID) (*models.ClientWallet, error) {
	var wallet models.ClientWallet
	err := r.db.GetContext(ctx, &wallet, `
		INSERT INTO client_wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, balance, updated_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: get client wallet %w", err)
	}
	return &wallet, nil
}

// GetFreelancerWallet возвращает кошелёк фрилансера, создаёт если не существует.
func (r *WalletRepository) GetFreelancerWallet(ctx context.Context, userID uuid.UUID) (*models.FreelancerWallet, error) {
	var wallet models.FreelancerWallet
	err := r.db.GetContext(ctx, &wallet, `
		INSERT INTO freelancer_wallets (user_id, balance, total_earned, total_commission_paid)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, balance, total_earned, total_commission_paid, updated_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: get freelancer wallet %w", err)
	}
	return &wallet, nil
}

// ApplyClientDeltaTx изменяет баланс клиента внутри транзакции расчёта.
// Положительная дельта — поступление в эскроу, отрицательная — выплата
// или возврат средств из него.
func (r *WalletRepository) ApplyClientDeltaTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO client_wallets (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = client_wallets.balance + $2, updated_at = NOW()
	`, userID, delta)
	if err != nil {
		return fmt.Errorf("wallet repository: apply client delta %w", err)
	}
	return nil
}

// CreditFreelancerTx начисляет фрилансеру его долю выплаты и увеличивает
// накопительные счётчики заработка и комиссии.
func (r *WalletRepository) CreditFreelancerTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, share, commission float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO freelancer_wallets (user_id, balance, total_earned, total_commission_paid)
		VALUES ($1, $2, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			balance = freelancer_wallets.balance + $2,
			total_earned = freelancer_wallets.total_earned + $2,
			total_commission_paid = freelancer_wallets.total_commission_paid + $3,
			updated_at = NOW()
	`, userID, share, commission)
	if err != nil {
		return fmt.Errorf("wallet repository: credit freelancer %w", err)
	}
	return nil
}

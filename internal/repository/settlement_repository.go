package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-contracts/internal/models"
	"github.com/ignatzorin/freelance-contracts/internal/repository/common"
)

// SettlementUnit описывает один атомарный шаг расчёта: записи журнала,
// расходование funding записей, дельты кошельков и новое состояние
// агрегата. Либо применяется целиком, либо не применяется вовсе.
type SettlementUnit struct {
	Contract *models.Contract

	// Entries вставляются идемпотентно: повтор после частичного сбоя
	// не приводит к двойной выплате.
	Entries []models.ContractTransaction

	// ConsumeFunding — funding записи, которые операция расходует.
	ConsumeFunding []uuid.UUID
	FundingStatus  string

	// RefundFunding — funding записи, возвращаемые клиенту; переходят в
	// статус refunded_back_to_client независимо от FundingStatus.
	RefundFunding []uuid.UUID

	// ClientDelta применяется к кошельку клиента (может быть 0).
	ClientDelta float64

	// FreelancerShare/FreelancerCommission начисляются фрилансеру.
	FreelancerShare      float64
	FreelancerCommission float64
}

// SettlementRepository применяет SettlementUnit в одной транзакции базы.
type SettlementRepository struct {
	db        *sqlx.DB
	contracts *ContractRepository
	ledger    *LedgerRepository
	wallets   *WalletRepository
}

func NewSettlementRepository(db *sqlx.DB, contracts *ContractRepository, ledger *LedgerRepository, wallets *WalletRepository) *SettlementRepository {
	return &SettlementRepository{
		db:        db,
		contracts: contracts,
		ledger:    ledger,
		wallets:   wallets,
	}
}

// Apply выполняет шаг расчёта атомарно. Конфликт версии агрегата
// откатывает всю транзакцию, включая записи журнала.
func (r *SettlementRepository) Apply(ctx context.Context, unit SettlementUnit) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range unit.Entries {
			if _, err := r.ledger.InsertTx(ctx, tx, &unit.Entries[i]); err != nil {
				return err
			}
		}

		if len(unit.ConsumeFunding) > 0 {
			if err := r.ledger.MarkFundingTx(ctx, tx, unit.ConsumeFunding, unit.FundingStatus); err != nil {
				return err
			}
		}

		if len(unit.RefundFunding) > 0 {
			if err := r.ledger.MarkFundingTx(ctx, tx, unit.RefundFunding, models.TransactionStatusRefunded); err != nil {
				return err
			}
		}

		if unit.ClientDelta != 0 {
			if err := r.wallets.ApplyClientDeltaTx(ctx, tx, unit.Contract.ClientID, unit.ClientDelta); err != nil {
				return err
			}
		}

		if unit.FreelancerShare != 0 || unit.FreelancerCommission != 0 {
			if err := r.wallets.CreditFreelancerTx(ctx, tx, unit.Contract.FreelancerID, unit.FreelancerShare, unit.FreelancerCommission); err != nil {
				return err
			}
		}

		return r.contracts.SaveTx(ctx, tx, unit.Contract)
	})
}

package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-contracts/internal/models"
)

// ActivityRepository ведёт журнал действий по контракту. Записи только
// добавляются: ни обновлений, ни удалений.
type ActivityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Add(ctx context.Context, a *models.ContractActivity) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contract_activities (id, contract_id, actor_id, actor_role, action, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.ContractID, a.ActorID, a.ActorRole, a.Action, a.Description)
	if err != nil {
		return fmt.Errorf("activity repository: add %w", err)
	}
	return nil
}

func (r *ActivityRepository) ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.ContractActivity, error) {
	var activities []models.ContractActivity
	err := r.db.SelectContext(ctx, &activities, `
		SELECT * FROM contract_activities
		WHERE contract_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, contractID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("activity repository: list by contract %w", err)
	}
	return activities, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-contracts/internal/models"
)

var ErrCancellationNotFound = errors.New("cancellation request not found")

type CancellationRepository struct {
	db *sqlx.DB
}

func NewCancellationRepository(db *sqlx.DB) *CancellationRepository {
	return &CancellationRepository{db: db}
}

// Create сохраняет запрос на расторжение и присваивает номер CR-000001.
func (r *CancellationRepository) Create(ctx context.Context, req *models.CancellationRequest) error {
	var seq int64
	err := r.db.GetContext(ctx, &seq, `
		INSERT INTO sequences (name, value) VALUES ('cancellation_requests', 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value
	`)
	if err != nil {
		return fmt.Errorf("cancellation repository: next sequence %w", err)
	}
	req.CancellationRequestID = fmt.Sprintf("CR-%06d", seq)
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cancellation_requests (
			id, cancellation_request_id, contract_id, initiated_by, reason,
			client_split_percent, freelancer_split_percent,
			total_held_amount, client_amount, freelancer_amount, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, req.ID, req.CancellationRequestID, req.ContractID, req.InitiatedBy, req.Reason,
		req.ClientSplitPercent, req.FreelancerSplitPercent,
		req.TotalHeldAmount, req.ClientAmount, req.FreelancerAmount, req.Status)
	if err != nil {
		return fmt.Errorf("cancellation repository: create %w", err)
	}
	return nil
}

// GetPendingByContract возвращает единственный pending запрос контракта.
func (r *CancellationRepository) GetPendingByContract(ctx context.Context, contractID uuid.UUID) (*models.CancellationRequest, error) {
	var req models.CancellationRequest
	err := r.db.GetContext(ctx, &req, `
		SELECT * FROM cancellation_requests
		WHERE contract_id = $1 AND status = $2
	`, contractID, models.CancellationStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCancellationNotFound
		}
		return nil, fmt.Errorf("cancellation repository: get pending %w", err)
	}
	return &req, nil
}

// ListByContract возвращает историю запросов на расторжение контракта.
func (r *CancellationRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.CancellationRequest, error) {
	var reqs []models.CancellationRequest
	err := r.db.SelectContext(ctx, &reqs, `
		SELECT * FROM cancellation_requests
		WHERE contract_id = $1 ORDER BY created_at DESC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("cancellation repository: list by contract %w", err)
	}
	return reqs, nil
}

// SetStatus переводит запрос в финальное состояние.
func (r *CancellationRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.CancellationStatus) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE cancellation_requests SET status = $2, resolved_at = $3
		WHERE id = $1 AND status = $4
	`, id, status, now, models.CancellationStatusPending)
	if err != nil {
		return fmt.Errorf("cancellation repository: set status %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancellation repository: set status rows affected %w", err)
	}
	if affected == 0 {
		return ErrCancellationNotFound
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-contracts/internal/models"
)

var (
	ErrContractNotFound = errors.New("contract not found")
	// ErrVersionConflict возвращается, когда агрегат был изменён
	// параллельным запросом; вызывающий должен перечитать и повторить.
	ErrVersionConflict = errors.New("contract version conflict")
)

const contractColumns = `
	id, contract_id, client_id, freelancer_id, offer_id, job_id, proposal_id, title,
	payment_type, budget, hourly_rate, estimated_hours_per_week,
	funded_amount, total_paid, balance, revisions_allowed, revisions_used,
	status, deadline, milestones, deliverables, timesheets, extension_request,
	cancelled_by, cancelled_at, last_submission_at, version, created_at, updated_at`

// contractRow добавляет к модели сырое JSONB поле запроса на перенос срока.
type contractRow struct {
	models.Contract
	ExtensionRaw []byte `db:"extension_request"`
}

func (r *contractRow) toModel() (*models.Contract, error) {
	c := r.Contract
	if len(r.ExtensionRaw) > 0 {
		var ext models.ExtensionRequest
		if err := json.Unmarshal(r.ExtensionRaw, &ext); err != nil {
			return nil, fmt.Errorf("contract repository: extension_request %w", err)
		}
		c.ExtensionRequest = &ext
	}
	return &c, nil
}

func marshalExtension(ext *models.ExtensionRequest) (interface{}, error) {
	if ext == nil {
		return nil, nil
	}
	raw, err := json.Marshal(ext)
	if err != nil {
		return nil, fmt.Errorf("contract repository: extension_request %w", err)
	}
	return raw, nil
}

type ContractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// NextSequence атомарно увеличивает именованный счётчик и возвращает
// новое значение. Используется для человекочитаемых номеров.
func (r *ContractRepository) NextSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.db.GetContext(ctx, &value, `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value
	`, name)
	if err != nil {
		return 0, fmt.Errorf("contract repository: next sequence %w", err)
	}
	return value, nil
}

// Create сохраняет новый контракт и присваивает ему номер вида CTR-000001.
func (r *ContractRepository) Create(ctx context.Context, c *models.Contract) error {
	seq, err := r.NextSequence(ctx, "contracts")
	if err != nil {
		return err
	}
	c.ContractID = fmt.Sprintf("CTR-%06d", seq)
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Version = 1

	ext, err := marshalExtension(c.ExtensionRequest)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO contracts (
			id, contract_id, client_id, freelancer_id, offer_id, job_id, proposal_id, title,
			payment_type, budget, hourly_rate, estimated_hours_per_week,
			funded_amount, total_paid, balance, revisions_allowed, revisions_used,
			status, deadline, milestones, deliverables, timesheets, extension_request,
			cancelled_by, cancelled_at, last_submission_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`,
		c.ID, c.ContractID, c.ClientID, c.FreelancerID, c.OfferID, c.JobID, c.ProposalID, c.Title,
		c.PaymentType, c.Budget, c.HourlyRate, c.EstimatedHoursPerWeek,
		c.FundedAmount, c.TotalPaid, c.Balance, c.RevisionsAllowed, c.RevisionsUsed,
		c.Status, c.Deadline, c.Milestones, c.Deliverables, c.Timesheets, ext,
		c.CancelledBy, c.CancelledAt, c.LastSubmissionAt, c.Version,
	)
	if err != nil {
		return fmt.Errorf("contract repository: create %w", err)
	}
	return nil
}

// GetByID загружает агрегат целиком.
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var row contractRow
	query := `SELECT` + contractColumns + ` FROM contracts WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: get by id %w", err)
	}
	return row.toModel()
}

// GetByContractID загружает агрегат по человекочитаемому номеру.
func (r *ContractRepository) GetByContractID(ctx context.Context, contractID string) (*models.Contract, error) {
	var row contractRow
	query := `SELECT` + contractColumns + ` FROM contracts WHERE contract_id = $1`
	if err := r.db.GetContext(ctx, &row, query, contractID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: get by contract id %w", err)
	}
	return row.toModel()
}

// ListByUser возвращает контракты, где пользователь — одна из сторон.
func (r *ContractRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	var rows []contractRow
	query := `SELECT` + contractColumns + `
		FROM contracts
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("contract repository: list by user %w", err)
	}

	contracts := make([]models.Contract, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, nil
}

// ListWithStaleSubmissions возвращает активные контракты, по которым
// последняя сдача произошла раньше переданного момента. Кандидаты для
// фонового автоподтверждения.
func (r *ContractRepository) ListWithStaleSubmissions(ctx context.Context, before time.Time) ([]models.Contract, error) {
	var rows []contractRow
	query := `SELECT` + contractColumns + `
		FROM contracts
		WHERE status = $1 AND last_submission_at IS NOT NULL AND last_submission_at < $2
		ORDER BY last_submission_at ASC`
	if err := r.db.SelectContext(ctx, &rows, query, models.ContractStatusActive, before); err != nil {
		return nil, fmt.Errorf("contract repository: list stale submissions %w", err)
	}

	contracts := make([]models.Contract, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, nil
}

// Save сохраняет агрегат под оптимистичной блокировкой: запись уходит
// только если версия в базе совпадает с версией загруженного агрегата.
func (r *ContractRepository) Save(ctx context.Context, c *models.Contract) error {
	return r.save(ctx, r.db, c)
}

// SaveTx — то же самое внутри внешней транзакции settlement операции.
func (r *ContractRepository) SaveTx(ctx context.Context, tx *sqlx.Tx, c *models.Contract) error {
	return r.save(ctx, tx, c)
}

func (r *ContractRepository) save(ctx context.Context, q sqlx.ExtContext, c *models.Contract) error {
	ext, err := marshalExtension(c.ExtensionRequest)
	if err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, `
		UPDATE contracts SET
			payment_type = $3, budget = $4, hourly_rate = $5, estimated_hours_per_week = $6,
			funded_amount = $7, total_paid = $8, balance = $9,
			revisions_allowed = $10, revisions_used = $11,
			status = $12, deadline = $13,
			milestones = $14, deliverables = $15, timesheets = $16, extension_request = $17,
			cancelled_by = $18, cancelled_at = $19, last_submission_at = $20,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`,
		c.ID, c.Version,
		c.PaymentType, c.Budget, c.HourlyRate, c.EstimatedHoursPerWeek,
		c.FundedAmount, c.TotalPaid, c.Balance,
		c.RevisionsAllowed, c.RevisionsUsed,
		c.Status, c.Deadline,
		c.Milestones, c.Deliverables, c.Timesheets, ext,
		c.CancelledBy, c.CancelledAt, c.LastSubmissionAt,
	)
	if err != nil {
		return fmt.Errorf("contract repository: save %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("contract repository: save rows affected %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	c.Version++
	return nil
}

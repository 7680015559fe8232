package models

import (
	"time"

	"github.com/google/uuid"
)

// ClientWallet — баланс клиента; уменьшается при выплатах фрилансеру.
type ClientWallet struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Balance   float64   `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FreelancerWallet — баланс фрилансера с накопительными счётчиками
// заработка и удержанной комиссии.
type FreelancerWallet struct {
	UserID              uuid.UUID `db:"user_id" json:"user_id"`
	Balance             float64   `db:"balance" json:"balance"`
	TotalEarned         float64   `db:"total_earned" json:"total_earned"`
	TotalCommissionPaid float64   `db:"total_commission_paid" json:"total_commission_paid"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

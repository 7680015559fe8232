package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/models"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

// WalletStore описывает чтение кошельков.
type WalletStore interface {
	GetClientWallet(ctx context.Context, userID uuid.UUID) (*models.ClientWallet, error)
	GetFreelancerWallet(ctx context.Context, userID uuid.UUID) (*models.FreelancerWallet, error)
}

// WalletView — кошелёк пользователя в его роли.
type WalletView struct {
	Role       string                   `json:"role"`
	Client     *models.ClientWallet     `json:"client,omitempty"`
	Freelancer *models.FreelancerWallet `json:"freelancer,omitempty"`
}

// WalletService отдаёт денормализованные балансы. Источник истины —
// журнал транзакций; кошельки обновляются только расчётными шагами.
type WalletService struct {
	wallets WalletStore
}

func NewWalletService(wallets WalletStore) *WalletService {
	return &WalletService{wallets: wallets}
}

// GetWallet возвращает кошелёк пользователя по его роли.
func (s *WalletService) GetWallet(ctx context.Context, userID uuid.UUID, role string) (*WalletView, error) {
	switch role {
	case models.RoleClient:
		w, err := s.wallets.GetClientWallet(ctx, userID)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить кошелёк")
		}
		return &WalletView{Role: role, Client: w}, nil
	case models.RoleFreelancer:
		w, err := s.wallets.GetFreelancerWallet(ctx, userID)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить кошелёк")
		}
		return &WalletView{Role: role, Freelancer: w}, nil
	default:
		return nil, apperror.New(apperror.ErrCodeBadRequest, "кошелёк доступен клиентам и фрилансерам")
	}
}

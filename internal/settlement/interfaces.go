package settlement

import (
	"context"
	"time"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
	"gorm.io/gorm"
)

// Repository defines persistence for the append-only payments ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	Insert(ctx context.Context, payment *models.Payment) error
	ListForPayee(ctx context.Context, payee types.PartyRef, paymentType enums.PaymentType, status enums.PaymentStatus, from, to time.Time) ([]models.Payment, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]models.Payment, error)
}

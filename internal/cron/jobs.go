package cron

import (
	"context"

	"gorm.io/gorm"
)

// txRunner is satisfied by *db.Client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

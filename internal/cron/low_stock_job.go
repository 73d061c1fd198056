package cron

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/supplyhub-backend/internal/inventory"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

const defaultLowStockThreshold = 5

type lowStockReader interface {
	LowStock(ctx context.Context, threshold int, act actor.Actor) ([]inventory.StockLevel, error)
}

type LowStockJobParams struct {
	Logger    *logger.Logger
	Inventory lowStockReader
	Notifier  notifications.Publisher
	Threshold int
}

// NewLowStockJob alerts product owners whose tracked stock is at or below the
// threshold. An item is alerted once until it climbs back above the threshold.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	return &lowStockJob{
		logg:      params.Logger,
		inventory: params.Inventory,
		notifier:  params.Notifier,
		threshold: threshold,
		alerted:   map[string]int{},
		now:       time.Now,
	}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	inventory lowStockReader
	notifier  notifications.Publisher
	threshold int
	alerted   map[string]int
	now       func() time.Time
}

func (j *lowStockJob) Name() string { return "low-stock-alerts" }

func (j *lowStockJob) Run(ctx context.Context) error {
	levels, err := j.inventory.LowStock(ctx, j.threshold, actor.System())
	if err != nil {
		return fmt.Errorf("low stock query: %w", err)
	}

	current := make(map[string]int, len(levels))
	sent := 0
	for _, level := range levels {
		quantity := 0
		if level.Quantity != nil {
			quantity = *level.Quantity
		}
		key := stockKey(level)
		current[key] = quantity
		if previous, seen := j.alerted[key]; seen && quantity >= previous {
			continue
		}
		j.notifier.Publish(ctx, lowStockEvent(level, quantity, j.threshold, j.now().UTC()))
		sent++
	}
	j.alerted = current

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"threshold":   j.threshold,
		"low_items":   len(levels),
		"alerts_sent": sent,
	}), "low stock scan complete")
	return nil
}

func stockKey(level inventory.StockLevel) string {
	if level.VariantID != nil {
		return "variant:" + level.VariantID.String()
	}
	return "product:" + level.ProductID.String()
}

func lowStockEvent(level inventory.StockLevel, quantity, threshold int, at time.Time) notifications.Event {
	productID := level.ProductID
	ownerID := level.Owner.ID
	return notifications.Event{
		Type:        enums.NotificationEventTypeInventoryLowStock,
		Recipient:   level.Owner.Kind.NotificationRecipient(),
		RecipientID: &ownerID,
		ProductID:   &productID,
		VariantID:   level.VariantID,
		Attributes: map[string]string{
			"sku":       level.SKU,
			"name":      level.Name,
			"quantity":  strconv.Itoa(quantity),
			"threshold": strconv.Itoa(threshold),
		},
		OccurredAt: at,
	}
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "supplyhub"

// Warning kinds surfaced by best-effort order steps.
const (
	WarningInventory      = "inventory_apply"
	WarningNegativePayout = "negative_payout"
	WarningSettlement     = "settlement"
)

// LedgerMetrics tracks order, inventory, settlement and notification activity.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	ordersCreated        *prometheus.CounterVec
	orderTransitions     *prometheus.CounterVec
	orderWarnings        *prometheus.CounterVec
	inventoryChanges     *prometheus.CounterVec
	settlementRecords    *prometheus.CounterVec
	webhookIngests       *prometheus.CounterVec
	notificationsDropped *prometheus.CounterVec
	notificationsSent    *prometheus.CounterVec
	outboxPublishes      *prometheus.CounterVec
}

// NewLedgerMetrics registers the domain metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}
	m := &LedgerMetrics{
		ordersCreated:        counter("orders_created_total", "Orders persisted, by source.", "source"),
		orderTransitions:     counter("order_transitions_total", "Accepted order status transitions, by target status.", "status"),
		orderWarnings:        counter("order_warnings_total", "Best-effort order steps that failed after persistence.", "kind"),
		inventoryChanges:     counter("inventory_changes_total", "Inventory ledger entries written, by change type.", "change_type"),
		settlementRecords:    counter("settlement_records_total", "Settlement ledger rows inserted, by payment type.", "type"),
		webhookIngests:       counter("webhook_ingest_total", "Storefront webhook deliveries, by outcome.", "outcome"),
		notificationsDropped: counter("notifications_dropped_total", "Notifications dropped because the queue was full.", "event"),
		notificationsSent:    counter("notifications_delivered_total", "Notification delivery attempts, by outcome.", "event", "outcome"),
		outboxPublishes:      counter("outbox_publish_total", "Outbox rows handled by the publisher, by event type and outcome.", "event_type", "outcome"),
	}
	reg.MustRegister(
		m.ordersCreated,
		m.orderTransitions,
		m.orderWarnings,
		m.inventoryChanges,
		m.settlementRecords,
		m.webhookIngests,
		m.notificationsDropped,
		m.notificationsSent,
		m.outboxPublishes,
	)
	return m
}

func (m *LedgerMetrics) OrderCreated(source string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(source)).Inc()
}

func (m *LedgerMetrics) OrderTransitioned(status string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *LedgerMetrics) OrderWarning(kind string) {
	if m == nil || m.orderWarnings == nil {
		return
	}
	m.orderWarnings.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *LedgerMetrics) InventoryChanged(changeType string) {
	if m == nil || m.inventoryChanges == nil {
		return
	}
	m.inventoryChanges.WithLabelValues(normalizeLabel(changeType)).Inc()
}

func (m *LedgerMetrics) SettlementRecorded(paymentType string) {
	if m == nil || m.settlementRecords == nil {
		return
	}
	m.settlementRecords.WithLabelValues(normalizeLabel(paymentType)).Inc()
}

func (m *LedgerMetrics) WebhookIngested(outcome string) {
	if m == nil || m.webhookIngests == nil {
		return
	}
	m.webhookIngests.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *LedgerMetrics) NotificationDropped(event string) {
	if m == nil || m.notificationsDropped == nil {
		return
	}
	m.notificationsDropped.WithLabelValues(normalizeLabel(event)).Inc()
}

func (m *LedgerMetrics) NotificationDelivered(event string, err error) {
	if m == nil || m.notificationsSent == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.notificationsSent.WithLabelValues(normalizeLabel(event), outcome).Inc()
}

// OutboxPublished counts one publisher decision: published, retry or dead_letter.
func (m *LedgerMetrics) OutboxPublished(eventType, outcome string) {
	if m == nil || m.outboxPublishes == nil {
		return
	}
	m.outboxPublishes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for SQLite, which backs tests and
// local runs. Keep it in step with pkg/migrate/migrations.
var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  owner_kind TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  price TEXT NOT NULL,
  cost TEXT NOT NULL DEFAULT '0',
  commission_rate TEXT NOT NULL DEFAULT '0',
  sourcing_agent_commission_rate TEXT,
  quantity INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  price TEXT,
  quantity INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS storefront_connections (
  id TEXT PRIMARY KEY,
  shop_domain TEXT NOT NULL UNIQUE,
  dropshipper_id TEXT NOT NULL,
  webhook_secret TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS external_listings (
  id TEXT PRIMARY KEY,
  connection_id TEXT NOT NULL,
  external_product_id TEXT NOT NULL,
  external_variant_id TEXT,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  dropshipper_id TEXT NOT NULL,
  supplier_id TEXT NOT NULL,
  external_order_id TEXT,
  source TEXT NOT NULL DEFAULT 'manual',
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  shipping_address TEXT,
  subtotal TEXT NOT NULL,
  shipping_cost TEXT NOT NULL,
  tax TEXT NOT NULL,
  total TEXT NOT NULL,
  commission_amount TEXT NOT NULL,
  sourcing_agent_commission_amount TEXT NOT NULL,
  payout_amount TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  tracking_number TEXT,
  tracking_url TEXT,
  shipping_method TEXT,
  notes TEXT,
  version INTEGER NOT NULL DEFAULT 1,
  settled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number ON orders (order_number);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_external_order_id ON orders (external_order_id) WHERE external_order_id IS NOT NULL;`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  external_product_id TEXT,
  external_variant_id TEXT,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  line_total TEXT NOT NULL,
  commission_rate TEXT NOT NULL,
  agent_commission_rate TEXT,
  owner_kind TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  sequence INTEGER NOT NULL,
  status TEXT NOT NULL,
  note TEXT,
  actor_user_id TEXT,
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_order_status_history_sequence ON order_status_history (order_id, sequence);`, `
CREATE TABLE IF NOT EXISTS inventory_ledger_entries (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  previous_quantity INTEGER NOT NULL,
  new_quantity INTEGER NOT NULL,
  change_amount INTEGER NOT NULL,
  change_type TEXT NOT NULL,
  order_id TEXT,
  actor_user_id TEXT,
  notes TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL,
  method TEXT NOT NULL,
  payee_kind TEXT NOT NULL,
  payee_id TEXT NOT NULL,
  order_id TEXT,
  subscription_id TEXT,
  transaction_id TEXT NOT NULL,
  details TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_transaction_id ON payments (transaction_id);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`, `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// ApplySQLiteSchema creates any missing ledger tables on a SQLite connection.
func ApplySQLiteSchema(ctx context.Context, conn *gorm.DB) error {
	if name := conn.Dialector.Name(); name != "sqlite" {
		return fmt.Errorf("sqlite schema cannot be applied to %s", name)
	}
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

// Package seed fills a database with a fake marketplace: suppliers and
// sourcing agents with stocked catalogs, dropshipper storefronts with mapped
// listings, and a batch of orders placed through the order service.
package seed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/orders"
	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

type orderCreator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.Result, error)
}

// Options sizes the generated marketplace. Seed makes runs reproducible; zero
// picks a random seed.
type Options struct {
	Suppliers        int
	Agents           int
	Dropshippers     int
	ProductsPerOwner int
	Orders           int
	Seed             uint64
}

// Result reports what was written.
type Result struct {
	Suppliers   []uuid.UUID
	Agents      []uuid.UUID
	Products    []models.Product
	Connections []models.StorefrontConnection
	Listings    int
	Orders      []uuid.UUID
}

type Seeder struct {
	db     *gorm.DB
	orders orderCreator
	logg   *logger.Logger
	faker  *gofakeit.Faker
}

func New(db *gorm.DB, orderSvc orderCreator, logg *logger.Logger, seed uint64) (*Seeder, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db required")
	}
	if orderSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Seeder{db: db, orders: orderSvc, logg: logg, faker: gofakeit.New(seed)}, nil
}

func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Suppliers <= 0 || opts.ProductsPerOwner <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one supplier with one product is required")
	}
	result := &Result{}

	for i := 0; i < opts.Suppliers; i++ {
		result.Suppliers = append(result.Suppliers, uuid.New())
	}
	for i := 0; i < opts.Agents; i++ {
		result.Agents = append(result.Agents, uuid.New())
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range result.Suppliers {
			products, err := s.createCatalog(tx, types.Supplier(id), opts.ProductsPerOwner)
			if err != nil {
				return err
			}
			result.Products = append(result.Products, products...)
		}
		for _, id := range result.Agents {
			products, err := s.createCatalog(tx, types.SourcingAgent(id), opts.ProductsPerOwner)
			if err != nil {
				return err
			}
			result.Products = append(result.Products, products...)
		}
		for i := 0; i < opts.Dropshippers; i++ {
			conn, listings, err := s.createStorefront(tx, result.Products)
			if err != nil {
				return err
			}
			result.Connections = append(result.Connections, *conn)
			result.Listings += listings
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed catalog")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"products":    len(result.Products),
		"connections": len(result.Connections),
		"listings":    result.Listings,
	}), "catalog seeded")

	for i := 0; i < opts.Orders; i++ {
		id, err := s.placeOrder(ctx, result)
		if err != nil {
			return result, err
		}
		result.Orders = append(result.Orders, id)
	}
	if opts.Orders > 0 {
		s.logg.Info(s.logg.WithField(ctx, "orders", len(result.Orders)), "orders seeded")
	}
	return result, nil
}

func (s *Seeder) createCatalog(tx *gorm.DB, owner types.PartyRef, count int) ([]models.Product, error) {
	now := time.Now().UTC()
	products := make([]models.Product, 0, count)
	for i := 0; i < count; i++ {
		qty := s.faker.Number(0, 250)
		product := models.Product{
			ID:             uuid.New(),
			Owner:          owner,
			SKU:            fmt.Sprintf("SKU-%s", s.faker.LetterN(8)),
			Name:           s.faker.ProductName(),
			Price:          s.money(5, 400),
			Cost:           s.money(1, 4),
			CommissionRate: decimal.NewFromInt(int64(s.faker.Number(5, 25))),
			Quantity:       &qty,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if owner.IsSourcingAgent() && s.faker.Bool() {
			product.AgentRate = decimal.NewNullDecimal(decimal.NewFromInt(int64(s.faker.Number(5, 15))))
		}
		if err := tx.Create(&product).Error; err != nil {
			return nil, fmt.Errorf("create product: %w", err)
		}

		if s.faker.Bool() {
			for v := 0; v < s.faker.Number(1, 3); v++ {
				variantQty := s.faker.Number(0, 80)
				variant := models.ProductVariant{
					ID:        uuid.New(),
					ProductID: product.ID,
					SKU:       fmt.Sprintf("%s-%d", product.SKU, v+1),
					Name:      s.faker.Color(),
					Price:     decimal.NewNullDecimal(product.Price.Add(s.money(0, 20))),
					Quantity:  &variantQty,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := tx.Create(&variant).Error; err != nil {
					return nil, fmt.Errorf("create variant: %w", err)
				}
				product.Variants = append(product.Variants, variant)
			}
		}
		products = append(products, product)
	}
	return products, nil
}

func (s *Seeder) createStorefront(tx *gorm.DB, products []models.Product) (*models.StorefrontConnection, int, error) {
	conn := &models.StorefrontConnection{
		ID:            uuid.New(),
		ShopDomain:    fmt.Sprintf("%s.%s", s.faker.LetterN(10), s.faker.DomainName()),
		DropshipperID: uuid.New(),
		WebhookSecret: "whsec_" + s.faker.LetterN(24),
		Currency:      "USD",
		IsActive:      true,
	}
	if err := tx.Create(conn).Error; err != nil {
		return nil, 0, fmt.Errorf("create storefront connection: %w", err)
	}

	listings := 0
	for i, product := range products {
		externalProductID := strconv.Itoa(1000 + i)
		rows := []models.ExternalListing{{
			ID:                uuid.New(),
			ConnectionID:      conn.ID,
			ExternalProductID: externalProductID,
			ProductID:         product.ID,
		}}
		for j, variant := range product.Variants {
			externalVariantID := fmt.Sprintf("%s-%d", externalProductID, j+1)
			variantID := variant.ID
			rows = append(rows, models.ExternalListing{
				ID:                uuid.New(),
				ConnectionID:      conn.ID,
				ExternalProductID: externalProductID,
				ExternalVariantID: &externalVariantID,
				ProductID:         product.ID,
				VariantID:         &variantID,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return nil, 0, fmt.Errorf("create listings: %w", err)
		}
		listings += len(rows)
	}
	return conn, listings, nil
}

// placeOrder buys one to three products from a random supplier, sometimes
// mixing in a sourcing agent's product.
func (s *Seeder) placeOrder(ctx context.Context, result *Result) (uuid.UUID, error) {
	supplierID := result.Suppliers[s.faker.Number(0, len(result.Suppliers)-1)]
	var supplierProducts, agentProducts []models.Product
	for _, product := range result.Products {
		switch {
		case product.Owner == types.Supplier(supplierID):
			supplierProducts = append(supplierProducts, product)
		case product.Owner.IsSourcingAgent():
			agentProducts = append(agentProducts, product)
		}
	}

	items := []orders.ItemInput{s.itemFor(supplierProducts[s.faker.Number(0, len(supplierProducts)-1)])}
	if len(agentProducts) > 0 && s.faker.Bool() {
		items = append(items, s.itemFor(agentProducts[s.faker.Number(0, len(agentProducts)-1)]))
	}

	dropshipperID := uuid.New()
	if len(result.Connections) > 0 {
		dropshipperID = result.Connections[s.faker.Number(0, len(result.Connections)-1)].DropshipperID
	}

	name := s.faker.Name()
	address := s.faker.Address()
	res, err := s.orders.CreateOrder(ctx, orders.CreateOrderInput{
		Requester:     actor.System(),
		DropshipperID: dropshipperID,
		SupplierID:    &supplierID,
		Source:        enums.OrderSourceManual,
		CustomerName:  name,
		CustomerEmail: s.faker.Email(),
		ShippingAddress: types.ShippingAddress{
			Name:       name,
			Line1:      address.Street,
			City:       address.City,
			State:      s.faker.StateAbr(),
			PostalCode: address.Zip,
			Country:    "US",
		},
		Items:        items,
		ShippingCost: s.money(0, 15),
		Tax:          s.money(0, 10),
		Currency:     "USD",
	})
	if err != nil {
		return uuid.Nil, err
	}
	return res.Order.ID, nil
}

func (s *Seeder) itemFor(product models.Product) orders.ItemInput {
	item := orders.ItemInput{ProductID: product.ID, Quantity: s.faker.Number(1, 3)}
	if len(product.Variants) > 0 {
		variantID := product.Variants[s.faker.Number(0, len(product.Variants)-1)].ID
		item.VariantID = &variantID
	}
	return item
}

func (s *Seeder) money(minimum, maximum float64) decimal.Decimal {
	return decimal.NewFromFloat(s.faker.Float64Range(minimum, maximum)).Round(2)
}

package inventory

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplyhub-backend/api/middleware"
	internalinventory "github.com/angelmondragon/supplyhub-backend/internal/inventory"
	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

type manualCall struct {
	target   internalinventory.Target
	quantity int
	notes    string
}

type stubInventory struct {
	manual     []manualCall
	bulk       []internalinventory.BulkUpdate
	adjustType enums.InventoryChangeType
	adjustBy   int
	logTarget  internalinventory.Target
	newest     bool
	logRows    int
	threshold  int
}

func (s *stubInventory) ApplyManual(_ context.Context, target internalinventory.Target, newQuantity int, _ actor.Actor, notes string) (*models.InventoryLedgerEntry, error) {
	s.manual = append(s.manual, manualCall{target: target, quantity: newQuantity, notes: notes})
	return &models.InventoryLedgerEntry{ID: uuid.New(), NewQuantity: newQuantity}, nil
}

func (s *stubInventory) ApplyOrder(context.Context, []internalinventory.OrderLine, uuid.UUID, actor.Actor) ([]models.InventoryLedgerEntry, error) {
	return nil, nil
}

func (s *stubInventory) ApplySync(context.Context, internalinventory.Target, int, string) (*models.InventoryLedgerEntry, error) {
	return nil, nil
}

func (s *stubInventory) ApplyAdjustment(_ context.Context, _ internalinventory.Target, delta int, changeType enums.InventoryChangeType, _ actor.Actor, _ string) (*models.InventoryLedgerEntry, error) {
	s.adjustBy = delta
	s.adjustType = changeType
	return &models.InventoryLedgerEntry{ID: uuid.New(), ChangeType: changeType}, nil
}

func (s *stubInventory) BulkApply(_ context.Context, updates []internalinventory.BulkUpdate, _ actor.Actor, _ string) ([]models.InventoryLedgerEntry, error) {
	s.bulk = updates
	return []models.InventoryLedgerEntry{{ID: uuid.New()}}, nil
}

func (s *stubInventory) QueryLog(_ context.Context, target internalinventory.Target, _ actor.Actor, newestFirst bool) iter.Seq2[models.InventoryLedgerEntry, error] {
	s.logTarget = target
	s.newest = newestFirst
	return func(yield func(models.InventoryLedgerEntry, error) bool) {
		for i := 0; i < s.logRows; i++ {
			if !yield(models.InventoryLedgerEntry{ID: uuid.New(), NewQuantity: i}, nil) {
				return
			}
		}
	}
}

func (s *stubInventory) LowStock(_ context.Context, threshold int, _ actor.Actor) ([]internalinventory.StockLevel, error) {
	s.threshold = threshold
	return []internalinventory.StockLevel{}, nil
}

func newRouter(svc internalinventory.Service) http.Handler {
	act := actor.Actor{UserID: uuid.New(), PartyID: uuid.New(), Role: enums.ActorRoleSupplier}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithActor(req.Context(), act)))
		})
	})
	r.Put("/inventory/products/{productId}", SetProductQuantity(svc, nil))
	r.Put("/inventory/variants/{variantId}", SetVariantQuantity(svc, nil))
	r.Post("/inventory/bulk", Bulk(svc, nil))
	r.Post("/inventory/adjustments", Adjust(svc, nil))
	r.Get("/inventory/ledger", Ledger(svc, nil))
	r.Get("/inventory/low-stock", LowStock(svc, 5, nil))
	return r
}

func serve(t *testing.T, svc internalinventory.Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	newRouter(svc).ServeHTTP(rec, req)
	return rec
}

func TestSetQuantityTargetsProductOrVariant(t *testing.T) {
	svc := &stubInventory{}
	productID, variantID := uuid.New(), uuid.New()

	rec := serve(t, svc, http.MethodPut, "/inventory/products/"+productID.String(), `{"quantity":0,"notes":" cycle count "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = serve(t, svc, http.MethodPut, "/inventory/variants/"+variantID.String(), `{"quantity":12}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, svc.manual, 2)
	assert.Equal(t, productID, svc.manual[0].target.ProductID)
	assert.Nil(t, svc.manual[0].target.VariantID)
	assert.Equal(t, 0, svc.manual[0].quantity)
	assert.Equal(t, "cycle count", svc.manual[0].notes)
	require.NotNil(t, svc.manual[1].target.VariantID)
	assert.Equal(t, variantID, *svc.manual[1].target.VariantID)
	assert.Equal(t, 12, svc.manual[1].quantity)
}

func TestSetQuantityRejectsMissingOrNegativeQuantity(t *testing.T) {
	svc := &stubInventory{}
	path := "/inventory/products/" + uuid.NewString()

	assert.Equal(t, http.StatusBadRequest, serve(t, svc, http.MethodPut, path, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, svc, http.MethodPut, path, `{"quantity":-1}`).Code)
	assert.Empty(t, svc.manual)
}

func TestBulkReportsAppliedCount(t *testing.T) {
	svc := &stubInventory{}
	body := `{"updates":[{"product_id":"` + uuid.NewString() + `","quantity":3},{"variant_id":"` + uuid.NewString() + `","quantity":4}]}`

	rec := serve(t, svc, http.MethodPost, "/inventory/bulk", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, svc.bulk, 2)
	assert.Equal(t, 4, svc.bulk[1].Quantity)

	var payload struct {
		Data bulkResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 2, payload.Data.Requested)
	assert.Equal(t, 1, payload.Data.Applied)
}

func TestAdjustParsesChangeType(t *testing.T) {
	svc := &stubInventory{}
	body := `{"product_id":"` + uuid.NewString() + `","delta":-3,"change_type":"return"}`
	rec := serve(t, svc, http.MethodPost, "/inventory/adjustments", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, enums.InventoryChangeTypeReturn, svc.adjustType)
	assert.Equal(t, -3, svc.adjustBy)

	body = `{"product_id":"` + uuid.NewString() + `","delta":2,"change_type":"manual"}`
	assert.Equal(t, http.StatusBadRequest, serve(t, svc, http.MethodPost, "/inventory/adjustments", body).Code)
}

func TestLedgerStopsAtLimit(t *testing.T) {
	svc := &stubInventory{logRows: 5}
	productID := uuid.New()

	rec := serve(t, svc, http.MethodGet, "/inventory/ledger?product_id="+productID.String()+"&limit=3&order=asc", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, productID, svc.logTarget.ProductID)
	assert.False(t, svc.newest)

	var payload struct {
		Data ledgerResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Data.Entries, 3)
	assert.True(t, payload.Data.HasMore)

	rec = serve(t, svc, http.MethodGet, "/inventory/ledger?product_id="+productID.String(), "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Data.Entries, 5)
	assert.False(t, payload.Data.HasMore)
	assert.True(t, svc.newest)

	assert.Equal(t, http.StatusBadRequest, serve(t, svc, http.MethodGet, "/inventory/ledger", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, svc, http.MethodGet, "/inventory/ledger?product_id="+productID.String()+"&order=sideways", "").Code)
}

func TestLowStockDefaultsThreshold(t *testing.T) {
	svc := &stubInventory{}
	require.Equal(t, http.StatusOK, serve(t, svc, http.MethodGet, "/inventory/low-stock", "").Code)
	assert.Equal(t, 5, svc.threshold)

	require.Equal(t, http.StatusOK, serve(t, svc, http.MethodGet, "/inventory/low-stock?threshold=0", "").Code)
	assert.Equal(t, 0, svc.threshold)
}

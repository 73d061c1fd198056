package outbox

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgoutbox "github.com/angelmondragon/supplyhub-backend/pkg/outbox"
)

func seedDeadLetter(t *testing.T, db *gorm.DB, failedAt time.Time) models.OutboxDLQ {
	t.Helper()
	msg := "publish rejected"
	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventCommissionRecorded,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"amount":"5.00"}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
		AttemptCount:  3,
		FailedAt:      failedAt,
		CreatedAt:     failedAt,
	}
	require.NoError(t, pkgoutbox.NewDLQRepository(db).InsertTx(db, entry))
	return entry
}

func serve(reader DLQReader, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/outbox/dlq", ListDLQ(reader, nil))
	r.Get("/outbox/dlq/{eventId}", DLQDetail(reader, nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListDLQNewestFirst(t *testing.T) {
	db := dbtest.Open(t)
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	older := seedDeadLetter(t, db, base)
	newer := seedDeadLetter(t, db, base.Add(time.Hour))
	reader := pkgoutbox.NewDLQRepository(db)

	rec := serve(reader, "/outbox/dlq")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data []struct {
			EventID uuid.UUID `json:"EventID"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, newer.EventID, body.Data[0].EventID)
	assert.Equal(t, older.EventID, body.Data[1].EventID)

	rec = serve(reader, "/outbox/dlq?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)

	rec = serve(reader, "/outbox/dlq?limit=500")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDLQDetail(t *testing.T) {
	db := dbtest.Open(t)
	entry := seedDeadLetter(t, db, time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	reader := pkgoutbox.NewDLQRepository(db)

	rec := serve(reader, "/outbox/dlq/"+entry.EventID.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "publish rejected")

	rec = serve(reader, "/outbox/dlq/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(reader, "/outbox/dlq/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(nil, "/outbox/dlq")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

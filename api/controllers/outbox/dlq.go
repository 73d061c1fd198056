package outbox

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/api/responses"
	"github.com/angelmondragon/supplyhub-backend/api/validators"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

const (
	defaultDLQLimit = 50
	maxDLQLimit     = 200
)

// DLQReader reads dead-lettered outbox events.
type DLQReader interface {
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
}

// ListDLQ returns the most recent dead-lettered events, newest first.
func ListDLQ(reader DLQReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultDLQLimit, 1, maxDLQLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := reader.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// DLQDetail returns the dead letter recorded for one outbox event.
func DLQDetail(reader DLQReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := reader.FindByEventID(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dead letter"))
			return
		}
		if row == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found"))
			return
		}
		responses.WriteSuccess(w, row)
	}
}

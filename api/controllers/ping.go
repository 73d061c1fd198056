package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/api/middleware"
	"github.com/angelmondragon/supplyhub-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing echoes the authenticated actor, useful for checking tokens.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if act, ok := middleware.ActorFromContext(r.Context()); ok {
			payload["role"] = string(act.Role)
			if user := middleware.UserIDFromContext(r.Context()); user != "" {
				payload["user_id"] = user
			}
			if act.PartyID != uuid.Nil {
				payload["party_id"] = act.PartyID.String()
			}
		}
		responses.WriteSuccess(w, payload)
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "admin", "status": "ok"})
	}
}

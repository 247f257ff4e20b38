package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/localkart/localkart-backend/api/middleware"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
)

type actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
	ShopID uuid.UUID
}

func actorFromRequest(r *http.Request) (actor, error) {
	ctx := r.Context()

	userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
	if err != nil {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing authenticated user")
	}

	role, err := enums.ParseActorRole(middleware.RoleFromContext(ctx))
	if err != nil {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor role")
	}

	a := actor{UserID: userID, Role: role}
	if raw := middleware.ShopIDFromContext(ctx); raw != "" {
		shopID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed shop id")
		}
		a.ShopID = shopID
	}
	return a, nil
}

func vendorFromRequest(r *http.Request) (actor, error) {
	a, err := actorFromRequest(r)
	if err != nil {
		return actor{}, err
	}
	if a.ShopID == uuid.Nil {
		return actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "vendor shop context required")
	}
	return a, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed identifier").WithDetails(map[string]any{"param": name})
	}
	return id, nil
}

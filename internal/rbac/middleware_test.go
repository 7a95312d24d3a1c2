package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fabricflow/fabricflow/internal/rbac"
	"github.com/fabricflow/fabricflow/internal/shared"
	_ "github.com/fabricflow/fabricflow/testing"
)

func serve(t *testing.T, mw func(http.Handler) http.Handler, actor *shared.Actor) *httptest.ResponseRecorder {
	t.Helper()
	var seen shared.Actor
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = rbac.Actor(r)
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/fabrics", nil)
	if actor != nil {
		req = req.WithContext(shared.ContextWithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code == http.StatusNoContent {
		require.Equal(t, actor.ID, seen.ID)
	}
	return rec
}

func TestRequireAdmin(t *testing.T) {
	m := rbac.Middleware{}
	storeID := uuid.New()
	admin := shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin}
	staff := shared.Actor{ID: uuid.New(), Role: shared.RoleStoreStaff, StoreID: &storeID}

	require.Equal(t, http.StatusNoContent, serve(t, m.RequireAdmin(), &admin).Code)

	rec := serve(t, m.RequireAdmin(), &staff)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	require.Equal(t, http.StatusUnauthorized, serve(t, m.RequireAdmin(), nil).Code)
}

func TestRequireAnyWithoutRolesOnlyNeedsAnActor(t *testing.T) {
	m := rbac.Middleware{}
	storeID := uuid.New()
	staff := shared.Actor{ID: uuid.New(), Role: shared.RoleStoreStaff, StoreID: &storeID}

	require.Equal(t, http.StatusNoContent, serve(t, m.RequireAny(), &staff).Code)
	require.Equal(t, http.StatusNoContent, serve(t, m.RequireAny(shared.RoleAdmin, shared.RoleStoreStaff), &staff).Code)
	require.Equal(t, http.StatusUnauthorized, serve(t, m.RequireAny(), nil).Code)
}

func TestStoreScope(t *testing.T) {
	own, other := uuid.New(), uuid.New()
	staff := shared.Actor{Role: shared.RoleStoreStaff, StoreID: &own}
	require.True(t, staff.CanAccessStore(own))
	require.False(t, staff.CanAccessStore(other))
	require.False(t, shared.Actor{Role: shared.RoleStoreStaff}.CanAccessStore(own))
	require.True(t, shared.Actor{Role: shared.RoleAdmin}.CanAccessStore(other))
}

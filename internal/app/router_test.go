package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fabricflow/fabricflow/internal/app"
	"github.com/fabricflow/fabricflow/internal/auth"
	"github.com/fabricflow/fabricflow/internal/observability"
	"github.com/fabricflow/fabricflow/internal/shared"
	"github.com/fabricflow/fabricflow/internal/storage/memory"
	_ "github.com/fabricflow/fabricflow/testing"
)

const testSecret = "router-test-secret-with-enough-bytes!"

type apiClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func (c apiClient) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, app.APIPrefix+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type fixture struct {
	handler  http.Handler
	services *app.Services
	store    *memory.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	services := app.BuildServices(app.ServiceDeps{
		Backend:   app.MemoryBackend(store),
		JWTSecret: testSecret,
		JWTTTL:    time.Hour,
		Location:  time.UTC,
	})
	cfg := &app.Config{AppEnv: "test", RateLimitPerMin: 10000, AppRequestTimeout: 5 * time.Second}
	handler := app.NewRouter(app.RouterParams{
		Config:   cfg,
		Services: services,
		Metrics:  observability.NewMetrics(),
	})
	return fixture{handler: handler, services: services, store: store}
}

func (f fixture) login(t *testing.T, input auth.CreateUserInput) apiClient {
	t.Helper()
	_, err := f.services.Auth.CreateUser(context.Background(), input, shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin})
	require.NoError(t, err)
	anon := apiClient{t: t, handler: f.handler}
	rec := anon.do(http.MethodPost, "/auth/login", map[string]string{"email": input.Email, "password": input.Password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[auth.LoginResult](t, rec)
	require.NotEmpty(t, result.Token)
	return apiClient{t: t, handler: f.handler, token: result.Token}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAnonymousAndBadTokens(t *testing.T) {
	f := newFixture(t)
	anon := apiClient{t: t, handler: f.handler}

	rec := anon.do(http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	bad := apiClient{t: t, handler: f.handler, token: "not-a-jwt"}
	rec = bad.do(http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = anon.do(http.MethodGet, "/no-such-thing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStockFlowsFromFactoryToTill(t *testing.T) {
	f := newFixture(t)
	admin := f.login(t, auth.CreateUserInput{Email: "owner@example.com", Name: "Owner", Password: "s3cret-pass", Role: shared.RoleAdmin})

	rec := admin.do(http.MethodPost, "/stores", map[string]any{"name": "MG Road"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	store := decode[struct {
		ID uuid.UUID `json:"id"`
	}](t, rec)

	rec = admin.do(http.MethodPost, "/products", map[string]any{
		"name":          "Linen Shirt",
		"size":          "M",
		"cost_price":    "300",
		"sale_price":    "500",
		"opening_stock": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[struct {
		ID           uuid.UUID `json:"id"`
		SKU          string    `json:"sku"`
		FactoryStock int       `json:"factory_stock"`
	}](t, rec)
	require.Equal(t, 10, product.FactoryStock)
	require.NotEmpty(t, product.SKU)

	rec = admin.do(http.MethodPost, "/dispatches", map[string]any{
		"store_id": store.ID,
		"items":    []map[string]any{{"product_id": product.ID, "quantity": 4}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dispatched := decode[struct {
		ID             uuid.UUID `json:"id"`
		DispatchNumber string    `json:"dispatch_number"`
		Status         string    `json:"status"`
	}](t, rec)
	require.Equal(t, "PENDING", dispatched.Status)

	rec = admin.do(http.MethodGet, "/dispatches/"+dispatched.ID.String()+"/challan", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), dispatched.DispatchNumber)
	require.Contains(t, rec.Body.String(), "MG Road")

	rec = admin.do(http.MethodGet, "/dispatches/"+dispatched.ID.String()+"/challan.pdf", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	staff := f.login(t, auth.CreateUserInput{Email: "till@example.com", Name: "Till", Password: "s3cret-pass", Role: shared.RoleStoreStaff, StoreID: &store.ID})

	rec = staff.do(http.MethodGet, "/fabrics", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = staff.do(http.MethodPatch, "/dispatches/"+dispatched.ID.String()+"/status", map[string]any{"status": "RECEIVED"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sale := map[string]any{
		"store_id":     store.ID,
		"items":        []map[string]any{{"product_id": product.ID, "quantity": 1, "price": "500", "total": "500"}},
		"sub_total":    "500",
		"discount":     "0",
		"tax":          "0",
		"grand_total":  "500",
		"payment_mode": "CASH",
	}
	rec = staff.do(http.MethodPost, "/sales", sale, "Idempotency-Key", "till-1-0001")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[struct {
		ID         uuid.UUID `json:"id"`
		SaleNumber string    `json:"sale_number"`
	}](t, rec)

	rec = staff.do(http.MethodPost, "/sales", sale, "Idempotency-Key", "till-1-0001")
	require.Less(t, rec.Code, 300, rec.Body.String())
	replayed := decode[struct {
		ID uuid.UUID `json:"id"`
	}](t, rec)
	require.Equal(t, first.ID, replayed.ID)

	rec = staff.do(http.MethodGet, "/stores/"+store.ID.String()+"/inventory/"+product.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	level := decode[struct {
		QuantityAvailable int `json:"quantity_available"`
		QuantitySold      int `json:"quantity_sold"`
	}](t, rec)
	require.Equal(t, 3, level.QuantityAvailable)
	require.Equal(t, 1, level.QuantitySold)

	rec = admin.do(http.MethodGet, "/products/"+product.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 6, decode[struct {
		FactoryStock int `json:"factory_stock"`
	}](t, rec).FactoryStock)

	rec = admin.do(http.MethodGet, "/products/"+product.ID.String()+"/stock-card", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = admin.do(http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
}

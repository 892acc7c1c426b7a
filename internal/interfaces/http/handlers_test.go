package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Movimientos-api/internal/application/reservation"
	"github.com/jhoicas/Movimientos-api/internal/application/transfer"
	"github.com/jhoicas/Movimientos-api/internal/application/withdrawal"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/Movimientos-api/internal/interfaces/http"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

type apiClient struct {
	t     *testing.T
	app   *fiber.App
	store *memory.Store
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	st := memory.NewStore()
	st.PutItem(entity.Item{ID: "CON-1", Code: "CON-1", Name: "Guantes", Kind: entity.ItemKindConsumable,
		LocationID: "BOD-1", Status: entity.ItemStatusAvailable,
		AvailableQuantity: decimal.NewFromInt(5), TotalQuantity: decimal.NewFromInt(5)})
	st.PutItem(entity.Item{ID: "ACT-1", Code: "ACT-1", Name: "Taladro", Kind: entity.ItemKindAsset,
		LocationID: "SEDE-A", Status: entity.ItemStatusAvailable})

	log := zerolog.Nop()
	guard := reservation.NewGuard()
	wuc := withdrawal.NewUseCase(st, st.Withdrawals(), guard,
		withdrawal.Config{ReleaseChecklist: []string{"identity_checked"}}, log)
	tuc := transfer.NewUseCase(st, st.Transfers(), guard, log)

	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(log)})
	apphttp.Router(app, apphttp.RouterDeps{
		Withdrawals: wuc,
		Transfers:   tuc,
		Items:       st.Items(),
		JWTSecret:   testJWTSecret,
		JWTIssuer:   testIssuer,
		DueSoonDays: 3,
		Log:         log,
	})
	return &apiClient{t: t, app: app, store: st}
}

// do ejecuta la petición como el rol indicado (usuario "u-<rol>"); role vacío = sin token.
func (a *apiClient) do(method, path, role string, body any) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenFor(a.t, "u-"+role, role))
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (a *apiClient) createWithdrawal(role string, qty int) string {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/withdrawals", role, fiber.Map{
		"lines":    []fiber.Map{{"item_id": "CON-1", "quantity": qty}},
		"receiver": "Cuadrilla norte",
		"purpose":  "Mantenimiento",
	})
	require.Equal(a.t, http.StatusCreated, status, env.Message)
	var data struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &data))
	return data.ID
}

func TestWithdrawalAPI_CrearDevuelve201ConAdvertencia(t *testing.T) {
	api := newAPI(t)
	status, env := api.do(http.MethodPost, "/api/withdrawals", "maker", fiber.Map{
		"lines":    []fiber.Map{{"item_id": "CON-1", "quantity": 2}},
		"receiver": "Cuadrilla norte",
		"purpose":  "Mantenimiento",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, env.Success)
	assert.Equal(t, withdrawal.SoftCheckWarning, env.Message)

	var data struct {
		Status       string `json:"status"`
		NextApprover struct {
			Role   string `json:"role"`
			Action string `json:"action"`
		} `json:"next_approver"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "pending_verification", data.Status)
	assert.Equal(t, "verifier", data.NextApprover.Role)
}

func TestWithdrawalAPI_CodigosDeError(t *testing.T) {
	api := newAPI(t)

	status, env := api.do(http.MethodPost, "/api/withdrawals", "", fiber.Map{})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "MISSING_TOKEN", env.Code)

	status, env = api.do(http.MethodGet, "/api/withdrawals", "auditor", nil)
	assert.Equal(t, http.StatusForbidden, status, "rol desconocido")
	assert.Equal(t, "FORBIDDEN", env.Code)

	status, env = api.do(http.MethodPost, "/api/withdrawals", "maker", fiber.Map{
		"lines": []fiber.Map{{"item_id": "CON-1", "quantity": 0}}, "receiver": "r", "purpose": "p",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", env.Code)

	status, env = api.do(http.MethodPost, "/api/withdrawals", "maker", fiber.Map{
		"lines": []fiber.Map{{"item_id": "CON-1", "quantity": 9}}, "receiver": "r", "purpose": "p",
	})
	assert.Equal(t, http.StatusConflict, status, "chequeo blando al crear")
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Code)

	status, env = api.do(http.MethodGet, "/api/withdrawals/no-existe", "maker", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)

	id := api.createWithdrawal("maker", 1)
	status, env = api.do(http.MethodPost, "/api/withdrawals/"+id+"/verify", "maker", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Code)

	status, env = api.do(http.MethodPost, "/api/withdrawals/"+id+"/release", "releaser",
		fiber.Map{"checklist": fiber.Map{"identity_checked": true}})
	assert.Equal(t, http.StatusConflict, status, "despacho sin aprobación")
	assert.Equal(t, "STATE", env.Code)

	status, _ = api.do(http.MethodPost, "/api/withdrawals/"+id+"/cancel", "maker", nil)
	assert.Equal(t, http.StatusBadRequest, status, "reason requerido")
}

func TestWithdrawalAPI_DespachoConFaltanteDevuelve409ConErrores(t *testing.T) {
	api := newAPI(t)
	first := api.createWithdrawal("maker", 4)
	second := api.createWithdrawal("approver", 4)

	status, env := api.do(http.MethodPost, "/api/withdrawals/"+second+"/release", "releaser",
		fiber.Map{"checklist": fiber.Map{"identity_checked": true}, "notes": "entregado"})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, _ = api.do(http.MethodPost, "/api/withdrawals/"+first+"/verify", "verifier", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodPost, "/api/withdrawals/"+first+"/approve", "approver", fiber.Map{"notes": "ok"})
	require.Equal(t, http.StatusOK, status)

	status, env = api.do(http.MethodPost, "/api/withdrawals/"+first+"/release", "releaser",
		fiber.Map{"checklist": fiber.Map{"identity_checked": true}})
	require.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Code)

	var shortfalls []struct {
		ItemID    string          `json:"item_id"`
		Requested decimal.Decimal `json:"requested"`
		Available decimal.Decimal `json:"available"`
	}
	require.NoError(t, json.Unmarshal(env.Errors, &shortfalls))
	require.Len(t, shortfalls, 1)
	assert.Equal(t, "CON-1", shortfalls[0].ItemID)
	assert.True(t, shortfalls[0].Requested.Equal(decimal.NewFromInt(4)))
	assert.True(t, shortfalls[0].Available.Equal(decimal.NewFromInt(1)))

	it, _ := api.store.Item("CON-1")
	assert.True(t, it.AvailableQuantity.Equal(decimal.NewFromInt(1)))

	status, env = api.do(http.MethodGet, "/api/withdrawals?status=released", "maker", nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
		Page struct {
			Total int `json:"total"`
		} `json:"page"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, second, list.Items[0].ID)
	assert.Equal(t, 1, list.Page.Total)

	status, env = api.do(http.MethodGet, "/api/withdrawals?limit=1", "maker", nil)
	require.Equal(t, http.StatusOK, status)
	list.Items, list.Page.Total = nil, 0
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Items, 1)
	assert.Greater(t, list.Page.Total, 1, "total cuenta todos los lotes, no la página")
}

func TestTransferAPI_Flujo(t *testing.T) {
	api := newAPI(t)

	status, env := api.do(http.MethodPost, "/api/transfers", "maker", fiber.Map{
		"asset_id": "ACT-1", "from_location_id": "SEDE-A", "to_location_id": "SEDE-A",
		"type": "permanent", "transfer_date": "2025-01-10T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = api.do(http.MethodPost, "/api/transfers", "maker", fiber.Map{
		"asset_id": "ACT-1", "from_location_id": "SEDE-A", "to_location_id": "SEDE-B",
		"type": "temporary", "transfer_date": "2025-01-10T00:00:00Z", "expected_return": "2025-01-05T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "expected return date must be after transfer date", env.Message)

	status, env = api.do(http.MethodPost, "/api/transfers", "maker", fiber.Map{
		"asset_id": "ACT-1", "from_location_id": "SEDE-A", "to_location_id": "SEDE-B",
		"type": "temporary", "transfer_date": "2025-01-10T00:00:00Z", "expected_return": "2025-01-20T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "pending", created.Status)

	status, _ = api.do(http.MethodPost, "/api/transfers/"+created.ID+"/approve", "approver", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodPost, "/api/transfers/"+created.ID+"/complete", "releaser", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = api.do(http.MethodGet, "/api/locations/SEDE-B/items", "maker", nil)
	require.Equal(t, http.StatusOK, status)
	var items []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "ACT-1", items[0].ID)

	status, env = api.do(http.MethodPost, "/api/transfers", "approver", fiber.Map{
		"asset_id": "ACT-1", "from_location_id": "SEDE-B", "to_location_id": "SEDE-C",
		"type": "permanent", "transfer_date": "2025-01-11T00:00:00Z",
	})
	assert.Equal(t, http.StatusConflict, status, "el temporal retiene el activo hasta su devolución")
	assert.Equal(t, "STATE", env.Code)

	status, _ = api.do(http.MethodPost, "/api/transfers/"+created.ID+"/return", "releaser", fiber.Map{"notes": "ok"})
	require.Equal(t, http.StatusOK, status)

	status, env = api.do(http.MethodPost, "/api/transfers/"+created.ID+"/return", "releaser", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already returned", env.Message)

	status, env = api.do(http.MethodGet, "/api/assets/ACT-1/transfers", "verifier", nil)
	require.Equal(t, http.StatusOK, status)
	var history []struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "returned", history[0].Status)

	status, _ = api.do(http.MethodGet, "/api/transfers/overdue", "maker", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodGet, "/api/transfers/due-soon?days=-1", "maker", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

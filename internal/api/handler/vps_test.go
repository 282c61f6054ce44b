package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/fleet/internal/core"
	"github.com/edvin/fleet/internal/model"
)

func newVPSHandler(db *handlerMockDB) *VPS {
	return NewVPS(core.NewFleetService(db))
}

// --- Register ---

func TestVPSRegister_InvalidJSON(t *testing.T) {
	h := newVPSHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/vps", "{bad json")

	h.Register(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestVPSRegister_MissingRequiredFields(t *testing.T) {
	h := newVPSHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/vps", map[string]any{})

	h.Register(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestVPSRegister_BadDeploymentType(t *testing.T) {
	h := newVPSHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/vps", map[string]any{
		"name":            "shared-01",
		"ip_address":      "192.0.2.10",
		"deployment_type": "colo",
		"max_tenants":     20,
	})

	h.Register(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVPSRegister_InvalidIP(t *testing.T) {
	h := newVPSHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/vps", map[string]any{
		"name":            "shared-01",
		"ip_address":      "not-an-ip",
		"deployment_type": "shared",
		"max_tenants":     20,
	})

	h.Register(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid ip address")
}

func TestVPSRegister_Valid(t *testing.T) {
	db := &handlerMockDB{}
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	h := newVPSHandler(db)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/vps", map[string]any{
		"name":            "shared-01",
		"ip_address":      "192.0.2.10",
		"location":        "fsn1",
		"deployment_type": "shared",
		"max_tenants":     20,
		"cpu_cores":       8,
		"memory_mb":       16384,
		"disk_gb":         320,
	})

	h.Register(rec, r)

	require.Equal(t, http.StatusCreated, rec.Code)
	var vps model.VPS
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vps))
	assert.NotEmpty(t, vps.ID)
	assert.Equal(t, model.StatusActive, vps.Status)
	assert.Equal(t, 20, vps.MaxTenants)
	db.AssertExpectations(t)
}

func TestVPSRegister_DedicatedForcedSingleTenant(t *testing.T) {
	db := &handlerMockDB{}
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	h := newVPSHandler(db)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/vps", map[string]any{
		"name":            "dedicated-01",
		"ip_address":      "192.0.2.11",
		"deployment_type": "dedicated",
		"max_tenants":     50,
	})

	h.Register(rec, r)

	require.Equal(t, http.StatusCreated, rec.Code)
	var vps model.VPS
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vps))
	assert.Equal(t, 1, vps.MaxTenants)
}

// --- Get ---

func TestVPSGet_EmptyID(t *testing.T) {
	h := newVPSHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/vps/", nil)
	r = withChiURLParam(r, "id", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

// --- Stats ---

func TestVPSStats(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			*(dest[0].(*int)) = 4
			*(dest[1].(*int)) = 3
			*(dest[2].(*int)) = 1
			*(dest[3].(*int)) = 27
			return nil
		}})
	h := newVPSHandler(db)

	rec := httptest.NewRecorder()
	h.Stats(rec, newRequest(http.MethodGet, "/vps/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats model.FleetStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 27, stats.TotalTenants)
}

// --- Telemetry ---

func TestVPSTelemetry_OutOfRange(t *testing.T) {
	h := newVPSHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/vps/"+validID+"/telemetry", map[string]any{
		"cpu_usage_percent":    140.0,
		"memory_usage_percent": 50.0,
	})
	r = withChiURLParam(r, "id", validID)

	h.Telemetry(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVPSTelemetry_Valid(t *testing.T) {
	db := &handlerMockDB{}
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)
	h := newVPSHandler(db)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/vps/"+validID+"/telemetry", map[string]any{
		"cpu_usage_percent":    42.5,
		"memory_usage_percent": 61.0,
	})
	r = withChiURLParam(r, "id", validID)

	h.Telemetry(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	db.AssertExpectations(t)
}

// --- List ---

func TestVPSList(t *testing.T) {
	now := time.Now()
	rowFunc := func(id string) func(dest ...any) error {
		return func(dest ...any) error {
			*(dest[0].(*string)) = id
			*(dest[1].(*string)) = "vps-" + id
			*(dest[2].(*string)) = "192.0.2.10"
			*(dest[3].(*string)) = "fsn1"
			*(dest[4].(*string)) = model.DeploymentShared
			*(dest[5].(*string)) = model.StatusActive
			*(dest[6].(*int)) = 20
			*(dest[7].(*int)) = 3
			*(dest[8].(*int)) = 4
			*(dest[9].(*int)) = 8192
			*(dest[10].(*int)) = 160
			*(dest[11].(*float64)) = 12.0
			*(dest[12].(*float64)) = 30.0
			*(dest[13].(**string)) = nil
			*(dest[14].(*time.Time)) = now
			*(dest[15].(*time.Time)) = now
			return nil
		}
	}
	db := &handlerMockDB{}
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRows{scanFuncs: []func(dest ...any) error{rowFunc("a"), rowFunc("b")}}, nil)
	h := newVPSHandler(db)

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/vps", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []model.VPS `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Items, 2)
}

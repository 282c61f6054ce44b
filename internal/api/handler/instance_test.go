package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/fleet/internal/config"
	"github.com/edvin/fleet/internal/core"
	"github.com/edvin/fleet/internal/model"
)

func newInstanceHandler(db *handlerMockDB) *Instance {
	fleet := core.NewFleetService(db)
	tenants := core.NewTenantService(db)
	deployments := core.NewDeploymentService(db)
	provision := core.NewProvisionService(fleet, tenants, deployments, core.NewAllocator(fleet), nil, &config.Config{})
	return NewInstance(provision, deployments)
}

func sqlWith(fragment string) interface{} {
	return mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, fragment)
	})
}

func validInstanceBody() map[string]any {
	return map[string]any{
		"organization_name": "Acme Corp",
		"slug":              "acme",
		"tier":              "starter",
		"deployment_model":  "shared",
		"admin_email":       "admin@acme.example",
		"admin_password":    "correct-horse-battery",
	}
}

// --- Create ---

func TestInstanceCreate_InvalidJSON(t *testing.T) {
	h := newInstanceHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()

	h.Create(rec, newRequestRaw(http.MethodPost, "/instances", "{bad json"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestInstanceCreate_BadSlug(t *testing.T) {
	h := newInstanceHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	body := validInstanceBody()
	body["slug"] = "Not A Slug!"

	h.Create(rec, newRequest(http.MethodPost, "/instances", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeErrorResponse(rec)
	assert.Contains(t, resp["error"], "validation error")
}

func TestInstanceCreate_BadTier(t *testing.T) {
	h := newInstanceHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	body := validInstanceBody()
	body["tier"] = "platinum"

	h.Create(rec, newRequest(http.MethodPost, "/instances", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInstanceCreate_ShortPassword(t *testing.T) {
	h := newInstanceHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	body := validInstanceBody()
	body["admin_password"] = "short"

	h.Create(rec, newRequest(http.MethodPost, "/instances", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInstanceCreate_SharedPlacement(t *testing.T) {
	db := &handlerMockDB{}
	now := time.Now()
	vpsRow := func(dest ...any) error {
		*(dest[0].(*string)) = "vps-1"
		*(dest[1].(*string)) = "shared-01"
		*(dest[2].(*string)) = "192.0.2.10"
		*(dest[3].(*string)) = "fsn1"
		*(dest[4].(*string)) = model.DeploymentShared
		*(dest[5].(*string)) = model.StatusActive
		*(dest[6].(*int)) = 20
		*(dest[7].(*int)) = 3
		*(dest[8].(*int)) = 4
		*(dest[9].(*int)) = 8192
		*(dest[10].(*int)) = 160
		*(dest[11].(*float64)) = 0
		*(dest[12].(*float64)) = 0
		*(dest[13].(**string)) = nil
		*(dest[14].(*time.Time)) = now
		*(dest[15].(*time.Time)) = now
		return nil
	}

	db.On("QueryRow", mock.Anything, sqlWith("FROM tenants"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }})
	db.On("Query", mock.Anything, sqlWith("FROM vps"), mock.Anything).
		Return(&handlerMockRows{scanFuncs: []func(dest ...any) error{vpsRow}}, nil)
	db.On("Exec", mock.Anything, sqlWith("current_tenants + 1"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)
	db.On("Exec", mock.Anything, sqlWith("INSERT INTO tenants"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	db.On("QueryRow", mock.Anything, sqlWith("FROM vps"), mock.Anything).
		Return(&handlerMockRow{scanFunc: vpsRow})

	h := newInstanceHandler(db)
	rec := httptest.NewRecorder()

	h.Create(rec, newRequest(http.MethodPost, "/instances", validInstanceBody()))

	require.Equal(t, http.StatusCreated, rec.Code)
	var result core.InstanceResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.VPS)
	assert.Equal(t, "vps-1", result.VPS.ID)
	assert.Nil(t, result.Deployment)
}

func TestInstanceCreate_SlugConflict(t *testing.T) {
	db := &handlerMockDB{}
	now := time.Now()
	db.On("QueryRow", mock.Anything, sqlWith("FROM tenants"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			*(dest[0].(*string)) = "t-1"
			*(dest[1].(*string)) = "Acme Corp"
			*(dest[2].(*string)) = "acme"
			*(dest[3].(*string)) = model.TierStarter
			*(dest[4].(*string)) = model.DeploymentShared
			*(dest[5].(**string)) = nil
			*(dest[6].(*string)) = "admin@acme.example"
			*(dest[7].(*string)) = "$2a$10$hash"
			*(dest[8].(*string)) = model.StatusActive
			*(dest[9].(*time.Time)) = now
			*(dest[10].(*time.Time)) = now
			return nil
		}})

	h := newInstanceHandler(db)
	rec := httptest.NewRecorder()

	h.Create(rec, newRequest(http.MethodPost, "/instances", validInstanceBody()))

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "already taken")
}

func TestInstanceCreate_NoCapacity(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, sqlWith("FROM tenants"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }})
	db.On("Query", mock.Anything, sqlWith("FROM vps"), mock.Anything).
		Return(&handlerMockRows{}, nil)

	h := newInstanceHandler(db)
	rec := httptest.NewRecorder()

	h.Create(rec, newRequest(http.MethodPost, "/instances", validInstanceBody()))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

// --- Status ---

func TestInstanceStatus_EmptyID(t *testing.T) {
	h := newInstanceHandler(&handlerMockDB{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/instances//status", nil)
	r = withChiURLParam(r, "deploymentID", "")

	h.Status(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestInstanceStatus_NotFound(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }})

	h := newInstanceHandler(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/instances/"+validID+"/status", nil)
	r = withChiURLParam(r, "deploymentID", validID)

	h.Status(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInstanceStatus_WithLogs(t *testing.T) {
	db := &handlerMockDB{}
	now := time.Now()
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			*(dest[0].(*string)) = validID
			*(dest[1].(*string)) = "t-1"
			*(dest[2].(*string)) = model.StatusProvisioning
			*(dest[3].(*string)) = "Requesting dedicated server from provider"
			*(dest[4].(**string)) = nil
			*(dest[5].(**string)) = nil
			*(dest[6].(**string)) = nil
			*(dest[7].(*time.Time)) = now
			*(dest[8].(*time.Time)) = now
			return nil
		}})
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&handlerMockRows{scanFuncs: []func(dest ...any) error{
			func(dest ...any) error {
				*(dest[0].(*time.Time)) = now
				*(dest[1].(*string)) = "Provisioning request accepted"
				return nil
			},
		}}, nil)

	h := newInstanceHandler(db)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/instances/"+validID+"/status", nil)
	r = withChiURLParam(r, "deploymentID", validID)

	h.Status(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ID     string                     `json:"id"`
		Status string                     `json:"status"`
		Logs   []model.DeploymentLogEntry `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.StatusProvisioning, body.Status)
	require.Len(t, body.Logs, 1)
	assert.Equal(t, "Provisioning request accepted", body.Logs[0].Message)
}

package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/fleet/internal/api/request"
	"github.com/edvin/fleet/internal/api/response"
	"github.com/edvin/fleet/internal/core"
	"github.com/edvin/fleet/internal/model"
	"github.com/edvin/fleet/internal/platform"
)

type VPS struct {
	svc *core.FleetService
}

func NewVPS(svc *core.FleetService) *VPS {
	return &VPS{svc: svc}
}

func (h *VPS) List(w http.ResponseWriter, r *http.Request) {
	fleet, err := h.svc.List(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteList(w, http.StatusOK, fleet)
}

// Register adds a machine to the fleet registry. Dedicated machines are
// single-tenant regardless of the requested max_tenants.
func (h *VPS) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterVPS
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	vps := &model.VPS{
		ID:             platform.NewID(),
		Name:           req.Name,
		IPAddress:      req.IPAddress,
		Location:       req.Location,
		DeploymentType: req.DeploymentType,
		Status:         model.StatusActive,
		MaxTenants:     req.MaxTenants,
		CPUCores:       req.CPUCores,
		MemoryMB:       req.MemoryMB,
		DiskGB:         req.DiskGB,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if vps.DeploymentType == model.DeploymentDedicated {
		vps.MaxTenants = 1
	}

	if err := h.svc.Register(r.Context(), vps); err != nil {
		if errors.Is(err, core.ErrValidation) {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, vps)
}

func (h *VPS) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	vps, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			response.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, vps)
}

// Available lists active shared machines with spare capacity, least loaded
// first.
func (h *VPS) Available(w http.ResponseWriter, r *http.Request) {
	fleet, err := h.svc.ListAvailableShared(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteList(w, http.StatusOK, fleet)
}

func (h *VPS) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}

// Telemetry ingests a usage report from a fleet machine.
func (h *VPS) Telemetry(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.ReportTelemetry
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.UpdateTelemetry(r.Context(), id, req.CPUUsagePercent, req.MemoryUsagePercent); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

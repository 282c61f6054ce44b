package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/fleet/internal/api/request"
	"github.com/edvin/fleet/internal/api/response"
	"github.com/edvin/fleet/internal/core"
	"github.com/edvin/fleet/internal/model"
)

type Instance struct {
	provision   *core.ProvisionService
	deployments *core.DeploymentService
}

func NewInstance(provision *core.ProvisionService, deployments *core.DeploymentService) *Instance {
	return &Instance{provision: provision, deployments: deployments}
}

// Create provisions a tenant instance. Shared placements return 201 with the
// hosting VPS; dedicated placements return 202 with a deployment to poll.
func (h *Instance) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateInstance
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.provision.CreateInstance(r.Context(), core.CreateInstanceParams{
		OrganizationName: req.OrganizationName,
		Slug:             req.Slug,
		Tier:             req.Tier,
		DeploymentModel:  req.DeploymentModel,
		VPSID:            req.VPSID,
		AdminEmail:       req.AdminEmail,
		AdminPassword:    req.AdminPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrValidation):
			response.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, core.ErrConflict):
			response.WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, core.ErrNoCapacity), errors.Is(err, core.ErrPlacement):
			response.WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, core.ErrNotFound):
			response.WriteError(w, http.StatusNotFound, err.Error())
		default:
			response.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	status := http.StatusCreated
	if result.Deployment != nil {
		status = http.StatusAccepted
	}
	response.WriteJSON(w, status, result)
}

// List returns all deployments, newest first.
func (h *Instance) List(w http.ResponseWriter, r *http.Request) {
	deployments, err := h.deployments.List(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteList(w, http.StatusOK, deployments)
}

type deploymentStatusResponse struct {
	*model.Deployment
	Logs []model.DeploymentLogEntry `json:"logs"`
}

// Status reports a deployment's current state together with its progress log.
func (h *Instance) Status(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "deploymentID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	deployment, err := h.deployments.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			response.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logs, err := h.deployments.Logs(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, deploymentStatusResponse{Deployment: deployment, Logs: logs})
}

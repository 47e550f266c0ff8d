// handlers_services.go - Monitored service CRUD handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/minerva-brain/backend/internal/models"
	"github.com/minerva-brain/backend/internal/store"
)

// ServiceHandler manages the monitored service registry
type ServiceHandler struct {
	store store.Store
}

// NewServiceHandler creates a new service handler
func NewServiceHandler(st store.Store) *ServiceHandler {
	return &ServiceHandler{store: st}
}

type createServiceRequest struct {
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	Kind             string `json:"kind"`
	Target           string `json:"target"`
	CheckIntervalSec *int   `json:"checkIntervalSec"`
	TimeoutSec       *int   `json:"timeoutSec"`
	Enabled          *bool  `json:"enabled"`
	AlertOnDown      *bool  `json:"alertOnDown"`
	AlertOnRecovery  *bool  `json:"alertOnRecovery"`
}

type updateServiceRequest struct {
	Name             *string `json:"name"`
	Slug             *string `json:"slug"`
	Kind             *string `json:"kind"`
	Target           *string `json:"target"`
	CheckIntervalSec *int    `json:"checkIntervalSec"`
	TimeoutSec       *int    `json:"timeoutSec"`
	Enabled          *bool   `json:"enabled"`
	AlertOnDown      *bool   `json:"alertOnDown"`
	AlertOnRecovery  *bool   `json:"alertOnRecovery"`
}

// serviceOut joins the service with its last observed status
type serviceOut struct {
	*models.Service
	Status *models.ServiceStatus `json:"status,omitempty"`
}

func (h *ServiceHandler) withStatus(svc *models.Service) serviceOut {
	out := serviceOut{Service: svc}
	if st, err := h.store.GetServiceStatus(svc.ID); err == nil {
		out.Status = st
	}
	return out
}

// HandleListServices returns every service with its latest status
func (h *ServiceHandler) HandleListServices(c echo.Context) error {
	services, err := h.store.ListServices()
	if err != nil {
		return NewInternalError("failed to list services", err)
	}

	out := make([]serviceOut, 0, len(services))
	for _, svc := range services {
		out = append(out, h.withStatus(svc))
	}
	return c.JSON(http.StatusOK, out)
}

// HandleGetService returns one service by id
func (h *ServiceHandler) HandleGetService(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid service id", err)
	}

	svc, err := h.store.GetService(id)
	if err != nil {
		return storeError(err, "service", c.Param("id"))
	}
	return c.JSON(http.StatusOK, h.withStatus(svc))
}

// HandleCreateService registers a service; slug must be unique
func (h *ServiceHandler) HandleCreateService(c echo.Context) error {
	var req createServiceRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}
	if req.Slug == "" {
		return NewValidationError("slug")
	}
	if req.Target == "" {
		return NewValidationError("target")
	}

	kind, err := models.ValidateServiceKind(req.Kind)
	if err != nil {
		return NewBadRequestError(err.Error(), nil)
	}

	svc := &models.Service{
		Name:             req.Name,
		Slug:             req.Slug,
		Kind:             kind,
		Target:           req.Target,
		CheckIntervalSec: 60,
		TimeoutSec:       5,
		Enabled:          true,
		AlertOnDown:      true,
		AlertOnRecovery:  true,
	}
	if req.CheckIntervalSec != nil {
		svc.CheckIntervalSec = *req.CheckIntervalSec
	}
	if req.TimeoutSec != nil {
		svc.TimeoutSec = *req.TimeoutSec
	}
	if req.Enabled != nil {
		svc.Enabled = *req.Enabled
	}
	if req.AlertOnDown != nil {
		svc.AlertOnDown = *req.AlertOnDown
	}
	if req.AlertOnRecovery != nil {
		svc.AlertOnRecovery = *req.AlertOnRecovery
	}

	if err := h.store.CreateService(svc); err != nil {
		return storeError(err, "service", req.Slug)
	}
	return c.JSON(http.StatusCreated, h.withStatus(svc))
}

// HandleUpdateService patches the provided fields only
func (h *ServiceHandler) HandleUpdateService(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid service id", err)
	}

	var req updateServiceRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	svc, err := h.store.GetService(id)
	if err != nil {
		return storeError(err, "service", c.Param("id"))
	}

	if req.Name != nil {
		svc.Name = *req.Name
	}
	if req.Slug != nil {
		svc.Slug = *req.Slug
	}
	if req.Kind != nil {
		kind, err := models.ValidateServiceKind(*req.Kind)
		if err != nil {
			return NewBadRequestError(err.Error(), nil)
		}
		svc.Kind = kind
	}
	if req.Target != nil {
		svc.Target = *req.Target
	}
	if req.CheckIntervalSec != nil {
		svc.CheckIntervalSec = *req.CheckIntervalSec
	}
	if req.TimeoutSec != nil {
		svc.TimeoutSec = *req.TimeoutSec
	}
	if req.Enabled != nil {
		svc.Enabled = *req.Enabled
	}
	if req.AlertOnDown != nil {
		svc.AlertOnDown = *req.AlertOnDown
	}
	if req.AlertOnRecovery != nil {
		svc.AlertOnRecovery = *req.AlertOnRecovery
	}

	if err := h.store.UpdateService(svc); err != nil {
		return storeError(err, "service", c.Param("id"))
	}
	return c.JSON(http.StatusOK, h.withStatus(svc))
}

// HandleDeleteService removes a service and its status row
func (h *ServiceHandler) HandleDeleteService(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return NewBadRequestError("invalid service id", err)
	}

	if err := h.store.DeleteService(id); err != nil {
		return storeError(err, "service", c.Param("id"))
	}
	return c.NoContent(http.StatusNoContent)
}

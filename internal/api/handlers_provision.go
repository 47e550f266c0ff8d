// handlers_provision.go - Device provisioning handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/minerva-brain/backend/internal/config"
	"github.com/minerva-brain/backend/internal/provision"
)

// ProvisionHandler renders the device's build-time configuration. The
// Wi-Fi credential is redacted unless ?secrets=1 is passed.
type ProvisionHandler struct {
	device config.DeviceConfig
}

// NewProvisionHandler creates a new provisioning handler
func NewProvisionHandler(device config.DeviceConfig) *ProvisionHandler {
	return &ProvisionHandler{device: device}
}

// HandleDescribe returns the device settings as JSON
func (h *ProvisionHandler) HandleDescribe(c echo.Context) error {
	secrets := c.QueryParam("secrets") == "1"
	return c.JSON(http.StatusOK, provision.Describe(h.device, secrets))
}

// HandleConfigHeader returns the rendered config.h the firmware builds
// against, ready to drop into the device source tree.
func (h *ProvisionHandler) HandleConfigHeader(c echo.Context) error {
	secrets := c.QueryParam("secrets") == "1"
	header := provision.RenderHeader(h.device, secrets)

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="config.h"`)
	return c.Blob(http.StatusOK, "text/x-chdr", []byte(header))
}

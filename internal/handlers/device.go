package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/go-homelink/homelink/internal/services"
)

// DeviceHandler serves device discovery for a linked account.
type DeviceHandler struct {
	deviceService *services.DeviceService
}

func NewDeviceHandler(ds *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: ds}
}

// DeviceDetails handles GET /get_device_details. Requires a bearer access
// token; returns the flattened device listing of the account behind it.
func (h *DeviceHandler) DeviceDetails(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	accessToken := strings.TrimPrefix(authHeader, "Bearer ")

	listing, err := h.deviceService.ListDevices(c.Request.Context(), accessToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		case errors.Is(err, services.ErrNoUserData):
			c.JSON(http.StatusNotFound, gin.H{"error": "No user data found"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service temporarily unavailable",
			})
		}
		return
	}

	c.JSON(http.StatusOK, listing)
}

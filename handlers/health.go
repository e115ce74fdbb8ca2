package handlers

import (
	"net/http"

	"workshophub/utils"

	"github.com/gin-gonic/gin"
)

// Health reports the last health snapshot. It answers 503 while the store is down.
func Health(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Store {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

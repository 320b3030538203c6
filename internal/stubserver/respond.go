package stubserver

import (
	"time"

	"github.com/gin-gonic/gin"
)

// respondData writes the success envelope with response metadata
func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
		"meta": gin.H{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": c.GetString(RequestIDKey),
		},
	})
}

// respondError writes the failure envelope
func respondError(c *gin.Context, status int, message, code string) {
	body := gin.H{"message": message}
	if code != "" {
		body["code"] = code
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

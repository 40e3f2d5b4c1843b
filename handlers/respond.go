package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Every JSON response carries a success flag so clients can branch
// without inspecting status codes.

func respondOK(c *gin.Context, fields gin.H) {
	respondSuccess(c, http.StatusOK, fields)
}

func respondSuccess(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func respondErrorDetails(c *gin.Context, status int, message string, details gin.H) {
	c.JSON(status, gin.H{"success": false, "error": message, "details": details})
}

// respondProcessing acknowledges async work with the task handle the
// client should poll.
func respondProcessing(c *gin.Context, taskID, message string) {
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"status":  "processing",
		"task_id": taskID,
		"message": message,
	})
}

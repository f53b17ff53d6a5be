package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope is the response shape of the operational endpoints. There are
// only two of them, so the envelope stays minimal: a status string, the
// payload on success, the reason on failure.
type envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func Ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Status: "ok", Data: data})
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Status: "error", Error: message})
}

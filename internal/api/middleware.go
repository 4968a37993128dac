package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/example/helmdesk/backend/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// RequestID propaga (ou gera) o identificador da requisição.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// Observe grava a duração de cada requisição no Recorder injetado.
func Observe(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		rec.RequestObserved(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

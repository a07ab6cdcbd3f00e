package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/resume-extractor/internal/admission"
	"github.com/cuongbtq/resume-extractor/internal/api/dto"
	"github.com/cuongbtq/resume-extractor/internal/api/handler"
	"github.com/cuongbtq/resume-extractor/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id back to the caller
const RequestIDHeader = "X-Request-ID"

// LoggerMiddleware logs HTTP requests with slog
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(RequestIDHeader, requestID)

		// Process request
		c.Next()

		// Calculate latency
		latency := time.Since(start)

		// Log request details
		logger.Info("HTTP Request",
			slog.String("request_id", requestID),
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", latency),
			slog.Int("body_size", c.Writer.Size()),
			slog.String("identity", c.GetString(handler.IdentityKey)),
		)

		// Log errors if any
		if len(c.Errors) > 0 {
			for _, e := range c.Errors {
				logger.Error("Request error",
					slog.String("request_id", requestID),
					slog.String("error", e.Error()),
					slog.Uint64("type", uint64(e.Type)),
				)
			}
		}
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware(credentialHeader string) gin.HandlerFunc {
	allowHeaders := "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With"
	if credentialHeader != "" {
		allowHeaders += ", " + credentialHeader
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// AdmissionMiddleware runs the admission gate before a submission reaches its handler
func AdmissionMiddleware(gate handler.Admitter, credentialHeader string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := admission.ClientIP(c.GetHeader("X-Forwarded-For"), c.Request.RemoteAddr)

		identity, err := gate.Admit(c.GetHeader(credentialHeader), clientIP)
		if err != nil {
			logger.Info("Request rejected by admission gate",
				slog.String("client_ip", clientIP),
				slog.String("reason", err.Error()),
			)

			var quotaErr *domain.QuotaError
			switch {
			case errors.As(err, &quotaErr):
				c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
					Error: fmt.Sprintf("Daily limit of %d resumes reached. Please try again tomorrow.", quotaErr.Limit),
				})
			case errors.Is(err, domain.ErrTooBusy):
				c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
					Error: "Server is busy. Please try again in a few seconds.",
				})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
					Error: "Failed to admit request",
				})
			}
			return
		}

		c.Set(handler.IdentityKey, identity)
		c.Next()
	}
}

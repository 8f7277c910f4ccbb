package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"paylink-backend/internal/metrics"
	"paylink-backend/internal/signing"
)

// SignatureMiddleware verifies inbound service-to-service requests
// signed by the configured counterparty.
type SignatureMiddleware struct {
	signer   *signing.Signer
	callerID string
	maxSkew  time.Duration
	logger   *logrus.Logger
}

// NewSignatureMiddleware creates a new SignatureMiddleware
func NewSignatureMiddleware(signer *signing.Signer, callerID string, maxSkew time.Duration, logger *logrus.Logger) *SignatureMiddleware {
	return &SignatureMiddleware{
		signer:   signer,
		callerID: callerID,
		maxSkew:  maxSkew,
		logger:   logger,
	}
}

// RequireSignature rejects requests whose signature headers do not
// verify against the counterparty identity. The body is read in full
// for MAC computation and restored for the handler.
func (m *SignatureMiddleware) RequireSignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader(signing.HeaderSignature)
		timestamp := c.GetHeader(signing.HeaderTimestamp)
		if signature == "" || timestamp == "" {
			m.reject(c, "missing signature headers")
			return
		}

		var body []byte
		if c.Request.Body != nil && c.Request.ContentLength != 0 {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				m.reject(c, "unreadable body")
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path += "?" + c.Request.URL.RawQuery
		}
		err := m.signer.Verify(c.Request.Context(), m.callerID, c.Request.Method, path, body, timestamp, signature, m.maxSkew)
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"error":  err.Error(),
			}).Warn("Rejected request with invalid signature")
			m.reject(c, "signature verification failed")
			return
		}
		c.Next()
	}
}

func (m *SignatureMiddleware) reject(c *gin.Context, reason string) {
	metrics.SignatureVerificationFailedTotal.Inc()
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": reason,
		"code":  "INVALID_SIGNATURE",
	})
	c.Abort()
}

package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/proxylogs/proxylogs/internal/proxy"
	"github.com/proxylogs/proxylogs/internal/repository"
)

// LogSaver persists one exchange record.
type LogSaver interface {
	SaveLog(ctx context.Context, entry repository.LogEntry) (uint, error)
}

// ProxyHandler glues the inbound request to the Forwarder and the log
// writer. The client response is always written before the log write is
// scheduled.
type ProxyHandler struct {
	forwarder   *proxy.Forwarder
	logs        LogSaver
	maxBodySize int64
	saveTimeout time.Duration
}

func NewProxyHandler(forwarder *proxy.Forwarder, logs LogSaver, maxBodySize int64) *ProxyHandler {
	return &ProxyHandler{
		forwarder:   forwarder,
		logs:        logs,
		maxBodySize: maxBodySize,
		saveTimeout: 10 * time.Second,
	}
}

func (h *ProxyHandler) Handle(c *gin.Context) {
	requestID := c.GetString("request_id")
	if requestID == "" {
		requestID = repository.GenerateRequestID()
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Request Entity Too Large",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "failed to read request body",
		})
		return
	}

	// The forward must run to its own timeout even if the client goes
	// away; an abandoned in-flight exchange is still logged.
	result := h.forwarder.Forward(
		context.WithoutCancel(c.Request.Context()),
		c.Request.Method,
		c.Request.URL.Path,
		c.Request.Header,
		c.Request.URL.Query(),
		body,
	)

	// Response first. Log persistence must never delay the client.
	if result.Response != nil {
		relayResponse(c, result.Response)
	} else {
		c.String(http.StatusInternalServerError, result.Err.Message)
	}

	entry := repository.LogEntry{
		RequestID:      requestID,
		RequestMethod:  c.Request.Method,
		RequestURL:     c.Request.URL.RequestURI(),
		RequestPath:    c.Request.URL.Path,
		RequestQuery:   c.Request.URL.Query(),
		RequestHeaders: c.Request.Header,
		RequestBody:    body,
		Duration:       result.Duration,
		Success:        result.Success,
		IPAddress:      c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
	}
	if result.Response != nil {
		status := result.Response.Status
		entry.ResponseStatus = &status
		entry.ResponseHeaders = result.Response.Headers
		entry.ResponseBody = result.Response.Body
	}
	if result.Err != nil {
		entry.ErrorMessage = result.Err.Message
	}

	go h.persist(requestID, entry)
}

// persist runs detached from the request scope; its failure is only
// logged, never retried and never surfaced to the client.
func (h *ProxyHandler) persist(requestID string, entry repository.LogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), h.saveTimeout)
	defer cancel()

	if _, err := h.logs.SaveLog(ctx, entry); err != nil {
		log.Printf("[%s] failed to save request log: %v", requestID, err)
	}
}

func relayResponse(c *gin.Context, resp *proxy.UpstreamResponse) {
	// The upstream owns every header it sets. Middleware may have already
	// written some of them (CORS in particular), and appending on top
	// would emit duplicate values that browsers reject.
	header := c.Writer.Header()
	for key, values := range resp.Headers {
		header.Del(key)
		for _, value := range values {
			header.Add(key, value)
		}
	}

	c.Data(resp.Status, resp.Headers.Get("Content-Type"), resp.Body)
}

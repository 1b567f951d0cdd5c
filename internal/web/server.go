// Package web provides an HTTP status server for the thermostat daemon.
package web

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sweeney/thermostat/internal/history"
	"github.com/sweeney/thermostat/internal/logger"
	"github.com/sweeney/thermostat/internal/status"
)

// DefaultHistoryLimit is the number of entries /history.json returns when
// no limit is given.
const DefaultHistoryLimit = 60

// maxHistoryLimit caps a single /history.json response.
const maxHistoryLimit = 3600

// SetpointRequester accepts setpoint adjustment requests.
type SetpointRequester interface {
	RequestIncrease()
	RequestDecrease()
}

// HistorySource supplies stored records, newest first.
type HistorySource interface {
	Recent(n int) ([]history.Entry, error)
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	tracker    *status.Tracker
	requests   SetpointRequester
	history    HistorySource
}

// New creates a Server that reads state from the given tracker. requests
// and hist may be nil, in which case their routes answer 503.
func New(addr string, tracker *status.Tracker, requests SetpointRequester, hist HistorySource) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger)
	router.SetHTMLTemplate(indexTmpl)

	s := &Server{
		router:   router,
		tracker:  tracker,
		requests: requests,
		history:  hist,
	}

	router.GET("/", s.handleIndex)
	router.GET("/index.html", s.handleIndex)
	router.GET("/index.json", s.handleJSON)
	router.GET("/history.json", s.handleHistory)

	sp := router.Group("/setpoint")
	{
		sp.POST("/increase", s.handleSetpoint(func(r SetpointRequester) { r.RequestIncrease() }))
		sp.POST("/decrease", s.handleSetpoint(func(r SetpointRequester) { r.RequestDecrease() }))
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
}

func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	logger.Debug("http: %s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

// Handler returns the HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index", newPageData(s.tracker.Snapshot()))
}

func (s *Server) handleJSON(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history disabled"})
		return
	}

	limit := DefaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := s.history.Recent(limit)
	if err != nil {
		logger.Error("http: history query: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"records": entries})
}

// handleSetpoint raises a request flag. The change is applied by the
// setpoint task on its next firing, so the response is 202.
func (s *Server) handleSetpoint(raise func(SetpointRequester)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.requests == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "setpoint control disabled"})
			return
		}
		raise(s.requests)
		c.JSON(http.StatusAccepted, gin.H{"accepted": true})
	}
}

// Package api exposes the calculator over HTTP: a JSON view of the session,
// endpoints for the user's actions and a WebSocket stream of view updates.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"cryptocalc/config"
	"cryptocalc/internal/currency"
	"cryptocalc/internal/input"
	"cryptocalc/internal/metrics"
	"cryptocalc/internal/state"
	"cryptocalc/logger"
)

// Refresher is the part of the refresh orchestrator the API drives.
type Refresher interface {
	Retry() (uint64, error)
	SelectCurrency(code string) error
}

// Server hosts the calculator API.
type Server struct {
	cfg           config.APIConfig
	prometheus    bool
	log           *logger.Log
	store         *state.Store
	refresher     Refresher
	metricStore   *metricStore
	logStore      *logStore
	metricHandler metrics.MetricHandlerID
	upgrader      websocket.Upgrader
	httpServer    *http.Server
}

// NewServer prepares the server and starts capturing logs and metric events.
func NewServer(cfg *config.Config, log *logger.Log, store *state.Store, refresher Refresher) *Server {
	apiCfg := cfg.API
	apiCfg.Address = normalizeAddress(apiCfg.Address)

	ms := newMetricStore(apiCfg.LogBuffer)
	ls := newLogStore(apiCfg.LogBuffer)
	log.AddHook(ls)

	s := &Server{
		cfg:           apiCfg,
		prometheus:    cfg.Metrics.Prometheus,
		log:           log,
		store:         store,
		refresher:     refresher,
		metricStore:   ms,
		logStore:      ls,
		metricHandler: metrics.RegisterMetricHandler(ms.handle),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.allowOrigin,
	}
	return s
}

// Run serves until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup()

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.WithComponent("api").WithFields(logger.Fields{"address": s.cfg.Address}).Info("api server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	metrics.UnregisterMetricHandler(s.metricHandler)
	s.logStore.close()
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	if config.IsProductionLike(config.AppEnvironment()) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	if mw := s.corsMiddleware(); mw != nil {
		router.Use(mw)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.prometheus {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := router.Group("/api")
	api.GET("/currencies", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"currencies": currency.All(), "default": currency.Default().Code})
	})
	api.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, NewView(s.store.State()))
	})
	api.PUT("/input", s.handleInput)
	api.PUT("/amount", s.handleAmount)
	api.PUT("/currency", s.handleCurrency)
	api.POST("/retry", s.handleRetry)
	api.GET("/logs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"logs": s.logStore.snapshot()})
	})
	api.GET("/metrics", func(c *gin.Context) {
		snapshot := s.metricStore.snapshot()
		payload := make([]gin.H, 0, len(snapshot))
		for _, m := range snapshot {
			payload = append(payload, gin.H{
				"timestamp": m.Timestamp.Format(time.RFC3339Nano),
				"component": m.Component,
				"name":      m.Name,
				"value":     m.Value,
				"type":      m.Type,
				"fields":    m.Fields,
			})
		}
		c.JSON(http.StatusOK, gin.H{"metrics": payload})
	})

	router.GET("/ws", s.handleWS)
	return router, nil
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	if len(s.cfg.CORSOrigins) == 0 {
		return nil
	}
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if s.allowsAnyOrigin() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.CORSOrigins
	}
	return cors.New(cfg)
}

func (s *Server) allowsAnyOrigin() bool {
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// allowOrigin applies the CORS origin list to WebSocket upgrades. Requests
// without an Origin header are not from a browser and are allowed.
func (s *Server) allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.allowsAnyOrigin() {
		return true
	}
	for _, o := range s.cfg.CORSOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

type inputRequest struct {
	Raw *string `json:"raw"`
}

func (s *Server) handleInput(c *gin.Context) {
	var req inputRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Raw == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"raw\": string}"})
		return
	}
	if _, err := s.store.State().Input.Type(*req.Raw); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	st := s.store.Dispatch(state.InputTyped{Raw: *req.Raw})
	c.JSON(http.StatusOK, NewView(st))
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleAmount(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"amount\": number}"})
		return
	}
	if _, err := s.store.State().Input.WithAmount(req.Amount); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, input.ErrAmountTooLarge) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	st := s.store.Dispatch(state.AmountSet{Amount: req.Amount})
	c.JSON(http.StatusOK, NewView(st))
}

type currencyRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *Server) handleCurrency(c *gin.Context) {
	var req currencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"code\": string}"})
		return
	}
	if err := s.refresher.SelectCurrency(req.Code); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, currency.ErrUnsupportedCurrency) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, NewView(s.store.State()))
}

func (s *Server) handleRetry(c *gin.Context) {
	seq, err := s.refresher.Retry()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"cycle": seq})
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}

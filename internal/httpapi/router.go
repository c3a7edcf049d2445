// Package httpapi wires the gateway's public and admin HTTP surface from
// spec §6 onto gin-gonic/gin. No pack repo carries a full HTTP server (the
// teacher toolkit exposes the same operations over a CLI instead, see the
// teacher's internal/cli/output.go single-line JSON-to-stdout convention
// and internal/lib/errors.go's {success, data, error} envelope), so the
// route table and middleware here are built directly against gin's
// documented idioms while keeping that same response envelope shape.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hiveonboard/gateway/internal/channel"
	"github.com/hiveonboard/gateway/internal/consolidation"
	"github.com/hiveonboard/gateway/internal/hiveauth"
	"github.com/hiveonboard/gateway/internal/notify"
	"github.com/hiveonboard/gateway/internal/orchestrator"
	"github.com/hiveonboard/gateway/internal/pricing"
	"github.com/hiveonboard/gateway/internal/rccost"
)

// Server holds every collaborator an HTTP handler needs. It carries no
// mutable state of its own; every field is a pointer to a component wired
// once at startup in cmd/gateway/main.go.
type Server struct {
	Channels      *channel.Engine
	Pricing       *pricing.Oracle
	RCCosts       *rccost.Oracle
	Orchestrator  *orchestrator.Orchestrator
	Consolidation *consolidation.Executor
	Hub           *notify.Hub
	Admin         hiveauth.AdminAccount
	Logger        *zap.Logger
}

// NewRouter builds the gin engine: CORS, per-request logging, and every
// route spec §6 names.
func NewRouter(s *Server, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.Logger))
	r.Use(cors(corsOrigins))

	r.GET("/pricing", s.getPricing)
	r.POST("/payment/initiate", s.initiatePayment)
	r.GET("/payment/status/:channelId", s.paymentStatus)
	r.GET("/channel/:channelId/status", s.paymentStatus)
	r.POST("/payment/verify-transaction", s.verifyTransaction)
	r.POST("/webhook/payment", s.paymentWebhook)
	r.GET("/ws", s.websocket)

	admin := r.Group("/admin")
	admin.Use(hiveauth.Middleware(s.Admin))
	{
		admin.GET("/act-status", s.adminACTStatus)
		admin.POST("/claim-act", s.adminClaimACT)
		admin.POST("/process-pending", s.adminProcessPending)
		admin.POST("/health-check", s.adminHealthCheck)
		admin.GET("/rc-costs", s.adminRCCosts)
		admin.GET("/channels", s.adminListChannels)
		admin.DELETE("/channels/:id", s.adminDeleteChannel)
		admin.GET("/consolidation-info/:crypto", s.adminConsolidationInfo)
		admin.POST("/prepare-consolidation", s.adminPrepareConsolidation)
		admin.POST("/execute-consolidation", s.adminExecuteConsolidation)
		admin.POST("/manual-create-account", s.adminManualCreateAccount)
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if logger == nil {
			return
		}
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// cors allows only the configured origins, per spec §6's "allowed CORS
// origins" environment variable. An empty allow-list means no browser
// origin is permitted; it does not fall open to "*".
func cors(allowed []string) gin.HandlerFunc {
	allowSet := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		allowSet[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowSet[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, account, challenge, pubkey, signature")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) websocket(c *gin.Context) {
	s.Hub.ServeHTTP(c.Writer, c.Request)
}

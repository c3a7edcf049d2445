package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

func (s *Server) adminACTStatus(c *gin.Context) {
	balance, err := s.Orchestrator.ACTStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, balance)
}

func (s *Server) adminClaimACT(c *gin.Context) {
	claimed, err := s.Orchestrator.ClaimAct(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"claimed": claimed})
}

func (s *Server) adminProcessPending(c *gin.Context) {
	s.Orchestrator.ProcessPending(c.Request.Context())
	respondOK(c, http.StatusOK, gin.H{"triggered": true})
}

func (s *Server) adminHealthCheck(c *gin.Context) {
	health, err := s.Orchestrator.RunHealthCheck(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"state":           health.State,
		"claimsRemaining": health.ClaimsRemaining,
		"daysSustainable": health.DaysSustainable,
	})
}

func (s *Server) adminRCCosts(c *gin.Context) {
	respondOK(c, http.StatusOK, s.RCCosts.LatestCosts())
}

func (s *Server) adminListChannels(c *gin.Context) {
	limit := 200
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	channels, err := s.Channels.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, channels)
}

func (s *Server) adminDeleteChannel(c *gin.Context) {
	if err := s.Channels.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) adminConsolidationInfo(c *gin.Context) {
	crypto := models.Crypto(c.Param("crypto"))
	priority := models.ConsolidationPriority(c.DefaultQuery("priority", string(models.PriorityMedium)))

	gross, fee, net, inputCount, err := s.Consolidation.Prepare(c.Request.Context(), crypto, priority)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"crypto":     crypto,
		"priority":   priority,
		"inputCount": inputCount,
		"gross":      gross.String(),
		"fee":        fee.String(),
		"net":        net.String(),
	})
}

type consolidationRequest struct {
	Crypto      string `json:"crypto"`
	Destination string `json:"destination"`
	Priority    string `json:"priority"`
}

func (s *Server) adminPrepareConsolidation(c *gin.Context) {
	var req consolidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gatewayerr.New(gatewayerr.InputValidation, "malformed request body", err))
		return
	}
	priority := priorityOrDefault(req.Priority)

	gross, fee, net, inputCount, err := s.Consolidation.Prepare(c.Request.Context(), models.Crypto(req.Crypto), priority)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"inputCount": inputCount,
		"gross":      gross.String(),
		"fee":        fee.String(),
		"net":        net.String(),
	})
}

func (s *Server) adminExecuteConsolidation(c *gin.Context) {
	var req consolidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gatewayerr.New(gatewayerr.InputValidation, "malformed request body", err))
		return
	}
	if req.Destination == "" {
		respondError(c, gatewayerr.New(gatewayerr.InputValidation, "destination address is required", nil))
		return
	}
	priority := priorityOrDefault(req.Priority)

	tx, err := s.Consolidation.Execute(c.Request.Context(), models.Crypto(req.Crypto), req.Destination, priority)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, tx)
}

func priorityOrDefault(raw string) models.ConsolidationPriority {
	switch models.ConsolidationPriority(raw) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return models.ConsolidationPriority(raw)
	default:
		return models.PriorityMedium
	}
}

type manualCreateAccountRequest struct {
	Username   string            `json:"username"`
	PublicKeys models.PublicKeys `json:"publicKeys"`
}

func (s *Server) adminManualCreateAccount(c *gin.Context) {
	var req manualCreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gatewayerr.New(gatewayerr.InputValidation, "malformed request body", err))
		return
	}
	if !models.ValidUsername(req.Username) {
		respondError(c, gatewayerr.New(gatewayerr.InputValidation, "invalid Hive username", nil))
		return
	}
	if !req.PublicKeys.Valid() {
		respondError(c, gatewayerr.New(gatewayerr.InputValidation, "invalid public key set", nil))
		return
	}

	txID, method, err := s.Orchestrator.ManualCreateAccount(c.Request.Context(), req.Username, req.PublicKeys)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"hiveTxId": txID, "method": method})
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

// pricingResponse projects models.PricingSnapshot onto the wire shape spec
// §6 names, filtering crypto_rates/transfer_costs/supported_currencies down
// to monitoring-enabled currencies only (XMR/DASH are pricing-only and must
// never appear on this endpoint).
type pricingResponse struct {
	HivePriceUSD        float64                        `json:"hivePriceUsd"`
	BaseCostUSD         float64                         `json:"baseCostUsd"`
	FinalCostUSD        float64                         `json:"finalCostUsd"`
	CryptoRates         map[models.Crypto]models.CryptoRate `json:"cryptoRates"`
	TransferCosts       map[models.Crypto]string            `json:"transferCosts"`
	SupportedCurrencies []models.Crypto                     `json:"supportedCurrencies"`
	Fallback            bool                                `json:"fallback"`
}

func (s *Server) getPricing(c *gin.Context) {
	snap, err := s.Pricing.LatestPricing(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	rates := make(map[models.Crypto]models.CryptoRate, len(models.MonitoringEnabled))
	transferCosts := make(map[models.Crypto]string, len(models.MonitoringEnabled))
	for _, cr := range models.MonitoringEnabled {
		if rate, ok := snap.CryptoRates[cr]; ok {
			rates[cr] = rate
		}
		if tc, ok := snap.TransferCosts[cr]; ok {
			transferCosts[cr] = tc
		}
	}

	respondOK(c, http.StatusOK, pricingResponse{
		HivePriceUSD:        snap.HivePriceUSD,
		BaseCostUSD:         snap.BaseCostUSD,
		FinalCostUSD:        snap.FinalCostUSD,
		CryptoRates:         rates,
		TransferCosts:       transferCosts,
		SupportedCurrencies: models.MonitoringEnabled,
		Fallback:            snap.Fallback,
	})
}

type initiatePaymentRequest struct {
	Username   string              `json:"username"`
	CryptoType string              `json:"cryptoType"`
	PublicKeys models.PublicKeys   `json:"publicKeys"`
}

type initiatePaymentResponse struct {
	ChannelID    string `json:"channelId"`
	Address      string `json:"address"`
	AmountCrypto string `json:"amountCrypto"`
	AmountUSD    string `json:"amountUsd"`
	ExpiresAt    string `json:"expiresAt"`
}

func (s *Server) initiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gatewayerr.New(gatewayerr.InputValidation, "malformed request body", err))
		return
	}

	ch, err := s.Channels.CreateChannel(c.Request.Context(), req.Username, models.Crypto(req.CryptoType), req.PublicKeys)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, initiatePaymentResponse{
		ChannelID:    ch.ChannelID,
		Address:      ch.DepositAddress,
		AmountCrypto: ch.AmountCrypto,
		AmountUSD:    ch.AmountUSD,
		ExpiresAt:    ch.Expires.Format(timeFormat),
	})
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func (s *Server) paymentStatus(c *gin.Context) {
	channelID := c.Param("channelId")
	view, err := s.Channels.Status(c.Request.Context(), channelID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, view)
}

type verifyTransactionRequest struct {
	ChannelID string `json:"channelId"`
	TxHash    string `json:"txHash"`
}

func (s *Server) verifyTransaction(c *gin.Context) {
	var req verifyTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gatewayerr.New(gatewayerr.InputValidation, "malformed request body", err))
		return
	}
	if err := s.Channels.VerifyTransaction(c.Request.Context(), req.ChannelID, req.TxHash); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"verified": true})
}

// paymentWebhook accepts an external payment processor's callback as a hint
// only: the claimed channelId/txHash are never credited directly, they are
// fed through the exact same VerifyTransaction re-derivation path a manual
// caller would use, per spec §6.
func (s *Server) paymentWebhook(c *gin.Context) {
	var req verifyTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, gatewayerr.New(gatewayerr.InputValidation, "malformed webhook payload", err))
		return
	}
	if req.ChannelID == "" || req.TxHash == "" {
		respondOK(c, http.StatusOK, gin.H{"accepted": true})
		return
	}
	if err := s.Channels.VerifyTransaction(c.Request.Context(), req.ChannelID, req.TxHash); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("webhook hint failed re-verification", zap.Error(err))
		}
	}
	respondOK(c, http.StatusOK, gin.H{"accepted": true})
}

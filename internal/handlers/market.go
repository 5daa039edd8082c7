package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/capitalcompass/tradedesk/internal/services"
	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
	"github.com/capitalcompass/tradedesk/pkg/response"
)

// MarketHandler serves trading-pair limits, the news calendar, and the
// server clock that terminals synchronise against.
type MarketHandler struct {
	market *services.MarketService
}

func NewMarketHandler(market *services.MarketService) *MarketHandler {
	return &MarketHandler{market: market}
}

// GET /trading-pairs?pair_name=
func (h *MarketHandler) TradingPair(c *gin.Context) {
	name := strings.TrimSpace(c.Query("pair_name"))
	if name == "" {
		pairs, err := h.market.ListTradingPairs(requestContext(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"pairs": pairs})
		return
	}

	pair, err := h.market.GetTradingPair(requestContext(c), name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"pair": pair})
}

// GET /ea/news-check?currency=&day=
func (h *MarketHandler) NewsCheck(c *gin.Context) {
	currency := strings.TrimSpace(c.Query("currency"))
	if currency == "" {
		response.Error(c, apperrors.NewBadRequest("currency query parameter is required"))
		return
	}

	result, err := h.market.NewsCheck(requestContext(c), currency, parseIntQuery(c, "day", 0))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// POST /ea/news-reset-all
func (h *MarketHandler) NewsResetAll(c *gin.Context) {
	touched, err := h.market.ResetNewsAll(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true, "currencies": touched})
}

type newsStatusRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
	Day      int    `json:"day" validate:"required,min=1,max=5"`
	State    string `json:"state" validate:"required"`
}

// POST /admin/news-status
func (h *MarketHandler) SetNewsStatus(c *gin.Context) {
	var req newsStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.market.SetNewsStatus(requestContext(c), req.Currency, req.Day, req.State); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

type upsertPairRequest struct {
	Pair      string  `json:"pair" validate:"required"`
	State     string  `json:"state"`
	MaxSpread float64 `json:"max_spread"`
	MinLot    float64 `json:"min_lot"`
	MaxLot    float64 `json:"max_lot"`
}

// POST /admin/trading-pairs
func (h *MarketHandler) UpsertTradingPair(c *gin.Context) {
	var req upsertPairRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.market.UpsertTradingPair(requestContext(c), services.UpsertPairInput{
		Pair:      req.Pair,
		State:     req.State,
		MaxSpread: req.MaxSpread,
		MinLot:    req.MinLot,
		MaxLot:    req.MaxLot,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"pair": pair})
}

// GET /server-time
func (h *MarketHandler) ServerTime(c *gin.Context) {
	now := h.market.ServerTime()
	response.Success(c, http.StatusOK, gin.H{
		"server_time": now.Format(time.RFC3339),
		"unix":        now.Unix(),
	})
}

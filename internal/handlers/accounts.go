package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/capitalcompass/tradedesk/internal/services"
	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
	"github.com/capitalcompass/tradedesk/pkg/response"
)

// AccountHandler serves snapshot reports from trading terminals and the
// account-name registry lookups around them.
type AccountHandler struct {
	accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type snapshotRequest struct {
	MT5Name       string  `json:"mt5_name" validate:"required"`
	AccountNumber string  `json:"account_number" validate:"required"`
	Balance       float64 `json:"balance"`
	Equity        float64 `json:"equity"`
	Margin        float64 `json:"margin"`
	FreeMargin    float64 `json:"free_margin"`
	Leverage      int     `json:"leverage"`
}

// POST /account-details
func (h *AccountHandler) ReportSnapshot(c *gin.Context) {
	var req snapshotRequest
	if !bindAndValidate(c, &req) {
		return
	}

	snapshot, err := h.accounts.ReportSnapshot(requestContext(c), services.SnapshotInput{
		MT5Name:       req.MT5Name,
		AccountNumber: req.AccountNumber,
		Balance:       req.Balance,
		Equity:        req.Equity,
		Margin:        req.Margin,
		FreeMargin:    req.FreeMargin,
		Leverage:      req.Leverage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"snapshot": snapshot})
}

// GET /client-basic?mt5_name=
func (h *AccountHandler) ClientBasic(c *gin.Context) {
	mt5Name := strings.TrimSpace(c.Query("mt5_name"))
	if mt5Name == "" {
		response.Error(c, apperrors.NewBadRequest("mt5_name query parameter is required"))
		return
	}

	client, err := h.accounts.GetClientBasic(requestContext(c), mt5Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"client": client})
}

type registerNameRequest struct {
	MT5Name string `json:"mt5_name" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// POST /admin/account-names
func (h *AccountHandler) RegisterName(c *gin.Context) {
	var req registerNameRequest
	if !bindAndValidate(c, &req) {
		return
	}

	name, err := h.accounts.RegisterName(requestContext(c), services.RegisterNameInput{
		MT5Name:   req.MT5Name,
		OwnerName: req.Name,
		Email:     req.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"account_name": name})
}

type nameStateRequest struct {
	State string `json:"state" validate:"required"`
}

// POST /admin/account-names/:id/state
func (h *AccountHandler) SetNameState(c *gin.Context) {
	var req nameStateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.SetNameState(requestContext(c), c.Param("id"), req.State); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// GET /admin/snapshots?mt5_name=
func (h *AccountHandler) ListSnapshots(c *gin.Context) {
	mt5Name := strings.TrimSpace(c.Query("mt5_name"))
	if mt5Name == "" {
		response.Error(c, apperrors.NewBadRequest("mt5_name query parameter is required"))
		return
	}

	snapshots, err := h.accounts.ListSnapshots(requestContext(c), mt5Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"snapshots": snapshots})
}

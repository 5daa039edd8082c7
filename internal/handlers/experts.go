package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/capitalcompass/tradedesk/internal/services"
	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
	"github.com/capitalcompass/tradedesk/pkg/response"
)

// ExpertHandler serves the expert-advisor registry.
type ExpertHandler struct {
	experts *services.ExpertService
}

func NewExpertHandler(experts *services.ExpertService) *ExpertHandler {
	return &ExpertHandler{experts: experts}
}

// GET /ea-details?ea_name=
func (h *ExpertHandler) Details(c *gin.Context) {
	name := strings.TrimSpace(c.Query("ea_name"))
	if name == "" {
		response.Error(c, apperrors.NewBadRequest("ea_name query parameter is required"))
		return
	}

	details, err := h.experts.GetDetails(requestContext(c), name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, details)
}

type assignClientRequest struct {
	ExpertID      string `json:"expert_id" validate:"required"`
	AccountNameID string `json:"account_name_id" validate:"required"`
}

// POST /admin/experts/assign
func (h *ExpertHandler) AssignClient(c *gin.Context) {
	var req assignClientRequest
	if !bindAndValidate(c, &req) {
		return
	}

	assignment, err := h.experts.AssignClient(requestContext(c), req.ExpertID, req.AccountNameID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assignment": assignment})
}

type registerExpertRequest struct {
	Name        string `json:"name" validate:"required"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// POST /admin/experts
func (h *ExpertHandler) Register(c *gin.Context) {
	var req registerExpertRequest
	if !bindAndValidate(c, &req) {
		return
	}

	expert, err := h.experts.Register(requestContext(c), services.RegisterExpertInput{
		Name:        req.Name,
		Version:     req.Version,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"expert": expert})
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/capitalcompass/tradedesk/internal/services"
	"github.com/capitalcompass/tradedesk/pkg/response"
)

// ActivityHandler exposes the activity log to administrators.
type ActivityHandler struct {
	activity *services.ActivityService
}

func NewActivityHandler(activity *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// GET /admin/activity?page=&page_size=&action=&user_id=&account_name_id=
func (h *ActivityHandler) List(c *gin.Context) {
	opts := services.ActivityListOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 50),
		Filters: services.ActivityFilters{
			UserID:        strings.TrimSpace(c.Query("user_id")),
			AccountNameID: strings.TrimSpace(c.Query("account_name_id")),
			Action:        strings.TrimSpace(c.Query("action")),
		},
	}

	logs, total, err := h.activity.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	totalPages := 0
	if opts.PageSize > 0 {
		totalPages = int((total + int64(opts.PageSize) - 1) / int64(opts.PageSize))
	}

	response.SuccessWithMeta(c, http.StatusOK, gin.H{"activity": logs}, &response.Meta{
		Page:       opts.Page,
		PerPage:    opts.PageSize,
		Total:      int(total),
		TotalPages: totalPages,
	})
}

package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/returnsdesk/oem-returns/internal/api/dto"
	"github.com/returnsdesk/oem-returns/internal/auth"
	"github.com/returnsdesk/oem-returns/internal/service"
	apperrors "github.com/returnsdesk/oem-returns/pkg/util/errorutil"
)

// UnassignedAgent is the agent filter value selecting returns with no agent.
const UnassignedAgent = "unassigned"

const historyPageSize = 100

// ReturnsHandler serves the OEM returns table and edit endpoints.
type ReturnsHandler struct {
	service *service.ReturnService
}

// NewReturnsHandler constructs handler.
func NewReturnsHandler(returnService *service.ReturnService) *ReturnsHandler {
	return &ReturnsHandler{service: returnService}
}

// ListReturns GET /returns.
func (h *ReturnsHandler) ListReturns(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), parseReturnFilter(c))
	if err != nil {
		return err
	}
	items := make([]dto.ReturnResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.ReturnFromDomain(&page.Items[i]))
	}
	return c.JSON(dto.ReturnListResponse{
		Data: items,
		Meta: dto.ListMeta{Page: page.Page, PageSize: page.PageSize, Total: page.Total},
	})
}

// GetReturn GET /returns/:id.
func (h *ReturnsHandler) GetReturn(c *fiber.Ctx) error {
	record, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.ReturnEnvelope{Data: dto.ReturnFromDomain(record)})
}

// UpdateReturn PATCH /returns/:id.
func (h *ReturnsHandler) UpdateReturn(c *fiber.Ctx) error {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	patch, err := dto.ParsePatch(c.Body())
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	record, err := h.service.Update(c.UserContext(), agent, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(dto.ReturnEnvelope{Data: dto.ReturnFromDomain(record)})
}

// ListHistory GET /returns/:id/history.
func (h *ReturnsHandler) ListHistory(c *fiber.Ctx) error {
	page, pageSize := service.ClampPage(parseInt(c.Query("page"), 1), parseInt(c.Query("page_size"), historyPageSize), historyPageSize)
	entries, err := h.service.History(c.UserContext(), c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(dto.HistoryListResponse{Data: dto.HistoryFromDomain(entries)})
}

func parseReturnFilter(c *fiber.Ctx) service.ReturnListFilter {
	filter := service.ReturnListFilter{}
	if statuses := c.Query("status"); statuses != "" {
		for _, part := range strings.Split(statuses, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Statuses = append(filter.Statuses, part)
			}
		}
	}
	if agent := strings.TrimSpace(c.Query("agent")); agent != "" {
		if strings.EqualFold(agent, UnassignedAgent) {
			filter.Unassigned = true
		} else {
			filter.Agent = &agent
		}
	}
	if priority := strings.TrimSpace(c.Query("priority")); priority != "" {
		filter.Priority = &priority
	}
	if search := c.Query("search"); strings.TrimSpace(search) != "" {
		filter.SearchTerm = &search
	}
	filter.Page = parseInt(c.Query("page"), 1)
	filter.PageSize = parseInt(c.Query("page_size"), service.DefaultPageSize)
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

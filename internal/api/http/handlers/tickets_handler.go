package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/pharmacy-helpdesk/internal/api/dto"
	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	"github.com/spec-kit/pharmacy-helpdesk/internal/service"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	ticket, err := h.service.Create(c.UserContext(), user, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.Success(dto.NewTicketResponse(ticket)))
}

// ListOwn GET /tickets. The caller's own tickets only, pharmacists included.
func (h *TicketsHandler) ListOwn(c *fiber.Ctx) error {
	return h.list(c, true)
}

// ListAll GET /tickets/all. Accepts a user_id filter.
func (h *TicketsHandler) ListAll(c *fiber.Ctx) error {
	return h.list(c, false)
}

func (h *TicketsHandler) list(c *fiber.Ctx, ownOnly bool) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketListQuery(c, !ownOnly)
	if err != nil {
		return err
	}
	filter.OwnOnly = ownOnly

	tickets, err := h.service.List(c.UserContext(), user, filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(dto.NewTicketList(tickets)))
}

func parseTicketListQuery(c *fiber.Ctx, allowUserFilter bool) (service.TicketListFilter, error) {
	var (
		filter service.TicketListFilter
		err    error
	)
	if filter.TicketID, err = optionalID(c, "ticket_id"); err != nil {
		return filter, err
	}
	if allowUserFilter {
		if filter.UserID, err = optionalID(c, "user_id"); err != nil {
			return filter, err
		}
	}
	if filter.Skip, err = optionalInt(c, "skip"); err != nil {
		return filter, err
	}
	if filter.Limit, err = optionalInt(c, "limit"); err != nil {
		return filter, err
	}
	filter.Status = c.Query("status")
	filter.Order = c.Query("order")
	return filter, nil
}

// UpdateStatus PUT /tickets?ticket_id=&status=.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticketID, err := requiredID(c, "ticket_id")
	if err != nil {
		return err
	}
	status := c.Query("status")
	if status == "" {
		return apperrors.NewValidationError("status is required", map[string]any{"field": "status"})
	}

	ticket, err := h.service.UpdateStatus(c.UserContext(), user, ticketID, domain.TicketStatus(status))
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(dto.NewTicketResponse(ticket)))
}

// History GET /tickets/history?ticket_id=.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticketID, err := requiredID(c, "ticket_id")
	if err != nil {
		return err
	}

	view, err := h.service.GetHistory(c.UserContext(), user, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(dto.NewTicketHistoryResponse(&view.Ticket, view.History)))
}

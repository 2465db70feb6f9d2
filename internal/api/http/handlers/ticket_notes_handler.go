package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/pharmacy-helpdesk/internal/api/dto"
	"github.com/spec-kit/pharmacy-helpdesk/internal/service"
)

// TicketNotesHandler serves /ticket-notes.
type TicketNotesHandler struct {
	service *service.TicketNoteService
}

func NewTicketNotesHandler(noteService *service.TicketNoteService) *TicketNotesHandler {
	return &TicketNotesHandler{service: noteService}
}

// List GET /ticket-notes?ticket_id=.
func (h *TicketNotesHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticketID, err := requiredID(c, "ticket_id")
	if err != nil {
		return err
	}

	notes, err := h.service.List(c.UserContext(), user, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(dto.NewTicketNoteList(notes)))
}

// Create POST /ticket-notes.
func (h *TicketNotesHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketNoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	note, err := h.service.Create(c.UserContext(), user, service.TicketNoteCreateInput{
		TicketID: req.TicketID,
		Body:     req.Body,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.Success(dto.NewTicketNoteResponse(note)))
}

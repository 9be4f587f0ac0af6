package controller

import (
	"discovery-client/internal/dto"
	"discovery-client/internal/entity"
	"discovery-client/internal/pkg/serverutils"
	"discovery-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
	Close(ctx *fiber.Ctx) error
	SubmitDecision(ctx *fiber.Ctx) error
	BeginCompliment(ctx *fiber.Ctx) error
	CancelCompliment(ctx *fiber.Ctx) error
	MarkHintShown(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.ISessionService
}

func NewSessionController(service service.ISessionService) ISessionController {
	return &sessionController{service: service}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Post("", c.Start)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Close)
	h.Post(":id/refresh", c.Refresh)
	h.Post(":id/decisions", c.SubmitDecision)
	h.Post(":id/compliment/:candidateId", c.BeginCompliment)
	h.Delete(":id/compliment", c.CancelCompliment)
	h.Post(":id/hints/:key", c.MarkHintShown)
}

func (c *sessionController) Start(ctx *fiber.Ctx) error {
	res, err := c.service.Start(ctx.UserContext())
	if err != nil {
		return statusError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session started", res))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Snapshot(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return statusError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *sessionController) Refresh(ctx *fiber.Ctx) error {
	res, err := c.service.Refresh(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return statusError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Session refreshing", res))
}

func (c *sessionController) Close(ctx *fiber.Ctx) error {
	if err := c.service.Close(ctx.UserContext(), ctx.Params("id")); err != nil {
		return statusError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Session closed", nil))
}

func (c *sessionController) SubmitDecision(ctx *fiber.Ctx) error {
	var req dto.SubmitDecisionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badBody()
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	decision := entity.Decision{
		Kind:        entity.DecisionKind(req.Kind),
		CandidateID: req.CandidateID,
		Message:     req.Message,
	}
	res, err := c.service.Submit(ctx.UserContext(), ctx.Params("id"), decision)
	if err != nil {
		return statusError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Decision recorded", res))
}

func (c *sessionController) BeginCompliment(ctx *fiber.Ctx) error {
	res, err := c.service.BeginCompliment(ctx.UserContext(), ctx.Params("id"), ctx.Params("candidateId"))
	if err != nil {
		return statusError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Compliment opened", res))
}

func (c *sessionController) CancelCompliment(ctx *fiber.Ctx) error {
	res, err := c.service.CancelCompliment(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return statusError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Compliment cancelled", res))
}

func (c *sessionController) MarkHintShown(ctx *fiber.Ctx) error {
	res, err := c.service.MarkHintShown(ctx.UserContext(), ctx.Params("id"), ctx.Params("key"))
	if err != nil {
		return statusError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Hint marked as shown", res))
}

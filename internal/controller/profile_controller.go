package controller

import (
	"discovery-client/internal/dto"
	"discovery-client/internal/entity"
	"discovery-client/internal/pkg/serverutils"
	"discovery-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IProfileController serves the screens outside the discovery session: the
// profile detail view and the search settings.
type IProfileController interface {
	RegisterRoutes(r fiber.Router)
	DecideDetached(ctx *fiber.Ctx) error
	UpdateSearchParameters(ctx *fiber.Ctx) error
}

type profileController struct {
	decisions service.IDecisionService
	profiles  service.IProfileService
}

func NewProfileController(decisions service.IDecisionService, profiles service.IProfileService) IProfileController {
	return &profileController{decisions: decisions, profiles: profiles}
}

func (c *profileController) RegisterRoutes(r fiber.Router) {
	r.Post("/profiles/:id/decision", c.DecideDetached)
	r.Put("/search-parameters", c.UpdateSearchParameters)
}

func (c *profileController) DecideDetached(ctx *fiber.Ctx) error {
	var req dto.DetachedDecisionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badBody()
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	decision := entity.Decision{
		Kind:        entity.DecisionKind(req.Kind),
		CandidateID: ctx.Params("id"),
		Message:     req.Message,
	}
	if err := c.decisions.ApplyDetached(ctx.UserContext(), decision); err != nil {
		return statusError(err)
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Decision accepted", decision))
}

func (c *profileController) UpdateSearchParameters(ctx *fiber.Ctx) error {
	var req dto.UpdateSearchParametersRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badBody()
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.profiles.SaveOverrides(ctx.UserContext(), req.ToOverride())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Search parameters saved", res))
}

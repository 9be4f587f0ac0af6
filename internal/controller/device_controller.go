package controller

import (
	"discovery-client/internal/dto"
	"discovery-client/internal/entity"
	"discovery-client/internal/pkg/serverutils"
	"discovery-client/pkg/device"

	"github.com/gofiber/fiber/v2"
)

type IDeviceController interface {
	RegisterRoutes(r fiber.Router)
	SetPermission(ctx *fiber.Ctx) error
	ReportPosition(ctx *fiber.Ctx) error
}

type deviceController struct {
	provider *device.BridgeLocationProvider
}

func NewDeviceController(provider *device.BridgeLocationProvider) IDeviceController {
	return &deviceController{provider: provider}
}

func (c *deviceController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/device")
	h.Put("/permission", c.SetPermission)
	h.Post("/position", c.ReportPosition)
}

func (c *deviceController) SetPermission(ctx *fiber.Ctx) error {
	var req dto.DevicePermissionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badBody()
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	c.provider.SetPermission(*req.Granted)
	return ctx.JSON(serverutils.SuccessResponse[any]("Permission updated", nil))
}

func (c *deviceController) ReportPosition(ctx *fiber.Ctx) error {
	var req dto.DevicePositionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badBody()
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	n, err := c.provider.ReportPosition(entity.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		return statusError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Position reported", dto.DevicePositionResponse{Delivered: n}))
}

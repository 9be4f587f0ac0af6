package controller

import (
	"errors"

	"discovery-client/internal/pkg/serverutils"
	"discovery-client/internal/service"
	"discovery-client/pkg/device"
	"discovery-client/pkg/store"

	"github.com/gofiber/fiber/v2"
)

// statusError attaches the HTTP status for known service errors. Anything
// else is left for the error middleware to report as a 500.
func statusError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, store.ErrUnknownCandidate):
		return serverutils.NewHTTPError(fiber.StatusNotFound, err)
	case errors.Is(err, service.ErrSessionClosed):
		return serverutils.NewHTTPError(fiber.StatusGone, err)
	case errors.Is(err, service.ErrNotReady),
		errors.Is(err, service.ErrComplimentPending),
		errors.Is(err, service.ErrAlreadyDecided),
		errors.Is(err, service.ErrNotFront):
		return serverutils.NewHTTPError(fiber.StatusConflict, err)
	case errors.Is(err, service.ErrInvalidDecision),
		errors.Is(err, device.ErrInvalidCoordinates):
		return serverutils.NewHTTPError(fiber.StatusBadRequest, err)
	}
	return err
}

func badBody() error {
	return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
}

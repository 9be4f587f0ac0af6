package handler

import (
	"context"
	"net/http/httptest"
	"testing"

	"discovery-client/internal/pkg/logger"
	"discovery-client/internal/pkg/serverutils"
	"discovery-client/internal/service"
	internalWS "discovery-client/internal/websocket"
	"discovery-client/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type knownSession struct {
	service.ISessionService
	id string
}

func (k knownSession) Snapshot(ctx context.Context, id string) (store.Snapshot, error) {
	if id != k.id {
		return store.Snapshot{}, service.ErrSessionNotFound
	}
	return store.Snapshot{SessionID: id}, nil
}

func (k knownSession) Subscribe(id string, l func(store.Snapshot)) (func(), error) {
	return func() {}, nil
}

func TestServeWsRequiresKnownSessionAndUpgrade(t *testing.T) {
	sessions := knownSession{id: "s1"}
	log := logger.NewNopLogger()
	h := NewSessionStreamHandler(sessions, internalWS.NewHub(sessions, log), log)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	h.RegisterRoutes(app.Group("/api"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/sessions/nope/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/sessions/s1/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"companion-be/internal/dto"
	"companion-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStatus service.SchedulerStatus

func (s fixedStatus) Status() service.SchedulerStatus { return service.SchedulerStatus(s) }

func TestHealthReportsScheduler(t *testing.T) {
	app := fiber.New()
	NewHealthController("postgres", fixedStatus{Running: true, Interval: "1m0s", RemindersSent: 3}).RegisterRoutes(app)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	data := decodeEnvelope(t, res)["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "postgres", data["storage_driver"])
	scheduler := data["reminder_scheduler"].(map[string]interface{})
	assert.Equal(t, true, scheduler["running"])
	assert.EqualValues(t, 3, scheduler["reminders_sent"])
}

func TestHealthWithoutScheduler(t *testing.T) {
	app := fiber.New()
	NewHealthController("memory", nil).RegisterRoutes(app)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)

	data := decodeEnvelope(t, res)["data"].(map[string]interface{})
	assert.Nil(t, data["reminder_scheduler"])
}

type staticCharacters struct{ list []*dto.CharacterResponse }

func (s staticCharacters) List(ctx context.Context) ([]*dto.CharacterResponse, error) {
	return s.list, nil
}

func (staticCharacters) Invalidate() {}

func TestCharacterList(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	app := fiber.New()
	NewCharacterController(staticCharacters{list: []*dto.CharacterResponse{
		{Id: uuid.New(), Key: "moises", Name: "Moisés", StyleTags: []string{}},
	}}).RegisterRoutes(app.Group("/api"))

	req := httptest.NewRequest(http.MethodGet, "/api/character/v1", nil)
	req.Header.Set("Authorization", bearer(t, uuid.New()))
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	items := decodeEnvelope(t, res)["data"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "moises", items[0].(map[string]interface{})["key"])
}

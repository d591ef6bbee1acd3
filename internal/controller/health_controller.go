package controller

import (
	"time"

	"companion-be/internal/pkg/serverutils"
	"companion-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SchedulerStatusProvider is satisfied by *service.ReminderScheduler.
type SchedulerStatusProvider interface {
	Status() service.SchedulerStatus
}

type HealthResponse struct {
	Status            string                   `json:"status"`
	StorageDriver     string                   `json:"storage_driver"`
	Time              time.Time                `json:"time"`
	ReminderScheduler *service.SchedulerStatus `json:"reminder_scheduler"`
}

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	storageDriver string
	scheduler     SchedulerStatusProvider
}

// NewHealthController accepts a nil scheduler when reminders are not running.
func NewHealthController(storageDriver string, scheduler SchedulerStatusProvider) IHealthController {
	return &healthController{
		storageDriver: storageDriver,
		scheduler:     scheduler,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	res := HealthResponse{
		Status:        "ok",
		StorageDriver: c.storageDriver,
		Time:          time.Now().UTC(),
	}
	if c.scheduler != nil {
		status := c.scheduler.Status()
		res.ReminderScheduler = &status
	}
	return ctx.JSON(serverutils.SuccessResponse("Healthy", res))
}

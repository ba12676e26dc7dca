package harvest

import (
	"errors"

	"harvester/internal/core/run"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	svc  *Service
	runs *run.Service
}

func NewHandler(svc *Service, runs *run.Service) *Handler {
	return &Handler{svc: svc, runs: runs}
}

// HandleStart accepts a RunConfig payload and queues a run.
func (h *Handler) HandleStart(c *fiber.Ctx) error {
	var rc RunConfig
	if err := c.BodyParser(&rc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	runID, err := h.svc.Start(c.Context(), rc)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID})
}

// HandleStop requests cancellation. Always acknowledged; stopping an idle or
// unknown run is a no-op.
func (h *Handler) HandleStop(c *fiber.Ctx) error {
	runID := c.Params("runId")
	stopped := h.svc.Stop(runID)
	msg := "cancellation requested"
	if !stopped {
		msg = "no matching run in progress"
	}
	return c.JSON(fiber.Map{"run_id": runID, "stopped": stopped, "message": msg})
}

// HandleGet returns the run record with its latest progress snapshot.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	r, err := h.runs.Get(c.Context(), c.Params("runId"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(r)
}

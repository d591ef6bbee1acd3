package controller

import (
	"companion-be/internal/pkg/serverutils"
	"companion-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICharacterController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
}

type characterController struct {
	characterService service.ICharacterService
}

func NewCharacterController(characterService service.ICharacterService) ICharacterController {
	return &characterController{characterService: characterService}
}

func (c *characterController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/character/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("", c.List)
}

func (c *characterController) List(ctx *fiber.Ctx) error {
	res, err := c.characterService.List(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list characters", res))
}

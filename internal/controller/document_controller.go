package controller

import (
	"accident-advisor-be/internal/dto"
	"accident-advisor-be/internal/pkg/serverutils"
	"accident-advisor-be/internal/service"
	"accident-advisor-be/pkg/advisor/category"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
}

type documentController struct {
	ingestService service.IIngestService
}

func NewDocumentController(ingestService service.IIngestService) IDocumentController {
	return &documentController{
		ingestService: ingestService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Post("ingest", c.Ingest)
}

// Ingest queues a raw document for chunking and embedding. The response
// returns before the document is searchable.
func (c *documentController) Ingest(ctx *fiber.Ctx) error {
	var req dto.PublishIngestDocumentMessage
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if req.Content == "" {
		return fiber.NewError(fiber.StatusBadRequest, "content is required")
	}
	if !validCollection(req.Collection) {
		return fiber.NewError(fiber.StatusBadRequest, "unknown collection: "+req.Collection)
	}

	if err := c.ingestService.Enqueue(ctx.Context(), &req); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any]("Document queued for ingestion", nil))
}

func validCollection(collection string) bool {
	for _, cat := range category.All() {
		if cat.Collection() == collection {
			return true
		}
	}
	return false
}

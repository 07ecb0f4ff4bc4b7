package controller

import (
	"errors"

	"article-rag-be/internal/dto"
	"article-rag-be/internal/entity"
	"article-rag-be/internal/pkg/serverutils"
	"article-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const noSelectionMessage = "No article selected for this session."

type IArticleController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
	IngestAsync(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Select(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	EvictSession(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type articleController struct {
	articleService service.IArticleService
	ingestGuard    fiber.Handler
}

// NewArticleController wires the article routes. ingestGuard, when non-nil,
// protects the two ingest routes.
func NewArticleController(articleService service.IArticleService, ingestGuard fiber.Handler) IArticleController {
	return &articleController{
		articleService: articleService,
		ingestGuard:    ingestGuard,
	}
}

func (c *articleController) RegisterRoutes(r fiber.Router) {
	r.Get("health", c.Health)

	h := r.Group("/article/v1")

	ingest := []fiber.Handler{}
	if c.ingestGuard != nil {
		ingest = append(ingest, c.ingestGuard)
	}
	h.Post("ingest", append(ingest, c.Ingest)...)
	h.Post("ingest/async", append(ingest, c.IngestAsync)...)

	h.Post("search", c.Search)
	h.Post("select", c.Select)
	h.Post("chat", c.Chat)
	h.Get("session/:id/history", c.GetHistory)
	h.Delete("session/:id", c.EvictSession)
}

func (c *articleController) parseArticles(ctx *fiber.Ctx) ([]*entity.Article, error) {
	var req []dto.IngestArticleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "body must be a JSON array of articles")
	}

	articles := make([]*entity.Article, len(req))
	for i := range req {
		if err := serverutils.ValidateRequest(req[i]); err != nil {
			return nil, err
		}
		articles[i] = &entity.Article{
			Id:       req[i].Id,
			Title:    req[i].Title,
			Category: req[i].Category,
			Content:  req[i].Content,
		}
	}
	return articles, nil
}

func (c *articleController) Ingest(ctx *fiber.Ctx) error {
	articles, err := c.parseArticles(ctx)
	if err != nil {
		return err
	}

	count, err := c.articleService.Ingest(ctx.UserContext(), articles)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success ingest articles", &dto.IngestArticlesResponse{
		Status: "Articles ingested",
		Count:  count,
	}))
}

func (c *articleController) IngestAsync(ctx *fiber.Ctx) error {
	articles, err := c.parseArticles(ctx)
	if err != nil {
		return err
	}

	// The request context ends with the response; the consumer runs on its own.
	if err := c.articleService.IngestAsync(ctx.UserContext(), articles); err != nil {
		return err
	}

	res := serverutils.SuccessResponse("Success queue articles", &dto.QueueArticlesResponse{
		Status: "Articles queued",
		Count:  len(articles),
	})
	res.Code = fiber.StatusAccepted
	return ctx.Status(fiber.StatusAccepted).JSON(res)
}

func (c *articleController) Search(ctx *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.articleService.Search(ctx.UserContext(), &req)
	if err != nil {
		return mapServiceError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search articles", res))
}

func (c *articleController) Select(ctx *fiber.Ctx) error {
	var req dto.SelectRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	ok, err := c.articleService.Select(ctx.UserContext(), &req)
	if err != nil {
		return mapServiceError(err)
	}
	if !ok {
		return mapServiceError(service.ErrArticleNotFound)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success select article", &dto.SelectResponse{
		Status: "Article selected",
	}))
}

func (c *articleController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.articleService.Chat(ctx.UserContext(), &req)
	if err != nil {
		return mapServiceError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success chat", res))
}

func (c *articleController) GetHistory(ctx *fiber.Ctx) error {
	res, err := c.articleService.GetHistory(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *articleController) EvictSession(ctx *fiber.Ctx) error {
	if err := c.articleService.EvictSession(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success evict session", &dto.SessionStatusResponse{
		Status: "Session evicted",
	}))
}

func (c *articleController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", &dto.HealthResponse{
		Status:     "ok",
		IndexReady: c.articleService.IndexReady(),
	}))
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrIndexNotReady):
		return serverutils.NewHTTPError(fiber.StatusBadRequest, err.Error(), err)
	case errors.Is(err, service.ErrArticleNotFound):
		return serverutils.NewHTTPError(fiber.StatusNotFound, err.Error(), err)
	case errors.Is(err, service.ErrNoArticleSelected):
		return serverutils.NewHTTPError(fiber.StatusBadRequest, noSelectionMessage, err)
	default:
		return err
	}
}

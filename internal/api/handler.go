package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"repolens/internal/domain"
	"repolens/internal/port"
	"repolens/internal/usecase"
)

type Handler struct {
	s Services
}

func NewHandler(s Services) *Handler {
	return &Handler{s: s}
}

func (h *Handler) Register(router fiber.Router) {
	router.Post("/index-repository", h.IndexRepository)
	router.Get("/index-status", h.IndexStatus)
	router.Post("/search", h.Search)
	router.Post("/prompt", h.Prompt)
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func (h *Handler) IndexRepository(c fiber.Ctx) error {
	var body struct {
		AccessToken string `json:"accessToken"`
		Owner       string `json:"owner"`
		Repo        string `json:"repo"`
		Branch      string `json:"branch"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.AccessToken == "" || body.Owner == "" || body.Repo == "" {
		return badRequest(c, "Missing required parameters")
	}
	if body.Branch == "" {
		body.Branch = "main"
	}

	result, err := h.s.Indexer.Index(c.Context(), domain.IndexRequest{
		Credential: body.AccessToken,
		Owner:      body.Owner,
		Repo:       body.Repo,
		Branch:     body.Branch,
	}, nil)
	if errors.Is(err, port.ErrRepoLocked) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

func (h *Handler) IndexStatus(c fiber.Ctx) error {
	owner, repo := c.Query("owner"), c.Query("repo")
	if owner == "" || repo == "" {
		return badRequest(c, "Missing required parameters")
	}

	status, err := h.s.Status.Status(c.Context(), owner, repo)
	if err != nil {
		slog.Error("error checking index status", "repo", domain.RepoSlug(owner, repo), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(status)
}

// ResultView mirrors domain.SearchResult with an incomparable similarity
// encoded as null.
type ResultView struct {
	ChunkID    string               `json:"chunkId"`
	Content    string               `json:"content"`
	Metadata   domain.ChunkMetadata `json:"metadata"`
	Similarity *float64             `json:"similarity"`
}

func ToResultViews(results []domain.SearchResult) []ResultView {
	out := make([]ResultView, len(results))
	for i, r := range results {
		out[i] = ResultView{
			ChunkID:  r.ChunkID,
			Content:  r.Content,
			Metadata: r.Metadata,
		}
		if r.Comparable() {
			sim := r.Similarity
			out[i].Similarity = &sim
		}
	}
	return out
}

func (h *Handler) Search(c fiber.Ctx) error {
	var body struct {
		RepoID string `json:"repoId"`
		Owner  string `json:"owner"`
		Repo   string `json:"repo"`
		Query  string `json:"query"`
		TopK   int    `json:"topK"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	repoID := body.RepoID
	if repoID == "" && body.Owner != "" && body.Repo != "" {
		repoID = domain.RepoID(body.Owner, body.Repo)
	}
	if repoID == "" || body.Query == "" {
		return badRequest(c, "Missing required parameters")
	}

	results := h.s.Searcher.Search(c.Context(), repoID, body.Query, body.TopK)
	return c.JSON(ToResultViews(results))
}

func (h *Handler) Prompt(c fiber.Ctx) error {
	var body struct {
		AccessToken string `json:"accessToken"`
		Owner       string `json:"owner"`
		Repo        string `json:"repo"`
		Branch      string `json:"branch"`
		Query       string `json:"query"`
		TopK        int    `json:"topK"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Owner == "" || body.Repo == "" || body.Query == "" {
		return badRequest(c, "Missing required parameters")
	}
	if body.Branch == "" {
		body.Branch = "main"
	}

	res, err := h.s.Prompt.Assemble(c.Context(), usecase.PromptRequest{
		Credential: body.AccessToken,
		Owner:      body.Owner,
		Repo:       body.Repo,
		Branch:     body.Branch,
		Query:      body.Query,
		TopK:       body.TopK,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"prompt": res.Prompt,
		"chunks": ToResultViews(res.Chunks),
	})
}

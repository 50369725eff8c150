package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/search"
	"github.com/papercomputeco/meh/pkg/service"
	"github.com/papercomputeco/meh/pkg/storage"
)

// FactsResponse lists facts.
type FactsResponse struct {
	Count int          `json:"count"`
	Facts []*fact.Fact `json:"facts"`
}

// ContentRequest is the body of correct and extend requests.
type ContentRequest struct {
	Content string `json:"content"`
}

// DeprecateRequest is the body of deprecate requests.
type DeprecateRequest struct {
	Reason string `json:"reason"`
}

func factsResponse(facts []*fact.Fact) FactsResponse {
	if facts == nil {
		facts = []*fact.Fact{}
	}
	return FactsResponse{Count: len(facts), Facts: facts}
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListFacts handles GET /v1/facts.
// Query parameters:
//   - path (required): the fact path
//   - recursive (optional): include facts below path
func (s *Server) handleListFacts(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return badRequest("path parameter is required")
	}

	driver := s.svc.Driver()
	var (
		facts []*fact.Fact
		err   error
	)
	if c.QueryBool("recursive", false) {
		facts, err = driver.GetByPathPrefix(c.Context(), path)
	} else {
		facts, err = driver.GetByPath(c.Context(), path)
	}
	if err != nil {
		return err
	}

	return c.JSON(factsResponse(facts))
}

// handleAddFact handles POST /v1/facts.
func (s *Server) handleAddFact(c *fiber.Ctx) error {
	var req service.AddRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}

	f, err := s.svc.Add(c.Context(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(f)
}

// handleGetFact handles GET /v1/facts/:id. The id may be a full id or a
// short "meh-" id.
func (s *Server) handleGetFact(c *fiber.Ctx) error {
	f, err := s.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(f)
}

// handleGetHistory handles GET /v1/facts/:id/history.
func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	h, err := s.svc.History(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(h)
}

func (s *Server) handleCorrectFact(c *fiber.Ctx) error {
	var req ContentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}

	f, err := s.svc.Correct(c.Context(), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(f)
}

func (s *Server) handleExtendFact(c *fiber.Ctx) error {
	var req ContentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}

	f, err := s.svc.Extend(c.Context(), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(f)
}

func (s *Server) handleDeprecateFact(c *fiber.Ctx) error {
	var req DeprecateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest("invalid request body")
		}
	}

	f, err := s.svc.Deprecate(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(f)
}

// handleSearch handles GET /v1/search.
// Query parameters:
//   - q (required): the search text
//   - limit (optional): maximum number of results
//   - path (optional): restrict to facts at or below this path
//   - tags (optional): comma separated tags, all required
//   - min_trust (optional): drop results below this trust score
//   - token_budget (optional): cap on estimated result tokens
func (s *Server) handleSearch(c *fiber.Ctx) error {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		return badRequest("q parameter is required")
	}

	limit, err := positiveQueryInt(c, "limit")
	if err != nil {
		return err
	}
	budget, err := positiveQueryInt(c, "token_budget")
	if err != nil {
		return err
	}

	minTrust := 0.0
	if raw := c.Query("min_trust"); raw != "" {
		minTrust, err = strconv.ParseFloat(raw, 64)
		if err != nil || minTrust < 0 || minTrust > 1 {
			return badRequest("min_trust must be a number between 0 and 1")
		}
	}

	resp, err := s.svc.Search(c.Context(), search.Query{
		Text:        q,
		PathPrefix:  c.Query("path"),
		Tags:        splitTags(c.Query("tags")),
		MinTrust:    minTrust,
		Limit:       limit,
		TokenBudget: budget,
	})
	if err != nil {
		return err
	}

	return c.JSON(resp)
}

// handleBrowse handles GET /v1/browse?path=&limit=&cursor=.
func (s *Server) handleBrowse(c *fiber.Ctx) error {
	limit, err := positiveQueryInt(c, "limit")
	if err != nil {
		return err
	}

	result, err := s.svc.Browse(c.Context(), c.Query("path", storage.RootAlias), limit, c.Query("cursor"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) handleListPending(c *fiber.Ctx) error {
	facts, err := s.svc.Pending(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(factsResponse(facts))
}

func (s *Server) handleApprove(c *fiber.Ctx) error {
	f, err := s.svc.Approve(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(f)
}

func (s *Server) handleReject(c *fiber.Ctx) error {
	f, err := s.svc.Reject(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(f)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.svc.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// handleGC handles POST /v1/gc?dry_run=&retention_days=. Runs are dry
// unless dry_run=false is given.
func (s *Server) handleGC(c *fiber.Ctx) error {
	retention := -1
	if raw := c.Query("retention_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest("retention_days must be a non-negative integer")
		}
		retention = n
	}

	result, err := s.svc.GC(c.Context(), retention, c.QueryBool("dry_run", true))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func positiveQueryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, badRequest(key + " must be a positive integer")
	}
	return n, nil
}

func splitTags(raw string) []string {
	var tags []string
	for t := range strings.SplitSeq(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

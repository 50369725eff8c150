package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/logger"
	"github.com/papercomputeco/meh/pkg/search"
	"github.com/papercomputeco/meh/pkg/service"
	"github.com/papercomputeco/meh/pkg/storage"
	"github.com/papercomputeco/meh/pkg/storage/inmemory"
)

var _ = Describe("Server", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		svc    *service.Service
		server *Server
	)

	do := func(method, target, body string) *http.Response {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, r)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	add := func(path, title, content string) *fact.Fact {
		f, err := svc.Add(ctx, service.AddRequest{Path: path, Title: title, Content: content})
		Expect(err).NotTo(HaveOccurred())
		return f
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		svc = service.New(driver)
		server = NewServer(Config{ListenAddr: ":0"}, svc, logger.Nop())
	})

	It("answers pings", func() {
		resp := do(http.MethodGet, "/ping", "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var body string
		decode(resp, &body)
		Expect(body).To(Equal("pong"))
	})

	Describe("facts", func() {
		It("creates and fetches a fact by short id", func() {
			resp := do(http.MethodPost, "/v1/facts", `{"path":"@svc/timeout","title":"Timeout","content":"Timeout is 30s.","tags":["api"]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var created fact.Fact
			decode(resp, &created)
			Expect(created.Path).To(Equal("@svc/timeout"))
			Expect(created.Tags).To(Equal([]string{"api"}))

			resp = do(http.MethodGet, "/v1/facts/"+created.MehID(), "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var got fact.Fact
			decode(resp, &got)
			Expect(got.ID).To(Equal(created.ID))
		})

		It("lists facts at a path and below it", func() {
			add("@svc", "Overview", "o")
			add("@svc/api", "API", "a")

			var flat FactsResponse
			decode(do(http.MethodGet, "/v1/facts?path=@svc", ""), &flat)
			Expect(flat.Count).To(Equal(1))

			var deep FactsResponse
			decode(do(http.MethodGet, "/v1/facts?path=@svc&recursive=true", ""), &deep)
			Expect(deep.Count).To(Equal(2))
		})

		It("maps error kinds to status codes", func() {
			Expect(do(http.MethodGet, "/v1/facts", "").StatusCode).To(Equal(http.StatusBadRequest))
			Expect(do(http.MethodGet, "/v1/facts?path=bad%20path", "").StatusCode).To(Equal(http.StatusBadRequest))
			Expect(do(http.MethodGet, "/v1/facts/meh-zzzzzzzz", "").StatusCode).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodPost, "/v1/facts", `{"path":"@a"}`).StatusCode).To(Equal(http.StatusBadRequest))
			Expect(do(http.MethodPost, "/v1/facts", `not json`).StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns hints with errors", func() {
			server = NewServer(Config{}, service.New(driver, service.WithWritePolicy(service.PolicyDeny)), logger.Nop())

			resp := do(http.MethodPost, "/v1/facts", `{"path":"@a","title":"A","content":"a"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

			var body ErrorResponse
			decode(resp, &body)
			Expect(body.Error).To(ContainSubstring("writes are disabled"))
			Expect(body.Hint).To(ContainSubstring("write.policy"))
		})

		It("corrects, extends and deprecates", func() {
			original := add("@svc/timeout", "Timeout", "Timeout is 30s.")

			resp := do(http.MethodPost, "/v1/facts/"+original.ID+"/correct", `{"content":"Timeout is 60s."}`)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			var correction fact.Fact
			decode(resp, &correction)
			Expect(correction.Supersedes).To(HaveValue(Equal(original.ID)))

			resp = do(http.MethodPost, "/v1/facts/"+original.ID+"/correct", `{"content":"again"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))

			resp = do(http.MethodPost, "/v1/facts/"+correction.ID+"/extend", `{"content":"Also for writes."}`)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			resp = do(http.MethodPost, "/v1/facts/"+correction.ID+"/deprecate", `{"reason":"retired"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var deprecated fact.Fact
			decode(resp, &deprecated)
			Expect(deprecated.Status).To(Equal(fact.StatusDeprecated))

			var h service.History
			decode(do(http.MethodGet, "/v1/facts/"+correction.ID+"/history", ""), &h)
			Expect(h.Chain).To(HaveLen(2))
		})
	})

	Describe("search", func() {
		It("returns ranked results with filters", func() {
			add("@svc/api/timeout", "Timeout", "Timeout is 30s.")
			add("@other/timeout", "Timeout", "Timeout is 10s.")

			resp := do(http.MethodGet, "/v1/search?q=timeout&path=@svc", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body search.Response
			decode(resp, &body)
			Expect(body.Count).To(Equal(1))
			Expect(body.Results[0].Fact.Path).To(Equal("@svc/api/timeout"))
		})

		DescribeTable("rejects bad parameters",
			func(query string) {
				Expect(do(http.MethodGet, "/v1/search?"+query, "").StatusCode).To(Equal(http.StatusBadRequest))
			},
			Entry("missing q", "limit=5"),
			Entry("bad limit", "q=x&limit=-1"),
			Entry("bad trust", "q=x&min_trust=2"),
			Entry("bad budget", "q=x&token_budget=abc"),
		)
	})

	Describe("browse", func() {
		It("defaults to the root", func() {
			add("@svc/api", "API", "a")

			var body service.BrowseResult
			decode(do(http.MethodGet, "/v1/browse", ""), &body)
			Expect(body.Children.Items).To(ConsistOf(storage.PathInfo{Path: "@svc", FactCount: 1}))
		})
	})

	Describe("pending", func() {
		BeforeEach(func() {
			svc = service.New(driver, service.WithWritePolicy(service.PolicyAsk))
			server = NewServer(Config{}, svc, logger.Nop())
		})

		It("lists, approves and rejects", func() {
			keep := add("@a", "A", "a")
			drop := add("@b", "B", "b")

			var pending FactsResponse
			decode(do(http.MethodGet, "/v1/pending", ""), &pending)
			Expect(pending.Count).To(Equal(2))

			Expect(do(http.MethodPost, "/v1/pending/"+keep.ID+"/approve", "").StatusCode).To(Equal(http.StatusOK))
			Expect(do(http.MethodPost, "/v1/pending/"+drop.ID+"/reject", "").StatusCode).To(Equal(http.StatusOK))
			Expect(do(http.MethodPost, "/v1/pending/"+drop.ID+"/reject", "").StatusCode).To(Equal(http.StatusNotFound))

			var stats storage.Stats
			decode(do(http.MethodGet, "/v1/stats", ""), &stats)
			Expect(stats.Total).To(Equal(1))
			Expect(stats.Active).To(Equal(1))
		})
	})

	Describe("gc", func() {
		It("is a dry run unless asked otherwise", func() {
			original := add("@a", "A", "a")
			_, err := svc.Deprecate(ctx, original.ID, "")
			Expect(err).NotTo(HaveOccurred())

			var dry storage.GCResult
			decode(do(http.MethodPost, "/v1/gc?retention_days=0", ""), &dry)
			Expect(dry.DryRun).To(BeTrue())
			Expect(driver.Count()).To(Equal(1))

			Expect(do(http.MethodPost, "/v1/gc?retention_days=-3", "").StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("mcp mount", func() {
		It("forwards /mcp to the handler", func() {
			var seen string
			server = NewServer(Config{MCPHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r.URL.Path
				w.WriteHeader(http.StatusAccepted)
			})}, svc, logger.Nop())

			resp := do(http.MethodPost, "/mcp", `{}`)
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
			Expect(seen).To(Equal("/mcp"))
		})
	})
})

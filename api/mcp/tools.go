package mcp

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/search"
	"github.com/papercomputeco/meh/pkg/service"
	"github.com/papercomputeco/meh/pkg/storage"
)

const (
	searchToolName    = "meh_search"
	getFactToolName   = "meh_get_fact"
	browseToolName    = "meh_browse"
	addToolName       = "meh_add"
	correctToolName   = "meh_correct"
	extendToolName    = "meh_extend"
	deprecateToolName = "meh_deprecate"

	defaultBrowseLimit = 100

	browseModeLs   = "ls"
	browseModeTree = "tree"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        searchToolName,
		Description: "Search the knowledge base for facts matching a query. Results are ranked by relevance and capped by a token budget.",
	}, s.handleSearch)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        getFactToolName,
		Description: "Get a single fact by id (meh-xxxxxxxx) or path (@path/to/fact), optionally with its correction history.",
	}, s.handleGetFact)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        browseToolName,
		Description: "Browse the path hierarchy of the knowledge base. Start at @ and descend into child paths, or pass mode tree to see several levels at once.",
	}, s.handleBrowse)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        addToolName,
		Description: "Add a new fact at a path. The first line of content becomes its title.",
	}, s.handleAdd)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        correctToolName,
		Description: "Correct an existing fact. The correction supersedes the original, which stays in history.",
	}, s.handleCorrect)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        extendToolName,
		Description: "Extend an existing fact with additional information without replacing it.",
	}, s.handleExtend)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        deprecateToolName,
		Description: "Mark a fact as deprecated so it no longer appears in search results.",
	}, s.handleDeprecate)
}

// SearchInput represents the input arguments for meh_search.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"search query, natural language or keywords"`
	PathFilter string `json:"path_filter,omitempty" jsonschema:"optional path prefix filter, e.g. @products/alpha"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// SearchHit is a single ranked fact.
type SearchHit struct {
	Fact       FactView `json:"fact"`
	Relevance  float64 `json:"relevance"`
	TokenCount int     `json:"token_count"`
}

// SearchOutput represents the output of meh_search.
type SearchOutput struct {
	Query       string      `json:"query"`
	Results     []SearchHit `json:"results"`
	Count       int         `json:"count"`
	TotalTokens int         `json:"total_tokens"`
	Truncated   bool        `json:"truncated"`
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, errors.Wrap(storage.ErrInvalidArgument, "query is required")
	}

	s.config.Logger.Debug("MCP search request",
		"query", input.Query,
		"path_filter", input.PathFilter,
		"limit", input.Limit,
	)

	resp, err := s.config.Service.Search(ctx, search.Query{
		Text:       input.Query,
		PathPrefix: input.PathFilter,
		Limit:      input.Limit,
	})
	if err != nil {
		return nil, SearchOutput{}, s.toolError(searchToolName, err)
	}

	out := SearchOutput{
		Query:       resp.Query,
		Results:     make([]SearchHit, 0, len(resp.Results)),
		Count:       resp.Count,
		TotalTokens: resp.TotalTokens,
		Truncated:   resp.Truncated,
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, SearchHit{
			Fact:       viewFact(r.Fact),
			Relevance:  r.Relevance,
			TokenCount: r.TokenCount,
		})
	}

	return nil, out, nil
}

// GetFactInput represents the input arguments for meh_get_fact.
type GetFactInput struct {
	IDOrPath       string `json:"id_or_path" jsonschema:"fact id (meh-xxxxxxxx) or path (@path/to/fact)"`
	IncludeHistory bool   `json:"include_history,omitempty" jsonschema:"include the superseded and superseding facts"`
}

// GetFactOutput represents the output of meh_get_fact. History runs oldest
// first and includes the fact itself.
type GetFactOutput struct {
	Fact    FactView   `json:"fact"`
	History []FactView `json:"history,omitempty"`
}

func (s *Server) handleGetFact(ctx context.Context, _ *mcp.CallToolRequest, input GetFactInput) (*mcp.CallToolResult, GetFactOutput, error) {
	svc := s.config.Service

	f, err := svc.Get(ctx, input.IDOrPath)
	if err != nil {
		return nil, GetFactOutput{}, s.toolError(getFactToolName, err)
	}

	out := GetFactOutput{Fact: viewFact(f)}
	if !input.IncludeHistory {
		return nil, out, nil
	}

	h, err := svc.History(ctx, f.ID)
	if err != nil {
		return nil, GetFactOutput{}, s.toolError(getFactToolName, err)
	}
	out.History = append(viewFacts(h.Chain), viewFacts(h.Superseding)...)

	return nil, out, nil
}

// BrowseInput represents the input arguments for meh_browse.
type BrowseInput struct {
	Path   string `json:"path,omitempty" jsonschema:"path to browse (default: @, the root)"`
	Mode   string `json:"mode,omitempty" jsonschema:"ls for one level of child paths, tree for the hierarchy below path (default: ls)"`
	Depth  int    `json:"depth,omitempty" jsonschema:"maximum depth in tree mode (default: 3)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of child paths in ls mode (default: 100)"`
	Cursor string `json:"cursor,omitempty" jsonschema:"cursor from a previous page in ls mode"`
}

// BrowseOutput represents the output of meh_browse. Tree mode fills Tree and
// FactCount instead of Children and Facts.
type BrowseOutput struct {
	Path       string          `json:"path"`
	Children   []PathView      `json:"children"`
	Facts      []FactView      `json:"facts"`
	HasMore    bool            `json:"has_more"`
	NextCursor string          `json:"next_cursor,omitempty"`
	Tree       []TreeEntryView `json:"tree,omitempty"`
	FactCount  int             `json:"fact_count,omitempty"`
}

func (s *Server) handleBrowse(ctx context.Context, _ *mcp.CallToolRequest, input BrowseInput) (*mcp.CallToolResult, BrowseOutput, error) {
	path := input.Path
	if path == "" {
		path = storage.RootAlias
	}

	switch input.Mode {
	case "", browseModeLs:
	case browseModeTree:
		return s.browseTree(ctx, path, input.Depth)
	default:
		err := errors.WithHint(
			errors.Wrapf(storage.ErrInvalidArgument, "unknown browse mode %q", input.Mode),
			"use ls or tree",
		)
		return nil, BrowseOutput{}, s.toolError(browseToolName, err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultBrowseLimit
	}

	result, err := s.config.Service.Browse(ctx, path, limit, input.Cursor)
	if err != nil {
		return nil, BrowseOutput{}, s.toolError(browseToolName, err)
	}

	return nil, BrowseOutput{
		Path:       result.Path,
		Children:   viewPaths(result.Children.Items),
		Facts:      viewFacts(result.Facts),
		HasMore:    result.Children.HasMore,
		NextCursor: result.Children.NextCursor,
	}, nil
}

func (s *Server) browseTree(ctx context.Context, path string, depth int) (*mcp.CallToolResult, BrowseOutput, error) {
	tree, err := s.config.Service.Tree(ctx, path, depth)
	if err != nil {
		return nil, BrowseOutput{}, s.toolError(browseToolName, err)
	}

	return nil, BrowseOutput{
		Path:      tree.Root.Path,
		Children:  []PathView{},
		Facts:     []FactView{},
		Tree:      viewTree(tree.Root),
		FactCount: tree.Root.FactCount,
	}, nil
}

// WriteOutput is returned by every tool that stores a fact.
type WriteOutput struct {
	Fact    FactView `json:"fact"`
	Message string   `json:"message"`
}

func writeOutput(verb string, f *fact.Fact) WriteOutput {
	msg := verb + " " + f.MehID() + " at " + f.Path
	if f.Status == fact.StatusPendingReview {
		msg += " (pending review)"
	}
	return WriteOutput{Fact: viewFact(f), Message: msg}
}

// AddInput represents the input arguments for meh_add.
type AddInput struct {
	Path    string   `json:"path" jsonschema:"fact path, e.g. @products/alpha/api/timeout"`
	Content string   `json:"content" jsonschema:"fact content in Markdown"`
	Tags    []string `json:"tags,omitempty" jsonschema:"optional tags for categorization"`
}

func (s *Server) handleAdd(ctx context.Context, _ *mcp.CallToolRequest, input AddInput) (*mcp.CallToolResult, WriteOutput, error) {
	f, err := s.config.Service.Add(ctx, service.AddRequest{
		Path:    input.Path,
		Content: input.Content,
		Tags:    input.Tags,
	})
	if err != nil {
		return nil, WriteOutput{}, s.toolError(addToolName, err)
	}
	return nil, writeOutput("added", f), nil
}

// CorrectInput represents the input arguments for meh_correct.
type CorrectInput struct {
	FactID     string `json:"fact_id" jsonschema:"id of the fact to correct (meh-xxxxxxxx)"`
	NewContent string `json:"new_content" jsonschema:"corrected content in Markdown"`
	Reason     string `json:"reason,omitempty" jsonschema:"optional reason for the correction"`
}

func (s *Server) handleCorrect(ctx context.Context, _ *mcp.CallToolRequest, input CorrectInput) (*mcp.CallToolResult, WriteOutput, error) {
	f, err := s.config.Service.Correct(ctx, input.FactID, input.NewContent)
	if err != nil {
		return nil, WriteOutput{}, s.toolError(correctToolName, err)
	}

	if input.Reason != "" {
		s.config.Logger.Info("fact corrected",
			"id", f.ID,
			"supersedes", input.FactID,
			"reason", input.Reason,
		)
	}
	return nil, writeOutput("corrected", f), nil
}

// ExtendInput represents the input arguments for meh_extend.
type ExtendInput struct {
	FactID    string `json:"fact_id" jsonschema:"id of the fact to extend (meh-xxxxxxxx)"`
	Extension string `json:"extension" jsonschema:"additional content to add"`
}

func (s *Server) handleExtend(ctx context.Context, _ *mcp.CallToolRequest, input ExtendInput) (*mcp.CallToolResult, WriteOutput, error) {
	f, err := s.config.Service.Extend(ctx, input.FactID, input.Extension)
	if err != nil {
		return nil, WriteOutput{}, s.toolError(extendToolName, err)
	}
	return nil, writeOutput("extended", f), nil
}

// DeprecateInput represents the input arguments for meh_deprecate.
type DeprecateInput struct {
	FactID string `json:"fact_id" jsonschema:"id of the fact to deprecate (meh-xxxxxxxx)"`
	Reason string `json:"reason,omitempty" jsonschema:"reason for deprecation"`
}

func (s *Server) handleDeprecate(ctx context.Context, _ *mcp.CallToolRequest, input DeprecateInput) (*mcp.CallToolResult, WriteOutput, error) {
	f, err := s.config.Service.Deprecate(ctx, input.FactID, input.Reason)
	if err != nil {
		return nil, WriteOutput{}, s.toolError(deprecateToolName, err)
	}
	return nil, writeOutput("deprecated", f), nil
}

// toolError logs err and folds its hints into the message the agent sees.
// Returned errors become tool results with IsError set.
func (s *Server) toolError(tool string, err error) error {
	s.config.Logger.Debug("MCP tool failed", "tool", tool, "error", err)

	if hint := errors.FlattenHints(err); hint != "" {
		return errors.Newf("%s (hint: %s)", err.Error(), hint)
	}
	return err
}

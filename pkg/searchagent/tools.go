package searchagent

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/pkg/llm"
	"ai-mail-workspace-be/pkg/mailbox"

	"github.com/invopop/jsonschema"
)

const (
	DefaultSearchToolName = "search_candidates"
	SelectedDetailTool    = "fetch_selected_detail"
	DefaultTopK           = 30
	DefaultTopKMax        = 50

	noSelectionReason = "No selected email id found in context"
)

// MailService is the mailbox collaborator used by the search tools.
type MailService interface {
	Search(ctx context.Context, userID, mailboxName, query string, pageSize int) ([]mailbox.ListItem, error)
	GetDetail(ctx context.Context, userID, messageID string) (*mailbox.Detail, error)
}

type ToolConfig struct {
	SearchToolName string
	TopKDefault    int
	TopKMax        int
}

func (c ToolConfig) withDefaults() ToolConfig {
	if c.SearchToolName == "" {
		c.SearchToolName = DefaultSearchToolName
	}
	if c.TopKMax <= 0 {
		c.TopKMax = DefaultTopKMax
	}
	if c.TopKDefault <= 0 {
		c.TopKDefault = DefaultTopK
	}
	return c
}

type searchArgs struct {
	Query   string `json:"query" jsonschema_description:"Gmail search query, e.g. from:alice newer_than:7d subject:invoice"`
	Mailbox string `json:"mailbox,omitempty" jsonschema:"enum=inbox,enum=sent" jsonschema_description:"Mailbox to search. Defaults to inbox."`
	TopK    *int   `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=50" jsonschema_description:"Maximum number of candidates to return. Defaults to 30."`
}

// searchCallArgs is what Call decodes; top_k stays raw so a quoted or
// fractional number from the model does not fail the run.
type searchCallArgs struct {
	Query   string          `json:"query"`
	Mailbox string          `json:"mailbox"`
	TopK    json.RawMessage `json:"top_k"`
}

type detailArgs struct {
	SelectedID string `json:"selected_id,omitempty" jsonschema_description:"Message id to open. Leave empty to use the email currently open in the UI."`
	Mailbox    string `json:"mailbox,omitempty" jsonschema_description:"Mailbox the email belongs to. Defaults to inbox."`
}

type candidateView struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Subject   string `json:"subject"`
	Snippet   string `json:"snippet"`
	DateLabel string `json:"dateLabel"`
	Unread    bool   `json:"unread"`
}

type searchResult struct {
	Mailbox string          `json:"mailbox"`
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Items   []candidateView `json:"items"`
}

// SearchTools binds the mailbox tools to one user and one run.
type SearchTools struct {
	userID         string
	selectedMailID string
	activeMailbox  string
	mail           MailService
	run            *RunContext
	cfg            ToolConfig
	log            logger.ILogger
	specs          []llm.ToolSpec
}

func NewSearchTools(userID string, ui UIContext, mail MailService, run *RunContext, cfg ToolConfig, log logger.ILogger) *SearchTools {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNopLogger()
	}
	selected := ""
	if ui.SelectedMailID != nil {
		selected = strings.TrimSpace(*ui.SelectedMailID)
	}
	return &SearchTools{
		userID:         userID,
		selectedMailID: selected,
		activeMailbox:  mailbox.NormalizeMailbox(ui.ActiveMailbox),
		mail:           mail,
		run:            run,
		cfg:            cfg,
		log:            log,
		specs: []llm.ToolSpec{
			{
				Name:        cfg.SearchToolName,
				Description: "Search Gmail for candidates using Gmail query syntax and return concise items.",
				Parameters:  schemaFor(&searchArgs{}),
			},
			{
				Name:        SelectedDetailTool,
				Description: "Fetch the currently open email and return AI-readable content for summarization.",
				Parameters:  schemaFor(&detailArgs{}),
			},
		},
	}
}

func (t *SearchTools) Specs() []llm.ToolSpec {
	return t.specs
}

func (t *SearchTools) Call(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case t.cfg.SearchToolName:
		var args searchCallArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return t.SearchCandidates(ctx, args.Query, args.Mailbox, lenientInt(args.TopK, t.cfg.TopKDefault))
	case SelectedDetailTool:
		var args detailArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return t.FetchSelectedDetail(ctx, args.SelectedID, args.Mailbox)
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

// SearchCandidates runs a mailbox query, registers every hit and returns the
// compact projection the model sees.
func (t *SearchTools) SearchCandidates(ctx context.Context, query, mailboxName string, topK int) (interface{}, error) {
	t.run.Log.ToolsCalled = append(t.run.Log.ToolsCalled, t.cfg.SearchToolName)
	t.log.Info("SEARCH_AGENT", "Tool invoked", map[string]interface{}{
		"tool":  t.cfg.SearchToolName,
		"query": query,
	})

	bounded := clamp(topK, 1, t.cfg.TopKMax)
	normalized := mailbox.Inbox
	if mailboxName == mailbox.Sent {
		normalized = mailbox.Sent
	}

	items, err := t.mail.Search(ctx, t.userID, normalized, query, bounded)
	if err != nil {
		t.log.Error("SEARCH_AGENT", "Search tool failed", map[string]interface{}{
			"tool":  t.cfg.SearchToolName,
			"error": err.Error(),
		})
		return nil, err
	}

	out := searchResult{Mailbox: normalized, Query: query, Items: make([]candidateView, 0, len(items))}
	for _, item := range items {
		t.run.Registry.Register(item.ID, item)
		out.Items = append(out.Items, candidateView(item))
	}
	out.Count = len(out.Items)
	t.run.Log.QueriesUsed = append(t.run.Log.QueriesUsed, query)
	return out, nil
}

// FetchSelectedDetail loads the explicitly named or currently open email.
func (t *SearchTools) FetchSelectedDetail(ctx context.Context, selectedID, mailboxName string) (interface{}, error) {
	t.run.Log.ToolsCalled = append(t.run.Log.ToolsCalled, SelectedDetailTool)
	t.log.Info("SEARCH_AGENT", "Tool invoked", map[string]interface{}{
		"tool":        SelectedDetailTool,
		"selected_id": selectedID,
	})

	id := strings.TrimSpace(selectedID)
	if id == "" {
		id = t.selectedMailID
	}
	if id == "" {
		return map[string]interface{}{"ok": false, "reason": noSelectionReason}, nil
	}

	detail, err := t.mail.GetDetail(ctx, t.userID, id)
	if err != nil {
		t.log.Error("SEARCH_AGENT", "Detail tool failed", map[string]interface{}{
			"tool":  SelectedDetailTool,
			"id":    id,
			"error": err.Error(),
		})
		return nil, err
	}

	var to interface{}
	if detail.To != nil {
		to = *detail.To
	}
	payload := map[string]interface{}{
		"ok":           true,
		"mailbox":      t.mailboxOrActive(mailboxName),
		"id":           detail.ID,
		"sender":       detail.Sender,
		"to":           to,
		"subject":      detail.Subject,
		"snippet":      detail.Snippet,
		"dateLabel":    detail.DateLabel,
		"content_text": mailbox.ExtractReadableContent(detail),
	}
	t.run.SelectedDetail = payload
	return payload, nil
}

func (t *SearchTools) mailboxOrActive(name string) string {
	if strings.TrimSpace(name) == "" {
		return t.activeMailbox
	}
	return mailbox.NormalizeMailbox(name)
}

// lenientInt reads a JSON number or numeric string, truncating fractions.
// Anything else yields def.
func lenientInt(raw json.RawMessage, def int) int {
	if len(raw) == 0 {
		return def
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return def
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return def
		}
		f = parsed
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return def
	}
	return int(f)
}

func decodeArgs(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func schemaFor(v interface{}) json.RawMessage {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		DoNotReference:            true,
	}
	s := r.Reflect(v)
	// providers reject the draft and id keywords
	s.Version = ""
	s.ID = ""
	data, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

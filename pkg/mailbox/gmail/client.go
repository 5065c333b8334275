package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-mail-workspace-be/pkg/mailbox"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ListFetchConcurrency bounds the per-message metadata lookups of one list call.
const ListFetchConcurrency = 10

const (
	me          = "me"
	unreadLabel = "UNREAD"
)

// TokenProvider resolves a valid Google access token for an app user.
type TokenProvider interface {
	AccessToken(ctx context.Context, userID string) (string, error)
}

type Client struct {
	tokens   TokenProvider
	location *time.Location
	now      func() time.Time
	options  []option.ClientOption
}

// NewClient builds a Gmail client. Extra options are appended to every
// service construction (endpoint overrides, custom transports).
func NewClient(tokens TokenProvider, location *time.Location, opts ...option.ClientOption) *Client {
	if location == nil {
		location = time.Local
	}
	return &Client{
		tokens:   tokens,
		location: location,
		now:      time.Now,
		options:  opts,
	}
}

func (c *Client) users(ctx context.Context, userID string) (*gmail.UsersService, error) {
	token, err := c.tokens.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})),
	}, c.options...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc.Users, nil
}

// List returns one page of inbox or sent messages.
func (c *Client) List(ctx context.Context, userID, mailboxName, pageToken string, pageSize int) (*mailbox.ListPage, error) {
	return c.list(ctx, "list messages", userID, mailboxName, "", pageToken, pageSize)
}

// Search runs a Gmail query inside one mailbox and hydrates the matches.
func (c *Client) Search(ctx context.Context, userID, mailboxName, query string, pageSize int) ([]mailbox.ListItem, error) {
	page, err := c.list(ctx, "search messages", userID, mailboxName, query, "", pageSize)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) list(ctx context.Context, op, userID, mailboxName, query, pageToken string, pageSize int) (*mailbox.ListPage, error) {
	users, err := c.users(ctx, userID)
	if err != nil {
		return nil, err
	}

	call := users.Messages.List(me).
		LabelIds(mailbox.LabelID(mailboxName)).
		MaxResults(int64(pageSize)).
		Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	res, err := call.Do()
	if err != nil {
		return nil, upstream(op, err)
	}

	items, err := c.fetchListItems(ctx, users, res.Messages)
	if err != nil {
		return nil, err
	}

	page := &mailbox.ListPage{Items: items}
	if res.NextPageToken != "" {
		next := res.NextPageToken
		page.NextPageToken = &next
	}
	return page, nil
}

// fetchListItems resolves metadata for every listed id with bounded
// concurrency. Output order matches the listing order.
func (c *Client) fetchListItems(ctx context.Context, users *gmail.UsersService, messages []*gmail.Message) ([]mailbox.ListItem, error) {
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		if m != nil && m.Id != "" {
			ids = append(ids, m.Id)
		}
	}
	if len(ids) == 0 {
		return []mailbox.ListItem{}, nil
	}

	items := make([]mailbox.ListItem, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ListFetchConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			msg, err := users.Messages.Get(me, id).
				Format("metadata").
				MetadataHeaders("From", "Subject", "Date").
				Context(gctx).
				Do()
			if err != nil {
				return upstream("fetch message summary", err)
			}
			items[i] = c.toListItem(msg, id)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) toListItem(msg *gmail.Message, fallbackID string) mailbox.ListItem {
	headers := headerMap(msg.Payload)
	id := msg.Id
	if id == "" {
		id = fallbackID
	}
	return mailbox.ListItem{
		ID:        id,
		Sender:    valueOr(headers, "from", "Unknown sender"),
		Subject:   valueOr(headers, "subject", "(no subject)"),
		Snippet:   msg.Snippet,
		DateLabel: mailbox.FormatDateLabel(msg.InternalDate, c.now(), c.location),
		Unread:    hasLabel(msg.LabelIds, unreadLabel),
	}
}

// GetDetail fetches a full message with decoded bodies.
func (c *Client) GetDetail(ctx context.Context, userID, messageID string) (*mailbox.Detail, error) {
	users, err := c.users(ctx, userID)
	if err != nil {
		return nil, err
	}

	msg, err := users.Messages.Get(me, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, upstream("fetch message detail", err)
	}

	headers := headerMap(msg.Payload)
	detail := &mailbox.Detail{
		ID:        msg.Id,
		Sender:    valueOr(headers, "from", "Unknown sender"),
		Subject:   valueOr(headers, "subject", "(no subject)"),
		Snippet:   msg.Snippet,
		DateLabel: mailbox.FormatDateLabel(msg.InternalDate, c.now(), c.location),
		Unread:    hasLabel(msg.LabelIds, unreadLabel),
	}
	if detail.ID == "" {
		detail.ID = messageID
	}
	if to, ok := headers["to"]; ok {
		detail.To = &to
	}
	if htmlBody := decodeBody(findBodyData(msg.Payload, "text/html")); htmlBody != "" {
		detail.HTMLBody = &htmlBody
	}
	detail.Body = decodeBody(findBodyData(msg.Payload, "text/plain"))
	if detail.Body == "" {
		detail.Body = msg.Snippet
	}
	return detail, nil
}

// MarkRead removes the UNREAD label.
func (c *Client) MarkRead(ctx context.Context, userID, messageID string) (*mailbox.ReadState, error) {
	users, err := c.users(ctx, userID)
	if err != nil {
		return nil, err
	}

	msg, err := users.Messages.Modify(me, messageID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{unreadLabel},
	}).Context(ctx).Do()
	if err != nil {
		return nil, upstream("mark message read", err)
	}
	return &mailbox.ReadState{OK: true, ID: messageID, Unread: hasLabel(msg.LabelIds, unreadLabel)}, nil
}

// Send delivers a plain-text message from the user's account.
func (c *Client) Send(ctx context.Context, userID string, out mailbox.Outgoing) (*mailbox.SendResult, error) {
	raw, err := mailbox.ComposeRaw(out)
	if err != nil {
		return nil, err
	}
	users, err := c.users(ctx, userID)
	if err != nil {
		return nil, err
	}

	msg, err := users.Messages.Send(me, &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return nil, upstream("send message", err)
	}
	if msg.Id == "" {
		return nil, errors.New("send message: gmail returned no message id")
	}
	return &mailbox.SendResult{OK: true, ID: msg.Id}, nil
}

func upstream(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return &mailbox.UpstreamError{Op: op, StatusCode: gerr.Code, Message: msg}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func headerMap(payload *gmail.MessagePart) map[string]string {
	out := make(map[string]string)
	if payload == nil {
		return out
	}
	for _, h := range payload.Headers {
		if h == nil {
			continue
		}
		out[strings.ToLower(h.Name)] = h.Value
	}
	return out
}

func valueOr(headers map[string]string, key, fallback string) string {
	if v, ok := headers[key]; ok {
		return v
	}
	return fallback
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// findBodyData walks the MIME tree depth-first for the first non-empty body
// of the given type.
func findBodyData(part *gmail.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		return part.Body.Data
	}
	for _, child := range part.Parts {
		if data := findBodyData(child, mimeType); data != "" {
			return data
		}
	}
	return ""
}

func decodeBody(data string) string {
	if data == "" {
		return ""
	}
	data = strings.TrimRight(data, "=")
	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(decoded), "�")
}

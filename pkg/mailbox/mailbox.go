package mailbox

import (
	"fmt"
	"strings"
	"time"
)

const (
	Inbox = "inbox"
	Sent  = "sent"
)

// ListItem is the compact summary of one message shown in mailbox lists and
// returned as a search candidate.
type ListItem struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Subject   string `json:"subject"`
	Snippet   string `json:"snippet"`
	DateLabel string `json:"dateLabel"`
	Unread    bool   `json:"unread"`
}

type ListPage struct {
	Items         []ListItem `json:"items"`
	NextPageToken *string    `json:"nextPageToken"`
}

// Detail is a single message with decoded bodies.
type Detail struct {
	ID        string  `json:"id"`
	Sender    string  `json:"sender"`
	To        *string `json:"to"`
	Subject   string  `json:"subject"`
	Snippet   string  `json:"snippet"`
	Body      string  `json:"body"`
	HTMLBody  *string `json:"htmlBody"`
	DateLabel string  `json:"dateLabel"`
	Unread    bool    `json:"unread"`
}

type ReadState struct {
	OK     bool   `json:"ok"`
	ID     string `json:"id"`
	Unread bool   `json:"unread"`
}

type SendResult struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

type Outgoing struct {
	To      string
	Cc      string
	Subject string
	Body    string
}

// UpstreamError is a non-success answer from the mail provider.
type UpstreamError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream status %d: %s", e.Op, e.StatusCode, e.Message)
}

// NormalizeMailbox maps anything other than "sent" to "inbox".
func NormalizeMailbox(mailbox string) string {
	if strings.ToLower(strings.TrimSpace(mailbox)) == Sent {
		return Sent
	}
	return Inbox
}

// LabelID is the provider label a mailbox lists from.
func LabelID(mailbox string) string {
	if NormalizeMailbox(mailbox) == Sent {
		return "SENT"
	}
	return "INBOX"
}

// ExtractReadableContent prefers the HTML body rendered as text, then the
// plain body, then the snippet.
func ExtractReadableContent(d *Detail) string {
	if d == nil {
		return ""
	}
	if d.HTMLBody != nil && *d.HTMLBody != "" {
		if text := HTMLToText(*d.HTMLBody); text != "" {
			return text
		}
	}
	if body := strings.TrimSpace(d.Body); body != "" {
		return body
	}
	return strings.TrimSpace(d.Snippet)
}

// FormatDateLabel renders an epoch-millis timestamp relative to now in loc.
func FormatDateLabel(internalDateMillis int64, now time.Time, loc *time.Location) string {
	if internalDateMillis <= 0 {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	mailTime := time.UnixMilli(internalDateMillis).In(loc)
	now = now.In(loc)

	switch {
	case sameDay(mailTime, now):
		return mailTime.Format("3:04 PM")
	case sameDay(mailTime, now.AddDate(0, 0, -1)):
		return "Yesterday"
	case mailTime.Year() == now.Year():
		return mailTime.Format("Jan 02")
	default:
		return mailTime.Format("Jan 02, 2006")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

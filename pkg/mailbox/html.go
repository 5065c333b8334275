package mailbox

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
)

var lineBreakClosers = map[string]bool{
	"p": true, "div": true, "li": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// HTMLToText flattens an HTML mail body into readable plain text. Script and
// style content is dropped, block closers become newlines and every other tag
// becomes a space.
func HTMLToText(body string) string {
	if body == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(body))
	var b strings.Builder
	skipDepth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return normalizeText(b.String())
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skipDepth++
			}
			if tag == "br" {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
				b.WriteString(" ")
				continue
			}
			if lineBreakClosers[tag] {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		}
	}
}

func normalizeText(s string) string {
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

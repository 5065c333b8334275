package mailbox

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"gopkg.in/gomail.v2"
)

// ComposeRaw renders an outgoing plain-text message as RFC 822 and returns it
// base64url encoded, the form the Gmail send endpoint expects.
func ComposeRaw(out Outgoing) (string, error) {
	m := gomail.NewMessage()
	m.SetHeader("To", out.To)
	if out.Cc != "" {
		m.SetHeader("Cc", out.Cc)
	}
	m.SetHeader("Subject", out.Subject)
	m.SetBody("text/plain", out.Body)

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("compose message: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// Command chatprobe exchanges a session JWT for a websocket ticket, sends a
// single chat_request and prints the event stream.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type frame struct {
	Type    string          `json:"type"`
	EventID string          `json:"eventId"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "backend base URL")
	session := flag.String("session", os.Getenv("SESSION_TOKEN"), "session JWT")
	message := flag.String("message", "find unread emails from last week", "chat message")
	model := flag.String("model", "auto", "model selector: auto, gemini or groq")
	mailbox := flag.String("mailbox", "inbox", "active mailbox")
	conversation := flag.String("conversation", "", "conversation id to continue")
	timeout := flag.Duration("timeout", 90*time.Second, "overall timeout")
	flag.Parse()

	if *session == "" {
		color.Red("missing -session (or SESSION_TOKEN)")
		os.Exit(2)
	}

	ticket, err := fetchTicket(*baseURL, *session)
	if err != nil {
		color.Red("ws token: %v", err)
		os.Exit(1)
	}

	wsURL, err := eventsURL(*baseURL, ticket)
	if err != nil {
		color.Red("bad url: %v", err)
		os.Exit(2)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		color.Red("dial: %v", err)
		os.Exit(1)
	}
	defer conn.Close()

	payload := map[string]interface{}{
		"chatId":  uuid.NewString(),
		"message": *message,
		"model":   *model,
		"context": map[string]interface{}{"activeMailbox": *mailbox},
	}
	if *conversation != "" {
		payload["conversationId"] = *conversation
	}
	if err := conn.WriteJSON(map[string]interface{}{"type": "chat_request", "payload": payload}); err != nil {
		color.Red("send: %v", err)
		os.Exit(1)
	}
	color.Cyan("sent chat_request %q (model=%s)", *message, *model)

	_ = conn.SetReadDeadline(time.Now().Add(*timeout))
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			color.Red("read: %v", err)
			os.Exit(1)
		}
		if done := printFrame(f); done {
			return
		}
	}
}

// printFrame reports whether the stream for the request has ended.
func printFrame(f frame) bool {
	switch f.Type {
	case "chat_delta":
		var p struct {
			Delta string `json:"delta"`
		}
		_ = json.Unmarshal(f.Payload, &p)
		fmt.Print(p.Delta)
		return false
	case "chat_start", "system.ready":
		color.Cyan("[%s] %s", f.Type, string(f.Payload))
		return false
	case "chat_action":
		fmt.Println()
		color.Yellow("[%s] %s", f.Type, truncate(string(f.Payload), 400))
		return false
	case "chat_completed":
		fmt.Println()
		color.Green("[%s] %s", f.Type, truncate(string(f.Payload), 800))
		return true
	case "chat_error":
		fmt.Println()
		color.Red("[%s] %s", f.Type, string(f.Payload))
		return true
	default:
		color.White("[%s] %s", f.Type, string(f.Payload))
		return false
	}
}

func fetchTicket(baseURL, session string) (string, error) {
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/ws/token", bytes.NewReader(nil))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+session)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %s", resp.Status)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Token, nil
}

func eventsURL(baseURL, ticket string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/events"
	u.RawQuery = url.Values{"token": {ticket}}.Encode()
	return u.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

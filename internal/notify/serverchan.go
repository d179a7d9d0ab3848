package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var sctpKeyPattern = regexp.MustCompile(`^sctp(\d+)t`)

// ServerChan pushes through the ServerChan service
type ServerChan struct {
	key    string
	client *http.Client
	// Endpoint overrides the URL derived from the key
	Endpoint string
}

type serverChanResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewServerChan creates a ServerChan channel
func NewServerChan(key string, client *http.Client) *ServerChan {
	return &ServerChan{key: key, client: client}
}

// Name returns the channel name
func (s *ServerChan) Name() string {
	return ChannelServerChan
}

// URL returns the send endpoint for the configured key
func (s *ServerChan) URL() string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	if m := sctpKeyPattern.FindStringSubmatch(s.key); m != nil {
		return fmt.Sprintf("https://%s.push.ft07.com/send/%s.send", m[1], s.key)
	}
	return fmt.Sprintf("https://sctapi.ftqq.com/%s.send", s.key)
}

// Send posts the message
func (s *ServerChan) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("text", msg.Title)
	form.Set("desp", msg.Content)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := do(s.client, req)
	if err != nil {
		return fmt.Errorf("serverchan: %w", err)
	}

	var result serverChanResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("serverchan: invalid response: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("serverchan: code %d: %s", result.Code, result.Message)
	}
	return nil
}

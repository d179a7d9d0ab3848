package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Channel delivers a rendered message. Credentials are bound when the
// channel is built.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Channel choices for push_channel_settings.choose
const (
	ChannelServerChan = "ServerChan"
	ChannelOnePush    = "OnePush"
)

// ChannelConfig selects and configures a channel
type ChannelConfig struct {
	Choose         string
	ServerChanKey  string
	PushChannel    string
	PushChannelKey string
}

// Validate checks that the selected channel has its credentials
func (c ChannelConfig) Validate() error {
	switch c.Choose {
	case ChannelServerChan:
		if c.ServerChanKey == "" {
			return fmt.Errorf("serverchan_key is required when choose is %s", ChannelServerChan)
		}
	case ChannelOnePush:
		if c.PushChannel == "" || c.PushChannelKey == "" {
			return fmt.Errorf("push_channel and push_channel_key are required when choose is %s", ChannelOnePush)
		}
		if _, ok := onePushProviders[strings.ToLower(c.PushChannel)]; !ok {
			return fmt.Errorf("unsupported push_channel %q (supported: %s)", c.PushChannel, strings.Join(OnePushProviders(), ", "))
		}
	default:
		return fmt.Errorf("unsupported channel %q, choose %s or %s", c.Choose, ChannelServerChan, ChannelOnePush)
	}
	return nil
}

// NewChannel builds the configured channel. A nil client gets a default one.
func NewChannel(cfg ChannelConfig, client *http.Client) (Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	switch cfg.Choose {
	case ChannelServerChan:
		return NewServerChan(cfg.ServerChanKey, client), nil
	default:
		return NewOnePush(cfg.PushChannel, cfg.PushChannelKey, client)
	}
}

// do executes req and turns non-2xx responses into errors. The body is
// returned for channels that report failures in-band.
func do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

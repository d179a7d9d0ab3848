package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

type onePushProvider struct {
	endpoint func(key string) string
	payload  func(key string, msg Message) interface{}
	// check inspects the response body for in-band errors
	check func(body []byte) error
}

// errcodeResponse is shared by DingTalk and WeCom bots
type errcodeResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func checkErrcode(body []byte) error {
	var r errcodeResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	if r.ErrCode != 0 {
		return fmt.Errorf("errcode %d: %s", r.ErrCode, r.ErrMsg)
	}
	return nil
}

func markdown(msg Message) string {
	return fmt.Sprintf("## %s\n\n%s", msg.Title, msg.Content)
}

var onePushProviders = map[string]onePushProvider{
	"bark": {
		endpoint: func(string) string { return "https://api.day.app/push" },
		payload: func(key string, msg Message) interface{} {
			return map[string]string{"device_key": key, "title": msg.Title, "body": msg.Content}
		},
		check: func(body []byte) error {
			var r struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(body, &r); err != nil {
				return fmt.Errorf("invalid response: %w", err)
			}
			if r.Code != http.StatusOK {
				return fmt.Errorf("code %d: %s", r.Code, r.Message)
			}
			return nil
		},
	},
	"dingtalk": {
		endpoint: func(key string) string {
			return "https://oapi.dingtalk.com/robot/send?access_token=" + url.QueryEscape(key)
		},
		payload: func(_ string, msg Message) interface{} {
			return map[string]interface{}{
				"msgtype":  "markdown",
				"markdown": map[string]string{"title": msg.Title, "text": markdown(msg)},
			}
		},
		check: checkErrcode,
	},
	"wechatworkbot": {
		endpoint: func(key string) string {
			return "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=" + url.QueryEscape(key)
		},
		payload: func(_ string, msg Message) interface{} {
			return map[string]interface{}{
				"msgtype":  "markdown",
				"markdown": map[string]string{"content": markdown(msg)},
			}
		},
		check: checkErrcode,
	},
	"webhook": {
		endpoint: func(key string) string { return key },
		payload: func(_ string, msg Message) interface{} {
			return map[string]string{"title": msg.Title, "content": msg.Content}
		},
	},
}

// OnePushProviders lists the supported push_channel values
func OnePushProviders() []string {
	names := make([]string, 0, len(onePushProviders))
	for name := range onePushProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OnePush pushes through one of several bot/webhook providers
type OnePush struct {
	provider string
	key      string
	client   *http.Client
	// Endpoint overrides the provider URL
	Endpoint string
}

// NewOnePush creates a OnePush channel for provider
func NewOnePush(provider, key string, client *http.Client) (*OnePush, error) {
	provider = strings.ToLower(provider)
	if _, ok := onePushProviders[provider]; !ok {
		return nil, fmt.Errorf("unsupported push_channel %q", provider)
	}
	return &OnePush{provider: provider, key: key, client: client}, nil
}

// Name returns the channel name
func (o *OnePush) Name() string {
	return ChannelOnePush + "/" + o.provider
}

// Send posts the message as JSON
func (o *OnePush) Send(ctx context.Context, msg Message) error {
	p := onePushProviders[o.provider]

	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = p.endpoint(o.key)
	}

	data, err := json.Marshal(p.payload(o.key, msg))
	if err != nil {
		return fmt.Errorf("%s: failed to marshal payload: %w", o.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", o.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := do(o.client, req)
	if err != nil {
		return fmt.Errorf("%s: %w", o.provider, err)
	}
	if p.check != nil {
		if err := p.check(body); err != nil {
			return fmt.Errorf("%s: %w", o.provider, err)
		}
	}
	return nil
}

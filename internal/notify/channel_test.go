package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChannelConfig
		wantErr bool
	}{
		{"serverchan ok", ChannelConfig{Choose: ChannelServerChan, ServerChanKey: "SCT1"}, false},
		{"serverchan missing key", ChannelConfig{Choose: ChannelServerChan}, true},
		{"onepush ok", ChannelConfig{Choose: ChannelOnePush, PushChannel: "Bark", PushChannelKey: "k"}, false},
		{"onepush missing key", ChannelConfig{Choose: ChannelOnePush, PushChannel: "bark"}, true},
		{"onepush unknown provider", ChannelConfig{Choose: ChannelOnePush, PushChannel: "fax", PushChannelKey: "k"}, true},
		{"unknown channel", ChannelConfig{Choose: "Pigeon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServerChan_URL(t *testing.T) {
	assert.Equal(t, "https://sctapi.ftqq.com/SCT123abc.send", NewServerChan("SCT123abc", nil).URL())
	assert.Equal(t, "https://7.push.ft07.com/send/sctp7tXYZ.send", NewServerChan("sctp7tXYZ", nil).URL())
}

func TestServerChan_Send(t *testing.T) {
	var gotTitle, gotDesp string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotTitle = r.PostForm.Get("text")
		gotDesp = r.PostForm.Get("desp")
		_, _ = w.Write([]byte(`{"code":0,"message":""}`))
	}))
	defer srv.Close()

	ch := NewServerChan("SCT1", srv.Client())
	ch.Endpoint = srv.URL

	require.NoError(t, ch.Send(context.Background(), Message{Title: "t", Content: "c"}))
	assert.Equal(t, "t", gotTitle)
	assert.Equal(t, "c", gotDesp)
}

func TestServerChan_SendInBandError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":40001,"message":"bad key"}`))
	}))
	defer srv.Close()

	ch := NewServerChan("SCT1", srv.Client())
	ch.Endpoint = srv.URL

	err := ch.Send(context.Background(), Message{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestOnePush_Providers(t *testing.T) {
	assert.Equal(t, []string{"bark", "dingtalk", "webhook", "wechatworkbot"}, OnePushProviders())
}

func TestOnePush_Send(t *testing.T) {
	tests := []struct {
		provider string
		reply    string
		check    func(t *testing.T, body map[string]interface{})
		wantErr  bool
	}{
		{
			provider: "bark",
			reply:    `{"code":200,"message":"success"}`,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "device", body["device_key"])
				assert.Equal(t, "title", body["title"])
				assert.Equal(t, "content", body["body"])
			},
		},
		{
			provider: "dingtalk",
			reply:    `{"errcode":0,"errmsg":"ok"}`,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "markdown", body["msgtype"])
			},
		},
		{
			provider: "wechatworkbot",
			reply:    `{"errcode":93000,"errmsg":"invalid webhook url"}`,
			wantErr:  true,
		},
		{
			provider: "webhook",
			reply:    `ok`,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "content", body["content"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			var body map[string]interface{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				_, _ = w.Write([]byte(tt.reply))
			}))
			defer srv.Close()

			ch, err := NewOnePush(tt.provider, "device", srv.Client())
			require.NoError(t, err)
			ch.Endpoint = srv.URL

			err = ch.Send(context.Background(), Message{Title: "title", Content: "content"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestChannel_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	ch, err := NewChannel(ChannelConfig{Choose: ChannelOnePush, PushChannel: "webhook", PushChannelKey: srv.URL}, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "OnePush/webhook", ch.Name())

	err = ch.Send(context.Background(), Message{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

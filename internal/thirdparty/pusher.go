// Package thirdparty 检测结果的 Webhook 推送：签名、重试、Redis 异步队列与去重
package thirdparty

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
)

// Pusher 签名 HTTP 推送器
type Pusher struct {
	Client  *http.Client
	APIKey  string
	Secret  string
	Retries int
	Backoff []time.Duration
}

func NewPusher(client *http.Client, apiKey, secret string) *Pusher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Pusher{
		Client:  client,
		APIKey:  apiKey,
		Secret:  secret,
		Retries: 5,
		Backoff: []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second},
	}
}

// SendJSON 发送 JSON 事件，自动添加签名头
//
// 网络错误与 5xx 重试；4xx 直接返回状态码，不视为错误。
func (p *Pusher) SendJSON(ctx context.Context, endpoint string, payload any) (int, []byte, error) {
	if p == nil || p.Client == nil {
		return 0, nil, errors.New("nil pusher")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return 0, nil, err
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	var respBody []byte
	var code int
	var lastErr error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		req, err := p.newRequest(ctx, endpoint, path, body)
		if err != nil {
			return 0, nil, err
		}
		resp, err := p.Client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			lastErr = nil
			code = resp.StatusCode
			respBody, _ = io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if code < 500 {
				return code, respBody, nil
			}
		}
		if attempt == p.Retries || len(p.Backoff) == 0 {
			break
		}
		backoff := p.Backoff[min(attempt, len(p.Backoff)-1)]
		select {
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if lastErr != nil {
		return 0, nil, lastErr
	}
	return code, respBody, fmt.Errorf("http %d", code)
}

// newRequest 每次尝试重新签名（时间戳与 nonce 不复用）
func (p *Pusher) newRequest(ctx context.Context, endpoint, path string, body []byte) (*http.Request, error) {
	ts := time.Now().Unix()
	nonce := fmt.Sprintf("%08x", rand.Uint32())
	sig := SignHMAC(p.Secret, buildCanonical(http.MethodPost, path, ts, nonce, hashHex(body)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", p.APIKey)
	req.Header.Set("X-Signature", sig)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Nonce", nonce)
	return req, nil
}

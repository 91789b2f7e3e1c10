package thirdparty

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// mockWebhookServer 校验签名并记录事件；statuses 依次作为前几次响应码
type mockWebhookServer struct {
	*httptest.Server
	mu       sync.Mutex
	events   []StandardEvent
	statuses []int
	attempts int
	badSigs  int
}

func newMockWebhookServer(secret string, statuses ...int) *mockWebhookServer {
	m := &mockWebhookServer{statuses: statuses}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		m.attempts++

		ts, _ := strconv.ParseInt(r.Header.Get("X-Timestamp"), 10, 64)
		canonical := buildCanonical(r.Method, r.URL.Path, ts, r.Header.Get("X-Nonce"), hashHex(body))
		if !VerifyHMAC(secret, canonical, r.Header.Get("X-Signature")) {
			m.badSigs++
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if len(m.statuses) > 0 {
			code := m.statuses[0]
			m.statuses = m.statuses[1:]
			if code != http.StatusOK {
				w.WriteHeader(code)
				return
			}
		}

		var ev StandardEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		m.events = append(m.events, ev)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"code":0,"message":"success"}`))
	}))
	return m
}

func (m *mockWebhookServer) received() []StandardEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StandardEvent(nil), m.events...)
}

func (m *mockWebhookServer) attemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

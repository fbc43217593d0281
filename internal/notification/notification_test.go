package notification

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"stock-decision-bot/internal/logging"
)

type fakeNotifier struct {
	name    string
	enabled bool
	err     error

	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Name() string    { return f.name }
func (f *fakeNotifier) IsEnabled() bool { return f.enabled }

func (f *fakeNotifier) Send(content string) error {
	f.mu.Lock()
	f.sent = append(f.sent, content)
	f.mu.Unlock()
	return f.err
}

func TestTruncateUTF8(t *testing.T) {
	short := "短消息"
	if got := truncateUTF8(short, 4000); got != short {
		t.Errorf("Content under the cap should pass through, got %q", got)
	}
	if got := truncateUTF8(strings.Repeat("长", 5000), 0); len(got) != 3*5000 {
		t.Error("Zero cap should disable truncation")
	}

	// Cut lands mid-rune, truncation must back off to the rune start
	long := strings.Repeat("涨", 2000)
	got := truncateUTF8(long, 4000)
	if !utf8.ValidString(got) {
		t.Error("Truncation split a rune")
	}
	if !strings.HasSuffix(got, truncationMark) {
		t.Error("Truncated content should carry the marker")
	}
	if !strings.HasPrefix(got, strings.Repeat("涨", 1333)) {
		t.Errorf("Expected 1333 whole runes before the marker, got %d bytes", len(got))
	}
}

func TestManagerFanOut(t *testing.T) {
	ok := &fakeNotifier{name: "ok", enabled: true}
	bad := &fakeNotifier{name: "bad", enabled: true, err: errors.New("send failed")}

	m := NewManager(logging.Nop())
	m.AddNotifier(ok)
	m.AddNotifier(bad)

	results := m.Send("买入信号")
	if len(results) != 2 {
		t.Fatalf("Expected 2 channel results, got %d", len(results))
	}
	if results["ok"] != nil {
		t.Errorf("Expected success for ok, got %v", results["ok"])
	}
	if results["bad"] == nil {
		t.Error("Expected the failure recorded for bad")
	}
	if AllOK(results) {
		t.Error("AllOK should be false when a channel fails")
	}
	if len(ok.sent) != 1 || ok.sent[0] != "买入信号" {
		t.Errorf("Channel should receive the content, got %v", ok.sent)
	}
}

func TestManagerSkipsDisabled(t *testing.T) {
	disabled := &fakeNotifier{name: "disabled", enabled: false}
	enabled := &fakeNotifier{name: "enabled", enabled: true}

	m := NewManager(logging.Nop())
	m.AddNotifier(disabled)
	m.AddNotifier(enabled)

	results := m.Send("x")
	if _, ok := results["disabled"]; ok {
		t.Error("Disabled channel should not appear in results")
	}
	if len(disabled.sent) != 0 {
		t.Error("Disabled channel should not be called")
	}
	if !AllOK(results) {
		t.Error("Expected the remaining channel to succeed")
	}
}

func TestManagerNoChannels(t *testing.T) {
	m := NewManager(logging.Nop())

	if m.Available() {
		t.Error("Manager without channels should not be available")
	}
	results := m.Send("x")
	if len(results) != 0 {
		t.Errorf("Expected empty results, got %v", results)
	}
	if AllOK(results) {
		t.Error("Empty results should not count as success")
	}
}

func TestManagerChannelNames(t *testing.T) {
	m := NewManager(logging.Nop())
	m.AddNotifier(&fakeNotifier{name: "a", enabled: true})
	m.AddNotifier(&fakeNotifier{name: "b", enabled: false})
	m.AddNotifier(&fakeNotifier{name: "c", enabled: true})

	names := m.ChannelNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Errorf("Expected enabled channels only, got %v", names)
	}
}

func TestSendSimplePrefixesTitle(t *testing.T) {
	ch := &fakeNotifier{name: "ch", enabled: true}
	m := NewManager(logging.Nop())
	m.AddNotifier(ch)

	m.SendSimple("📊 标题", "正文")
	if len(ch.sent) != 1 || ch.sent[0] != "📊 标题\n\n正文" {
		t.Errorf("Unexpected composed message: %v", ch.sent)
	}
}

func TestWeChatNotifierSend(t *testing.T) {
	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWeChatNotifier(WeChatConfig{WebhookURL: server.URL})
	if err := n.Send("## 测试报告"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if payload["msgtype"] != "markdown" {
		t.Errorf("Expected markdown msgtype, got %v", payload["msgtype"])
	}
	md := payload["markdown"].(map[string]interface{})
	if md["content"] != "## 测试报告" {
		t.Errorf("Unexpected content: %v", md["content"])
	}
}

func TestWeChatNotifierRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWeChatNotifier(WeChatConfig{WebhookURL: server.URL})
	if err := n.Send("x"); err == nil {
		t.Error("Expected an error for a non-200 response")
	}
}

func TestWeChatNotifierDisabled(t *testing.T) {
	n := NewWeChatNotifier(WeChatConfig{})
	if n.IsEnabled() {
		t.Error("Notifier without a webhook URL should be disabled")
	}
	if err := n.Send("x"); err != nil {
		t.Errorf("Disabled notifier should no-op, got %v", err)
	}
}

func TestCustomWebhookNotifier(t *testing.T) {
	var gotAuth string
	var gotMessage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		gotMessage = payload["message"]
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewCustomWebhookNotifier(CustomWebhookConfig{
		URLs:        server.URL + " , ",
		BearerToken: "secret-token",
	})
	if !n.IsEnabled() {
		t.Fatal("Notifier with a URL should be enabled")
	}
	if err := n.Send("hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Expected bearer header, got %q", gotAuth)
	}
	if gotMessage != "hello" {
		t.Errorf("Expected message forwarded, got %q", gotMessage)
	}
}

func TestCustomWebhookPartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	n := NewCustomWebhookNotifier(CustomWebhookConfig{URLs: good.URL + "," + bad.URL})
	if err := n.Send("x"); err == nil {
		t.Error("One failing URL should fail the send")
	}
}

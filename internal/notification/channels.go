package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Per-channel payload caps in bytes. WeChat Work and Telegram enforce hard
// API limits; the Feishu figure keeps documents renderable.
const (
	DefaultWeChatMaxBytes   = 4000
	DefaultFeishuMaxBytes   = 20000
	DefaultTelegramMaxBytes = 4096
	DefaultPushoverMaxBytes = 1024
)

// =============================================================================
// WECHAT WORK NOTIFIER
// =============================================================================

// WeChatNotifier posts markdown to a WeChat Work group robot webhook.
type WeChatNotifier struct {
	webhookURL string
	maxBytes   int
	client     *http.Client
}

type WeChatConfig struct {
	WebhookURL string
	MaxBytes   int
}

func NewWeChatNotifier(config WeChatConfig) *WeChatNotifier {
	maxBytes := config.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultWeChatMaxBytes
	}
	return &WeChatNotifier{
		webhookURL: config.WebhookURL,
		maxBytes:   maxBytes,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WeChatNotifier) Name() string {
	return ChannelWeChat
}

func (w *WeChatNotifier) IsEnabled() bool {
	return w.webhookURL != ""
}

func (w *WeChatNotifier) Send(content string) error {
	if !w.IsEnabled() {
		return nil
	}

	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]interface{}{
			"content": truncateUTF8(content, w.maxBytes),
		},
	}
	return postJSON(w.client, w.webhookURL, payload, nil, "wechat")
}

// =============================================================================
// FEISHU NOTIFIER
// =============================================================================

// FeishuNotifier posts plain text to a Feishu group bot webhook.
type FeishuNotifier struct {
	webhookURL string
	maxBytes   int
	client     *http.Client
}

type FeishuConfig struct {
	WebhookURL string
	MaxBytes   int
}

func NewFeishuNotifier(config FeishuConfig) *FeishuNotifier {
	maxBytes := config.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultFeishuMaxBytes
	}
	return &FeishuNotifier{
		webhookURL: config.WebhookURL,
		maxBytes:   maxBytes,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *FeishuNotifier) Name() string {
	return ChannelFeishu
}

func (f *FeishuNotifier) IsEnabled() bool {
	return f.webhookURL != ""
}

func (f *FeishuNotifier) Send(content string) error {
	if !f.IsEnabled() {
		return nil
	}

	payload := map[string]interface{}{
		"msg_type": "text",
		"content": map[string]interface{}{
			"text": truncateUTF8(content, f.maxBytes),
		},
	}
	return postJSON(f.client, f.webhookURL, payload, nil, "feishu")
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramNotifier sends through the Bot API with Markdown parsing.
type TelegramNotifier struct {
	botToken string
	chatID   string
	maxBytes int
	client   *http.Client
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	MaxBytes int
}

func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	maxBytes := config.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultTelegramMaxBytes
	}
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		maxBytes: maxBytes,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return ChannelTelegram
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.botToken != "" && t.chatID != ""
}

func (t *TelegramNotifier) Send(content string) error {
	if !t.IsEnabled() {
		return nil
	}

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       truncateUTF8(content, t.maxBytes),
		"parse_mode": "Markdown",
	}
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	return postJSON(t.client, endpoint, payload, nil, "telegram")
}

// =============================================================================
// PUSHOVER NOTIFIER
// =============================================================================

// PushoverNotifier form-posts to the Pushover message API.
type PushoverNotifier struct {
	userKey  string
	apiToken string
	maxBytes int
	client   *http.Client
}

type PushoverConfig struct {
	UserKey  string
	APIToken string
	MaxBytes int
}

func NewPushoverNotifier(config PushoverConfig) *PushoverNotifier {
	maxBytes := config.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultPushoverMaxBytes
	}
	return &PushoverNotifier{
		userKey:  config.UserKey,
		apiToken: config.APIToken,
		maxBytes: maxBytes,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *PushoverNotifier) Name() string {
	return ChannelPushover
}

func (p *PushoverNotifier) IsEnabled() bool {
	return p.userKey != "" && p.apiToken != ""
}

func (p *PushoverNotifier) Send(content string) error {
	if !p.IsEnabled() {
		return nil
	}

	form := url.Values{
		"user":    {p.userKey},
		"token":   {p.apiToken},
		"message": {truncateUTF8(content, p.maxBytes)},
		"title":   {"股票分析报告"},
	}
	resp, err := p.client.PostForm("https://api.pushover.net/1/messages.json", form)
	if err != nil {
		return fmt.Errorf("failed to send pushover message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushover API returned status %d", resp.StatusCode)
	}
	return nil
}

// =============================================================================
// CUSTOM WEBHOOK NOTIFIER
// =============================================================================

// CustomWebhookNotifier posts {"message": ...} to a comma-separated list
// of URLs, optionally with a bearer token. Every URL must accept the post
// for the send to count as success.
type CustomWebhookNotifier struct {
	urls        []string
	bearerToken string
	client      *http.Client
}

type CustomWebhookConfig struct {
	URLs        string // comma separated
	BearerToken string
}

func NewCustomWebhookNotifier(config CustomWebhookConfig) *CustomWebhookNotifier {
	var urls []string
	for _, u := range strings.Split(config.URLs, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return &CustomWebhookNotifier{
		urls:        urls,
		bearerToken: config.BearerToken,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *CustomWebhookNotifier) Name() string {
	return ChannelCustom
}

func (c *CustomWebhookNotifier) IsEnabled() bool {
	return len(c.urls) > 0
}

func (c *CustomWebhookNotifier) Send(content string) error {
	if !c.IsEnabled() {
		return nil
	}

	var headers map[string]string
	if c.bearerToken != "" {
		headers = map[string]string{"Authorization": "Bearer " + c.bearerToken}
	}

	payload := map[string]interface{}{"message": content}
	var lastErr error
	for _, endpoint := range c.urls {
		if err := postJSON(c.client, endpoint, payload, headers, "custom webhook"); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// postJSON marshals payload, posts it and treats any non-200 as failure.
func postJSON(client *http.Client, endpoint string, payload map[string]interface{}, headers map[string]string, label string) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", label, err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", label, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s message: %w", label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API returned status %d", label, resp.StatusCode)
	}
	return nil
}

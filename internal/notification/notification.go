package notification

import (
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Channel display names. These appear in logs, the fan-out result map and
// the web UI, so they stay in the product language.
const (
	ChannelWeChat   = "企业微信"
	ChannelFeishu   = "飞书"
	ChannelTelegram = "Telegram"
	ChannelEmail    = "邮件"
	ChannelPushover = "Pushover"
	ChannelCustom   = "自定义Webhook"
)

// Notifier is one delivery channel. A notifier constructed without
// credentials reports IsEnabled false and is skipped by the manager.
type Notifier interface {
	Send(content string) error
	Name() string
	IsEnabled() bool
}

// Manager fans one message out to every enabled channel concurrently. A
// failing channel never blocks or cancels the others.
type Manager struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		logger:    logger.With().Str("component", "notification").Logger(),
	}
}

// AddNotifier registers a channel. Disabled channels may be added freely;
// they are filtered at send time.
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Available reports whether at least one channel has credentials.
func (m *Manager) Available() bool {
	return len(m.enabled()) > 0
}

// ChannelNames lists the enabled channels for logs and the UI.
func (m *Manager) ChannelNames() []string {
	var names []string
	for _, n := range m.enabled() {
		names = append(names, n.Name())
	}
	return names
}

// Send pushes content to all enabled channels and returns the per-channel
// outcome; a nil map value means that channel succeeded. With no channels
// configured the map is empty and a warning is logged.
func (m *Manager) Send(content string) map[string]error {
	enabled := m.enabled()
	results := make(map[string]error, len(enabled))
	if len(enabled) == 0 {
		m.logger.Warn().Msg("no notification channel configured, skipping push")
		return results
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, n := range enabled {
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			err := n.Send(content)
			mu.Lock()
			results[n.Name()] = err
			mu.Unlock()
			if err != nil {
				m.logger.Error().Err(err).Str("channel", n.Name()).Msg("notification send failed")
			}
		}(n)
	}
	wg.Wait()
	return results
}

// SendSimple prefixes a title line before fanning out.
func (m *Manager) SendSimple(title, content string) map[string]error {
	return m.Send(title + "\n\n" + content)
}

// AllOK reports whether every channel in a Send result succeeded. An
// empty result (no channels) counts as failure.
func AllOK(results map[string]error) bool {
	if len(results) == 0 {
		return false
	}
	for _, err := range results {
		if err != nil {
			return false
		}
	}
	return true
}

func (m *Manager) enabled() []Notifier {
	var out []Notifier
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			out = append(out, n)
		}
	}
	return out
}

const truncationMark = "\n...(消息过长已截断)"

// truncateUTF8 caps content at maxBytes without splitting a rune, then
// appends the truncation marker. maxBytes <= 0 disables the cap.
func truncateUTF8(content string, maxBytes int) string {
	if maxBytes <= 0 || len(content) <= maxBytes {
		return content
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + truncationMark
}

package notification

import (
	"crypto/tls"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

const emailSubject = "A股自选股智能分析报告"

// smtpEndpoint describes a provider's mail submission service.
type smtpEndpoint struct {
	host string
	port int
	ssl  bool // implicit TLS on connect; false means STARTTLS upgrade
}

var smtpEndpoints = map[string]smtpEndpoint{
	"qq.com":      {"smtp.qq.com", 465, true},
	"foxmail.com": {"smtp.qq.com", 465, true},
	"163.com":     {"smtp.163.com", 465, true},
	"126.com":     {"smtp.126.com", 465, true},
	"gmail.com":   {"smtp.gmail.com", 587, false},
	"outlook.com": {"smtp-mail.outlook.com", 587, false},
	"hotmail.com": {"smtp-mail.outlook.com", 587, false},
	"live.com":    {"smtp-mail.outlook.com", 587, false},
	"sina.com":    {"smtp.sina.com", 465, true},
	"sohu.com":    {"smtp.sohu.com", 465, true},
	"aliyun.com":  {"smtp.aliyun.com", 465, true},
	"139.com":     {"smtp.139.com", 465, true},
}

// =============================================================================
// EMAIL NOTIFIER
// =============================================================================

// EmailNotifier delivers the report over SMTP. The endpoint is selected by
// the sender's domain; unknown domains assume smtp.<domain>:465 with
// implicit TLS. Without explicit receivers the sender mails itself.
type EmailNotifier struct {
	sender    string
	password  string
	receivers []string
}

type EmailConfig struct {
	Sender    string
	Password  string
	Receivers []string
}

func NewEmailNotifier(config EmailConfig) *EmailNotifier {
	receivers := config.Receivers
	if len(receivers) == 0 && config.Sender != "" {
		receivers = []string{config.Sender}
	}
	return &EmailNotifier{
		sender:    config.Sender,
		password:  config.Password,
		receivers: receivers,
	}
}

func (e *EmailNotifier) Name() string {
	return ChannelEmail
}

func (e *EmailNotifier) IsEnabled() bool {
	return e.sender != "" && e.password != "" && len(e.receivers) > 0
}

func (e *EmailNotifier) Send(content string) error {
	if !e.IsEnabled() {
		return nil
	}

	endpoint := endpointFor(e.sender)
	addr := fmt.Sprintf("%s:%d", endpoint.host, endpoint.port)

	from := mime.BEncoding.Encode("UTF-8", "股票分析系统") + " <" + e.sender + ">"
	msg := []byte(
		"From: " + from + "\r\n" +
			"To: " + strings.Join(e.receivers, ", ") + "\r\n" +
			"Subject: " + mime.BEncoding.Encode("UTF-8", emailSubject) + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"\r\n" +
			content + "\r\n",
	)

	auth := smtp.PlainAuth("", e.sender, e.password, endpoint.host)
	if endpoint.ssl {
		return e.sendTLS(addr, endpoint.host, auth, msg)
	}
	// smtp.SendMail upgrades to STARTTLS when the server offers it.
	if err := smtp.SendMail(addr, auth, e.sender, e.receivers, msg); err != nil {
		return fmt.Errorf("SMTP error: %w", err)
	}
	return nil
}

func endpointFor(sender string) smtpEndpoint {
	domain := sender
	if at := strings.LastIndex(sender, "@"); at >= 0 {
		domain = sender[at+1:]
	}
	if ep, ok := smtpEndpoints[domain]; ok {
		return ep
	}
	return smtpEndpoint{host: "smtp." + domain, port: 465, ssl: true}
}

// sendTLS handles implicit-TLS submission, which smtp.SendMail cannot.
func (e *EmailNotifier) sendTLS(addr, host string, auth smtp.Auth, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err = client.Mail(e.sender); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range e.receivers {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to add recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

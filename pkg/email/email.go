package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"golang.org/x/time/rate"

	"github.com/py-sit/skyalert/internal/config"
	"github.com/py-sit/skyalert/internal/logging"
	"github.com/py-sit/skyalert/internal/models"
)

const dialTimeout = 30 * time.Second

// Client sends alert emails over SMTP. Port 465 uses implicit TLS, 587
// upgrades with STARTTLS, anything else stays plain.
type Client struct {
	server        string
	port          int
	username      string
	password      string
	sender        string
	fromName      string
	attachmentDir string
	limiter       *rate.Limiter
	logger        *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) *Client {
	sender := cfg.Email.Sender
	if sender == "" {
		sender = cfg.Email.Username
	}
	perSecond := cfg.Email.RateLimit
	if perSecond <= 0 {
		perSecond = 10
	}
	return &Client{
		server:        cfg.Email.SMTPServer,
		port:          cfg.Email.SMTPPort,
		username:      cfg.Email.Username,
		password:      cfg.Email.Password,
		sender:        sender,
		fromName:      cfg.Email.FromName,
		attachmentDir: cfg.Email.AttachmentDir,
		limiter:       rate.NewLimiter(rate.Limit(float64(perSecond)), perSecond),
		logger:        logger,
	}
}

// Send delivers one rendered alert email.
func (c *Client) Send(ctx context.Context, payload models.EmailPayload) error {
	if !strings.Contains(payload.ToEmail, "@") {
		return fmt.Errorf("invalid email address: %s", payload.ToEmail)
	}
	if c.server == "" {
		return fmt.Errorf("smtp server not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limit exceeded: %w", err)
	}

	msg, err := c.buildMessage(payload)
	if err != nil {
		return err
	}

	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Quit() }()

	if err := c.authenticate(client); err != nil {
		return err
	}
	if err := client.Mail(c.sender); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(payload.ToEmail); err != nil {
		return fmt.Errorf("smtp RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close failed: %w", err)
	}

	c.logger.Infof("Email sent to %s: %s", payload.ToEmail, payload.Subject)
	return nil
}

func (c *Client) connect(ctx context.Context) (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.server, c.port)
	dialer := &net.Dialer{Timeout: dialTimeout}

	var conn net.Conn
	var err error
	if c.port == 465 {
		tlsCfg := &tls.Config{ServerName: c.server}
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial failed: %w", err)
	}

	client, err := smtp.NewClient(conn, c.server)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp client failed: %w", err)
	}

	if c.port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: c.server}); err != nil {
				_ = client.Quit()
				return nil, fmt.Errorf("smtp starttls failed: %w", err)
			}
		}
	}
	return client, nil
}

// authenticate logs in when credentials are configured and the server
// advertises AUTH. Relay hosts without AUTH are accepted as-is.
func (c *Client) authenticate(client *smtp.Client) error {
	if c.username == "" || c.password == "" {
		return nil
	}
	if ok, _ := client.Extension("AUTH"); !ok {
		c.logger.Debugf("SMTP server offers no AUTH, sending unauthenticated")
		return nil
	}
	auth := smtp.PlainAuth("", c.username, c.password, c.server)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}
	return nil
}

// buildMessage assembles the MIME message: an HTML body plus any template
// attachments that resolve to readable files. A missing attachment is
// logged and skipped rather than failing the send.
func (c *Client) buildMessage(payload models.EmailPayload) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Name: c.fromName, Address: c.sender}})
	h.SetAddressList("To", []*mail.Address{{Name: payload.ToName, Address: payload.ToEmail}})
	h.SetSubject(payload.Subject)

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}
	var th mail.InlineHeader
	th.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	bw, err := tw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("create body part: %w", err)
	}
	if _, err := io.WriteString(bw, htmlBody(payload.Content)); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	bw.Close()
	tw.Close()

	for _, name := range payload.Attachments {
		path := filepath.Join(c.attachmentDir, filepath.Base(name))
		data, err := os.ReadFile(path)
		if err != nil {
			c.logger.Warnf("Skipping attachment %s: %v", name, err)
			continue
		}
		var ah mail.AttachmentHeader
		ah.SetFilename(filepath.Base(name))
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("create attachment %s: %w", name, err)
		}
		if _, err := aw.Write(data); err != nil {
			return nil, fmt.Errorf("write attachment %s: %w", name, err)
		}
		aw.Close()
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish message: %w", err)
	}
	return buf.Bytes(), nil
}

// htmlBody converts the rendered plain-text content to minimal HTML.
func htmlBody(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\n", "<br>\n")
	return "<html><body>" + content + "</body></html>"
}

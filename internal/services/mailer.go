package services

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"log"
	"net/smtp"
	"path/filepath"
	"strings"
	"sync"
	texttemplate "text/template"

	"comentum/internal/config"
	"comentum/internal/models"

	"github.com/google/uuid"
)

// Message is a fully-rendered, self-contained outbound email.
type Message struct {
	ID       string
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// SendFunc hands a message to the transport. The default sends over SMTP;
// tests inject a recorder.
type SendFunc func(*Message) error

// Mailer renders and dispatches emails on a background worker pool. The
// request path only enqueues; Close drains whatever is still queued.
type Mailer struct {
	cfg          *config.Config
	send         SendFunc
	templatesDir string

	queue chan *Message
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewMailer(cfg *config.Config, send SendFunc) *Mailer {
	m := &Mailer{
		cfg:          cfg,
		send:         send,
		templatesDir: filepath.Join("web", "templates", "email"),
		queue:        make(chan *Message, 256),
	}
	if m.send == nil {
		if cfg.SMTPHost == "" || cfg.FromEmail == "" {
			log.Println("Mailer disabled: missing SMTP configuration")
			m.send = func(*Message) error { return nil }
		} else {
			m.send = m.sendSMTP
		}
	}
	return m
}

// Start launches the worker pool.
func (m *Mailer) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
}

func (m *Mailer) worker() {
	defer m.wg.Done()
	for msg := range m.queue {
		if err := m.send(msg); err != nil {
			// failures are logged and dropped, there is no retry
			log.Printf("Failed to send email %s to %v: %v", msg.ID, msg.To, err)
		}
	}
}

// Enqueue hands a message to the workers without blocking the caller. A
// full queue drops the message with a log line.
func (m *Mailer) Enqueue(msg *Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		log.Printf("Mailer closed, dropping email %s to %v", msg.ID, msg.To)
		return
	}
	select {
	case m.queue <- msg:
	default:
		log.Printf("Mail queue full, dropping email %s to %v", msg.ID, msg.To)
	}
}

// Close stops accepting messages and waits for the workers to drain the
// queue.
func (m *Mailer) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()
	m.wg.Wait()
}

// emailContext is the data bound into every email template.
type emailContext struct {
	Comment         *models.Comment
	Username        string
	ThreadName      string
	Receiver        string
	ConfirmationURL string
	Contact         string
	Site            string
	SiteURL         string
}

// SendConfirmationRequest mails the anonymous submitter a signed
// confirmation link.
func (m *Mailer) SendConfirmationRequest(comment *models.Comment, username, token string, api bool) {
	path := "/comment/confirm/" + token + "/"
	if api {
		path = "/api/comments/confirm/" + token + "/"
	}
	ctx := emailContext{
		Comment:         comment,
		Username:        username,
		ConfirmationURL: m.cfg.SiteURL + path,
		Contact:         m.cfg.ContactEmail,
		Site:            m.cfg.SiteName,
		SiteURL:         m.cfg.SiteURL,
	}
	body, htmlBody, err := m.render("confirmation_request", ctx)
	if err != nil {
		log.Printf("Error rendering confirmation email: %v", err)
		return
	}
	m.Enqueue(&Message{
		ID:       uuid.NewString(),
		To:       []string{comment.Email},
		Subject:  "Comment Confirmation Request",
		Body:     body,
		HTMLBody: htmlBody,
	})
}

// SendNotificationToFollowers fans one message out per follower of the
// comment's thread. The caller has already excluded the author.
func (m *Mailer) SendNotificationToFollowers(comment *models.Comment, username, threadName string, followers []models.Follower) {
	subject := fmt.Sprintf("%s added comment to %q", username, threadName)
	for _, follower := range followers {
		ctx := emailContext{
			Comment:    comment,
			Username:   username,
			ThreadName: threadName,
			Receiver:   follower.Username,
			Contact:    m.cfg.ContactEmail,
			Site:       m.cfg.SiteName,
			SiteURL:    m.cfg.SiteURL,
		}
		body, htmlBody, err := m.render("notification", ctx)
		if err != nil {
			log.Printf("Error rendering notification email: %v", err)
			return
		}
		m.Enqueue(&Message{
			ID:       uuid.NewString(),
			To:       []string{follower.Email},
			Subject:  subject,
			Body:     body,
			HTMLBody: htmlBody,
		})
	}
}

// render produces the text body and, when send_html_email is set, the HTML
// alternative. Templates on disk override the compiled-in defaults.
func (m *Mailer) render(name string, ctx emailContext) (string, string, error) {
	text, err := m.renderText(name, ctx)
	if err != nil {
		return "", "", err
	}
	if !m.cfg.SendHTMLEmail {
		return text, "", nil
	}
	html, err := m.renderHTML(name, ctx)
	if err != nil {
		return "", "", err
	}
	return text, html, nil
}

func (m *Mailer) renderText(name string, ctx emailContext) (string, error) {
	t, err := texttemplate.ParseFiles(filepath.Join(m.templatesDir, name+".txt"))
	if err != nil {
		t, err = texttemplate.New(name).Parse(defaultTextTemplates[name])
		if err != nil {
			return "", err
		}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m *Mailer) renderHTML(name string, ctx emailContext) (string, error) {
	t, err := htmltemplate.ParseFiles(filepath.Join(m.templatesDir, name+".html"))
	if err != nil {
		t, err = htmltemplate.New(name).Parse(defaultHTMLTemplates[name])
		if err != nil {
			return "", err
		}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sendSMTP assembles the MIME message and hands it to net/smtp. An HTML
// alternative turns the payload into multipart/alternative.
func (m *Mailer) sendSMTP(msg *Message) error {
	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.cfg.SiteName, m.cfg.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")

	if msg.HTMLBody == "" {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(msg.Body)
	} else {
		boundary := "=_comentum_" + msg.ID
		fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s\r\n", boundary, msg.Body)
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s\r\n", boundary, msg.HTMLBody)
		fmt.Fprintf(&b, "--%s--\r\n", boundary)
	}

	return smtp.SendMail(addr, auth, m.cfg.FromEmail, msg.To, []byte(b.String()))
}

var defaultTextTemplates = map[string]string{
	"confirmation_request": `Hello,

You (or someone on your behalf) posted the following comment on {{.Site}}:

    {{.Comment.Content}}

Please confirm the comment by opening this link:

    {{.ConfirmationURL}}

If you did not post this comment, ignore this message and it will be
discarded. Questions? Contact {{.Contact}}.
`,
	"notification": `Hello {{.Receiver}},

{{.Username}} added a comment to "{{.ThreadName}}" on {{.Site}}:

    {{.Comment.Content}}

You receive this message because you subscribed to this thread.
Questions? Contact {{.Contact}}.
`,
}

var defaultHTMLTemplates = map[string]string{
	"confirmation_request": `<p>Hello,</p>
<p>You (or someone on your behalf) posted the following comment on {{.Site}}:</p>
<blockquote>{{.Comment.Content}}</blockquote>
<p><a href="{{.ConfirmationURL}}">Confirm the comment</a></p>
<p>If you did not post this comment, ignore this message and it will be
discarded. Questions? Contact {{.Contact}}.</p>
`,
	"notification": `<p>Hello {{.Receiver}},</p>
<p>{{.Username}} added a comment to &quot;{{.ThreadName}}&quot; on {{.Site}}:</p>
<blockquote>{{.Comment.Content}}</blockquote>
<p>You receive this message because you subscribed to this thread.
Questions? Contact {{.Contact}}.</p>
`,
}

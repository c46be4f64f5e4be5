package tools

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

// GmailAgent sends email over SMTP with an app password. When delivery
// fails the message is queued to a local outbox instead of being lost.
type GmailAgent struct {
	credentials contracts.APICredentials
	outboxDir   string
}

func NewGmailAgent(credentials contracts.APICredentials, dataDir string) (*GmailAgent, error) {
	outboxDir := filepath.Join(dataDir, "outbox")
	if err := os.MkdirAll(outboxDir, 0755); err != nil {
		return nil, err
	}
	return &GmailAgent{credentials: credentials, outboxDir: outboxDir}, nil
}

func (g *GmailAgent) Type() contracts.ToolType {
	return contracts.ToolGmail
}

func (g *GmailAgent) Execute(ctx context.Context, action string, parameters map[string]any) contracts.ToolExecution {
	switch action {
	case "send_email":
		return g.sendEmail(ctx, parameters)
	default:
		return failedExecution(contracts.ToolGmail, action, parameters, fmt.Sprintf("Unknown Gmail action: %s", action))
	}
}

func (g *GmailAgent) sendEmail(ctx context.Context, parameters map[string]any) contracts.ToolExecution {
	executionID := newExecutionID(contracts.ToolGmail)

	for _, required := range []string{"to", "subject", "body"} {
		if stringParam(parameters, required) == "" {
			return failedExecution(contracts.ToolGmail, "send_email", parameters, "Missing required parameter: "+required)
		}
	}

	from := stringParam(parameters, "from")
	if from == "" {
		from = g.credentials.GmailAddress
	}
	if from == "" {
		return failedExecution(contracts.ToolGmail, "send_email", parameters,
			"Missing sender email address. Provide 'from' or configure GMAIL_SENDER.")
	}

	to := stringParam(parameters, "to")
	cc := addressList(parameters["cc"])
	bcc := addressList(parameters["bcc"])
	recipients := append([]string{to}, cc...)
	recipients = append(recipients, bcc...)

	message := buildMessage(from, to, cc, stringParam(parameters, "subject"), stringParam(parameters, "body"))

	result := map[string]any{
		"message_id": "msg_" + executionID,
		"from":       from,
		"to":         to,
		"subject":    stringParam(parameters, "subject"),
		"sent_at":    time.Now().Format(time.RFC3339),
	}
	if len(cc) > 0 {
		result["cc"] = cc
	}
	if len(bcc) > 0 {
		result["bcc"] = bcc
	}

	var sendErr error
	if g.credentials.HasGmail() {
		sendErr = g.sendViaSMTP(ctx, from, recipients, message)
	} else {
		sendErr = fmt.Errorf("no email transport is configured; provide a Gmail app password")
	}

	if sendErr != nil {
		// Queue to the outbox rather than dropping the message.
		outboxPath, writeErr := g.writeOutbox(executionID, message)
		result["delivery_status"] = "queued"
		result["transport"] = "outbox"
		result["note"] = sendErr.Error()
		if writeErr == nil {
			result["outbox_path"] = outboxPath
		}
		return contracts.ToolExecution{
			ExecutionID: executionID,
			ToolType:    contracts.ToolGmail,
			Action:      "send_email",
			Parameters:  parameters,
			Success:     false,
			Result:      result,
			Error:       sendErr.Error(),
		}
	}

	result["delivery_status"] = "sent"
	result["transport"] = "smtp"
	return contracts.ToolExecution{
		ExecutionID: executionID,
		ToolType:    contracts.ToolGmail,
		Action:      "send_email",
		Parameters:  parameters,
		Success:     true,
		Result:      result,
	}
}

func (g *GmailAgent) sendViaSMTP(ctx context.Context, from string, recipients []string, message []byte) error {
	addr := fmt.Sprintf("%s:%d", g.credentials.GmailSMTPHost, g.credentials.GmailSMTPPort)

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: g.credentials.GmailSMTPHost}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("SMTP connect failed: %w", err)
	}

	client, err := smtp.NewClient(conn, g.credentials.GmailSMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP handshake failed: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", from, g.credentials.GmailAppPassword, g.credentials.GmailSMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(message); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (g *GmailAgent) writeOutbox(executionID string, message []byte) (string, error) {
	path := filepath.Join(g.outboxDir, fmt.Sprintf("%s_%s.eml", executionID, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, message, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// FlushOutbox retries every queued outbox file. Delivered files are
// removed; undeliverable ones stay for the next pass. Returns how many
// messages were delivered.
func (g *GmailAgent) FlushOutbox(ctx context.Context) (sent int, failed int) {
	if !g.credentials.HasGmail() {
		return 0, 0
	}

	entries, err := os.ReadDir(g.outboxDir)
	if err != nil {
		return 0, 0
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".eml") {
			continue
		}
		path := filepath.Join(g.outboxDir, entry.Name())
		message, err := os.ReadFile(path)
		if err != nil {
			failed++
			continue
		}

		from, recipients := parseEnvelope(message)
		if from == "" {
			from = g.credentials.GmailAddress
		}
		if len(recipients) == 0 {
			failed++
			continue
		}

		if err := g.sendViaSMTP(ctx, from, recipients, message); err != nil {
			failed++
			continue
		}
		_ = os.Remove(path)
		sent++
	}
	return sent, failed
}

// PendingOutbox counts queued messages.
func (g *GmailAgent) PendingOutbox() int {
	entries, err := os.ReadDir(g.outboxDir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".eml") {
			count++
		}
	}
	return count
}

func buildMessage(from, to string, cc []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	if len(cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(cc, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// parseEnvelope recovers the sender and visible recipients from a queued
// message's headers. Bcc recipients are not recorded in the headers and
// are lost on requeue; the primary recipient always survives.
func parseEnvelope(message []byte) (from string, recipients []string) {
	for _, line := range strings.Split(string(message), "\r\n") {
		if line == "" {
			break
		}
		switch {
		case strings.HasPrefix(line, "From: "):
			from = strings.TrimSpace(strings.TrimPrefix(line, "From: "))
		case strings.HasPrefix(line, "To: "), strings.HasPrefix(line, "Cc: "):
			value := strings.TrimSpace(line[strings.Index(line, ":")+1:])
			for _, addr := range strings.Split(value, ",") {
				if addr = strings.TrimSpace(addr); addr != "" {
					recipients = append(recipients, addr)
				}
			}
		}
	}
	return from, recipients
}

func stringParam(parameters map[string]any, key string) string {
	if v, ok := parameters[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// addressList accepts a comma-separated string or a slice of values.
func addressList(v any) []string {
	var out []string
	switch value := v.(type) {
	case string:
		for _, addr := range strings.Split(value, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				out = append(out, addr)
			}
		}
	case []string:
		for _, addr := range value {
			if addr = strings.TrimSpace(addr); addr != "" {
				out = append(out, addr)
			}
		}
	case []any:
		for _, item := range value {
			if addr := strings.TrimSpace(fmt.Sprintf("%v", item)); addr != "" {
				out = append(out, addr)
			}
		}
	}
	return out
}

package mail

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"mime"
	"strings"
)

// Encode renders the message as RFC 2822 and wraps it in the base64url
// framing the Gmail API expects in Message.Raw.
func Encode(msg *Message) (string, error) {
	rendered, err := encodeRFC2822(msg)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString([]byte(rendered)), nil
}

// encodeRFC2822 builds the full RFC 2822 message. The body shape follows
// the content: a bare text or HTML part when only one body is set,
// multipart/alternative when both are set (plain before HTML, so readers
// prefer the richer last part), and multipart/mixed wrapping everything
// when attachments are present.
func encodeRFC2822(msg *Message) (string, error) {
	if len(msg.To) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}
	if msg.TextBody == "" && msg.HTMLBody == "" {
		return "", fmt.Errorf("message body is required")
	}

	var b strings.Builder

	if msg.From != "" {
		b.WriteString("From: ")
		b.WriteString(msg.From)
		b.WriteString("\r\n")
	}

	b.WriteString("To: ")
	b.WriteString(strings.Join(msg.To, ", "))
	b.WriteString("\r\n")

	if len(msg.Cc) > 0 {
		b.WriteString("Cc: ")
		b.WriteString(strings.Join(msg.Cc, ", "))
		b.WriteString("\r\n")
	}

	if len(msg.Bcc) > 0 {
		b.WriteString("Bcc: ")
		b.WriteString(strings.Join(msg.Bcc, ", "))
		b.WriteString("\r\n")
	}

	// Encode for non-ASCII characters like umlauts
	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(msg.Subject))
	b.WriteString("\r\n")

	if msg.InReplyTo != "" {
		b.WriteString("In-Reply-To: ")
		b.WriteString(msg.InReplyTo)
		b.WriteString("\r\n")
	}
	if msg.References != "" {
		b.WriteString("References: ")
		b.WriteString(msg.References)
		b.WriteString("\r\n")
	}

	b.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 {
		writeBody(&b, msg)
		return b.String(), nil
	}

	boundary, err := newBoundary()
	if err != nil {
		return "", err
	}

	b.WriteString("Content-Type: multipart/mixed; boundary=\"")
	b.WriteString(boundary)
	b.WriteString("\"\r\n\r\n")

	b.WriteString("--")
	b.WriteString(boundary)
	b.WriteString("\r\n")
	writeBody(&b, msg)
	b.WriteString("\r\n")

	for _, att := range msg.Attachments {
		if err := writeAttachment(&b, boundary, att); err != nil {
			return "", err
		}
	}

	b.WriteString("--")
	b.WriteString(boundary)
	b.WriteString("--\r\n")

	return b.String(), nil
}

// writeBody writes the Content-Type header and body content for the text
// and/or HTML parts. Used both as the top-level body and as the first part
// inside a multipart/mixed wrapper.
func writeBody(b *strings.Builder, msg *Message) {
	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		writeAlternative(b, msg.TextBody, msg.HTMLBody)
	case msg.HTMLBody != "":
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(msg.HTMLBody)
	default:
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(msg.TextBody)
	}
}

func writeAlternative(b *strings.Builder, text, html string) {
	// Boundary collisions with message content are vanishingly unlikely
	// with 16 random bytes; errors only surface if the entropy source fails.
	boundary, err := newBoundary()
	if err != nil {
		boundary = "alt-boundary-fallback"
	}

	b.WriteString("Content-Type: multipart/alternative; boundary=\"")
	b.WriteString(boundary)
	b.WriteString("\"\r\n\r\n")

	b.WriteString("--")
	b.WriteString(boundary)
	b.WriteString("\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(text)
	b.WriteString("\r\n")

	b.WriteString("--")
	b.WriteString(boundary)
	b.WriteString("\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")

	b.WriteString("--")
	b.WriteString(boundary)
	b.WriteString("--\r\n")
}

func writeAttachment(b *strings.Builder, boundary string, att Attachment) error {
	if att.Filename == "" {
		return fmt.Errorf("attachment filename is required")
	}

	mimeType := att.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	b.WriteString("--")
	b.WriteString(boundary)
	b.WriteString("\r\n")
	b.WriteString("Content-Type: ")
	b.WriteString(mimeType)
	b.WriteString("\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString("Content-Disposition: attachment; filename=\"")
	b.WriteString(att.Filename)
	b.WriteString("\"\r\n\r\n")
	b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(att.Content)))
	b.WriteString("\r\n")
	return nil
}

// encodeRFC2047 encodes a string for use in email headers according to
// RFC 2047. ASCII-only values pass through unchanged.
func encodeRFC2047(s string) string {
	return mime.BEncoding.Encode("UTF-8", s)
}

func newBoundary() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate MIME boundary: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// wrapBase64 folds base64 content to 76-character lines per RFC 2045.
func wrapBase64(s string) string {
	const lineLen = 76
	if len(s) <= lineLen {
		return s
	}
	var b strings.Builder
	for len(s) > lineLen {
		b.WriteString(s[:lineLen])
		b.WriteString("\r\n")
		s = s[lineLen:]
	}
	b.WriteString(s)
	return b.String()
}

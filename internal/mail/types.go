package mail

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// Attachment is one file to carry in an outgoing message.
type Attachment struct {
	// Filename as presented to the recipient. Always a base name; any
	// directory components from the source path are stripped.
	Filename string
	// MIMEType of the content, application/octet-stream when unknown.
	MIMEType string
	// Content is the raw file data.
	Content []byte
}

// Message is an outgoing email prior to wire encoding.
type Message struct {
	// From is optional; Gmail stamps the authenticated address when the
	// header is absent.
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string

	// TextBody and HTMLBody select the body shape: text only, HTML only,
	// or both as multipart/alternative.
	TextBody string
	HTMLBody string

	Attachments []Attachment

	// InReplyTo and References thread the message under an existing
	// conversation. Both carry RFC 2822 Message-ID values.
	InReplyTo  string
	References string
}

// LoadAttachment reads a local file into an Attachment. The MIME type is
// guessed from the file extension, falling back to application/octet-stream.
func LoadAttachment(path string) (Attachment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to read attachment %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return Attachment{
		Filename: filepath.Base(path),
		MIMEType: mimeType,
		Content:  content,
	}, nil
}

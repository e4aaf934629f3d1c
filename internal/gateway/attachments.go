package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imthebreezy247/gmail-mcp/internal/logging"
	"github.com/imthebreezy247/gmail-mcp/internal/mail"
)

// MaxAttachmentSize caps downloads at Gmail's own attachment limit.
const MaxAttachmentSize = 25 * 1024 * 1024

// ListAttachments enumerates the downloadable attachments of a message.
func (c *Client) ListAttachments(ctx context.Context, messageID string) (refs []mail.AttachmentRef, err error) {
	const op = "list_attachments"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if messageID == "" {
		return nil, validationErr(op, "message ID is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	m, err := c.svc.Users.Messages.Get(userID, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, messageID, err)
	}
	return mail.CollectAttachments(m.Payload), nil
}

// DownloadResult reports where an attachment landed.
type DownloadResult struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// DownloadAttachment fetches attachment content and writes it under dir.
// When filename is empty the name recorded on the message part is used.
// The file is written to a temporary name and renamed into place, so a
// failed download never leaves a partial file behind.
func (c *Client) DownloadAttachment(ctx context.Context, messageID, attachmentID, dir, filename string) (res *DownloadResult, err error) {
	const op = "download_attachment"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if messageID == "" {
		return nil, validationErr(op, "message ID is required")
	}
	if attachmentID == "" {
		return nil, validationErr(op, "attachment ID is required")
	}
	if dir == "" {
		return nil, validationErr(op, "target directory is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	if filename == "" {
		refs, err := c.ListAttachments(ctx, messageID)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			if ref.AttachmentID == attachmentID {
				filename = ref.Filename
				break
			}
		}
		if filename == "" {
			return nil, validationErr(op, "attachment %s not found on message %s", attachmentID, messageID)
		}
	}
	filename = SanitizeFilename(filename)

	att, err := c.svc.Users.Messages.Attachments.Get(userID, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, attachmentID, err)
	}
	if att.Size > MaxAttachmentSize {
		return nil, validationErr(op, "attachment size %d exceeds limit of %d bytes", att.Size, MaxAttachmentSize)
	}

	content, err := mail.DecodeBody(att.Data)
	if err != nil {
		return nil, &Error{Kind: KindRemoteRejected, Op: op, Ref: attachmentID, Err: err}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, localErr(op, dir, fmt.Errorf("failed to create target directory: %w", err))
	}

	target := filepath.Join(dir, filename)
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return nil, localErr(op, dir, fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, localErr(op, target, fmt.Errorf("failed to write attachment: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, localErr(op, target, fmt.Errorf("failed to close attachment file: %w", err))
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return nil, localErr(op, target, fmt.Errorf("failed to move attachment into place: %w", err))
	}

	c.logger.Info("attachment downloaded",
		logging.Operation(op),
		logging.Account(c.account))

	return &DownloadResult{
		Path:     target,
		Filename: filename,
		Size:     int64(len(content)),
	}, nil
}

// SanitizeFilename strips path separators and traversal sequences so a
// remote-controlled filename can only name a file inside the target
// directory.
func SanitizeFilename(filename string) string {
	s := strings.ReplaceAll(filename, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "..", "_")
	return s
}

package mail

import (
	"encoding/base64"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// AttachmentRef identifies a downloadable attachment inside a message
// part tree without carrying its content.
type AttachmentRef struct {
	PartID       string `json:"partId"`
	Filename     string `json:"filename"`
	MIMEType     string `json:"mimeType"`
	AttachmentID string `json:"attachmentId"`
	Size         int64  `json:"size"`
}

// HeaderValue finds a header in a message part by case-insensitive name.
// Returns the empty string when absent.
func HeaderValue(part *gmail.MessagePart, name string) string {
	if part == nil {
		return ""
	}
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// ExtractBody walks the part tree and returns the decoded text/plain and
// text/html bodies, whichever are present. Parts that fail to decode are
// skipped; a message with an undecodable preferred part still yields the
// other representation.
func ExtractBody(payload *gmail.MessagePart) (text, html string) {
	if payload == nil {
		return "", ""
	}

	// Single-part messages carry the body directly on the payload.
	if len(payload.Parts) == 0 && payload.Body != nil && payload.Body.Data != "" {
		decoded, err := DecodeBody(payload.Body.Data)
		if err != nil {
			return "", ""
		}
		if strings.HasPrefix(payload.MimeType, "text/html") {
			return "", string(decoded)
		}
		return string(decoded), ""
	}

	// Iterative walk; Gmail nests parts arbitrarily deep for
	// multipart/mixed around multipart/alternative.
	stack := []*gmail.MessagePart{payload}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if part.Body != nil && part.Body.Data != "" && part.Filename == "" {
			decoded, err := DecodeBody(part.Body.Data)
			if err == nil {
				switch {
				case strings.HasPrefix(part.MimeType, "text/plain") && text == "":
					text = string(decoded)
				case strings.HasPrefix(part.MimeType, "text/html") && html == "":
					html = string(decoded)
				}
			}
		}

		stack = append(stack, part.Parts...)
	}
	return text, html
}

// PreferredBody returns the text/plain body when present, otherwise the
// text/html body.
func PreferredBody(payload *gmail.MessagePart) string {
	text, html := ExtractBody(payload)
	if text != "" {
		return text
	}
	return html
}

// CollectAttachments walks the part tree and lists every part that carries
// a filename and a retrievable body.
func CollectAttachments(payload *gmail.MessagePart) []AttachmentRef {
	if payload == nil {
		return nil
	}

	var refs []AttachmentRef
	stack := []*gmail.MessagePart{payload}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if part.Filename != "" && part.Body != nil {
			refs = append(refs, AttachmentRef{
				PartID:       part.PartId,
				Filename:     part.Filename,
				MIMEType:     part.MimeType,
				AttachmentID: part.Body.AttachmentId,
				Size:         part.Body.Size,
			})
		}

		stack = append(stack, part.Parts...)
	}
	return refs
}

// DecodeBody decodes Gmail body data. The API documents URL-safe base64,
// but some payloads arrive in standard encoding, so fall back before
// giving up.
func DecodeBody(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	if decoded, rawErr := base64.RawURLEncoding.DecodeString(data); rawErr == nil {
		return decoded, nil
	}
	if decoded, stdErr := base64.StdEncoding.DecodeString(data); stdErr == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("failed to decode body data: %w", err)
}

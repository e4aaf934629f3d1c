package mail

import (
	"encoding/base64"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
)

func b64url(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestHeaderValue(t *testing.T) {
	part := &gmail.MessagePart{
		Headers: []*gmail.MessagePartHeader{
			{Name: "From", Value: "alice@example.com"},
			{Name: "Message-ID", Value: "<abc@mail.example.com>"},
		},
	}

	tests := []struct {
		name   string
		lookup string
		want   string
	}{
		{"exact match", "From", "alice@example.com"},
		{"case insensitive", "message-id", "<abc@mail.example.com>"},
		{"absent header", "Reply-To", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeaderValue(part, tt.lookup); got != tt.want {
				t.Errorf("HeaderValue(%q) = %q, want %q", tt.lookup, got, tt.want)
			}
		})
	}

	if got := HeaderValue(nil, "From"); got != "" {
		t.Errorf("HeaderValue(nil) = %q, want empty", got)
	}
}

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name     string
		payload  *gmail.MessagePart
		wantText string
		wantHTML string
	}{
		{
			name:    "nil payload",
			payload: nil,
		},
		{
			name: "single part plain",
			payload: &gmail.MessagePart{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: b64url("hello")},
			},
			wantText: "hello",
		},
		{
			name: "single part html",
			payload: &gmail.MessagePart{
				MimeType: "text/html",
				Body:     &gmail.MessagePartBody{Data: b64url("<p>hello</p>")},
			},
			wantHTML: "<p>hello</p>",
		},
		{
			name: "multipart alternative",
			payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "text/plain",
						Body:     &gmail.MessagePartBody{Data: b64url("plain body")},
					},
					{
						MimeType: "text/html",
						Body:     &gmail.MessagePartBody{Data: b64url("<p>html body</p>")},
					},
				},
			},
			wantText: "plain body",
			wantHTML: "<p>html body</p>",
		},
		{
			name: "alternative nested inside mixed",
			payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "multipart/alternative",
						Parts: []*gmail.MessagePart{
							{
								MimeType: "text/plain",
								Body:     &gmail.MessagePartBody{Data: b64url("deep plain")},
							},
						},
					},
					{
						MimeType: "application/pdf",
						Filename: "file.pdf",
						Body:     &gmail.MessagePartBody{AttachmentId: "att-1", Size: 12},
					},
				},
			},
			wantText: "deep plain",
		},
		{
			name: "attachment text part is not a body",
			payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "text/plain",
						Filename: "log.txt",
						Body:     &gmail.MessagePartBody{Data: b64url("attached log")},
					},
				},
			},
		},
		{
			name: "undecodable part skipped",
			payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "text/plain",
						Body:     &gmail.MessagePartBody{Data: "!!!not-base64!!!"},
					},
					{
						MimeType: "text/html",
						Body:     &gmail.MessagePartBody{Data: b64url("<p>still here</p>")},
					},
				},
			},
			wantHTML: "<p>still here</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, html := ExtractBody(tt.payload)
			if text != tt.wantText {
				t.Errorf("ExtractBody() text = %q, want %q", text, tt.wantText)
			}
			if html != tt.wantHTML {
				t.Errorf("ExtractBody() html = %q, want %q", html, tt.wantHTML)
			}
		})
	}
}

func TestPreferredBody(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64url("plain")}},
			{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64url("<p>html</p>")}},
		},
	}
	if got := PreferredBody(payload); got != "plain" {
		t.Errorf("PreferredBody() = %q, want plain body preferred", got)
	}

	htmlOnly := &gmail.MessagePart{
		MimeType: "text/html",
		Body:     &gmail.MessagePartBody{Data: b64url("<p>html</p>")},
	}
	if got := PreferredBody(htmlOnly); got != "<p>html</p>" {
		t.Errorf("PreferredBody() = %q, want html fallback", got)
	}
}

func TestCollectAttachments(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: b64url("body")},
			},
			{
				PartId:   "1",
				MimeType: "application/pdf",
				Filename: "report.pdf",
				Body:     &gmail.MessagePartBody{AttachmentId: "att-1", Size: 2048},
			},
			{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						PartId:   "2.0",
						MimeType: "image/png",
						Filename: "chart.png",
						Body:     &gmail.MessagePartBody{AttachmentId: "att-2", Size: 512},
					},
				},
			},
		},
	}

	refs := CollectAttachments(payload)
	if len(refs) != 2 {
		t.Fatalf("CollectAttachments() returned %d refs, want 2", len(refs))
	}

	byName := map[string]AttachmentRef{}
	for _, r := range refs {
		byName[r.Filename] = r
	}

	pdf := byName["report.pdf"]
	if pdf.AttachmentID != "att-1" || pdf.Size != 2048 || pdf.MIMEType != "application/pdf" {
		t.Errorf("unexpected pdf ref: %+v", pdf)
	}
	png := byName["chart.png"]
	if png.AttachmentID != "att-2" || png.PartID != "2.0" {
		t.Errorf("unexpected png ref: %+v", png)
	}

	if refs := CollectAttachments(nil); refs != nil {
		t.Errorf("CollectAttachments(nil) = %v, want nil", refs)
	}
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "url base64",
			input: base64.URLEncoding.EncodeToString([]byte("Hello, World!")),
			want:  "Hello, World!",
		},
		{
			name:  "raw url base64 without padding",
			input: base64.RawURLEncoding.EncodeToString([]byte("Hello, World!")),
			want:  "Hello, World!",
		},
		{
			name:  "standard base64",
			input: base64.StdEncoding.EncodeToString([]byte("Special: +/ bytes \xfb\xff")),
			want:  "Special: +/ bytes \xfb\xff",
		},
		{
			name:    "invalid input",
			input:   "!!!not base64!!!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBody(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("DecodeBody(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeBody(%q) unexpected error: %v", tt.input, err)
			}
			if string(got) != tt.want {
				t.Errorf("DecodeBody(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

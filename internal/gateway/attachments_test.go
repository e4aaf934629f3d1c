package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

// attachmentFake serves the message part tree and the attachment content.
func attachmentFake(t *testing.T, content []byte, reportedSize int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "/attachments/") {
			require.NoError(t, json.NewEncoder(w).Encode(gmail.MessagePartBody{
				AttachmentId: "att-1",
				Size:         reportedSize,
				Data:         base64.URLEncoding.EncodeToString(content),
			}))
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(gmail.Message{
			Id: "m-1",
			Payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						PartId:   "1",
						MimeType: "application/pdf",
						Filename: "report.pdf",
						Body:     &gmail.MessagePartBody{AttachmentId: "att-1", Size: reportedSize},
					},
				},
			},
		}))
	})
}

func TestListAttachments(t *testing.T) {
	c := testClient(t, validManager(t), attachmentFake(t, []byte("pdf"), 3))

	refs, err := c.ListAttachments(context.Background(), "m-1")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "report.pdf", refs[0].Filename)
	assert.Equal(t, "att-1", refs[0].AttachmentID)

	_, err = c.ListAttachments(context.Background(), "")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestDownloadAttachment(t *testing.T) {
	content := []byte("attachment bytes")
	c := testClient(t, validManager(t), attachmentFake(t, content, int64(len(content))))
	dir := t.TempDir()

	res, err := c.DownloadAttachment(context.Background(), "m-1", "att-1", dir, "saved.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "saved.pdf"), res.Path)
	assert.Equal(t, int64(len(content)), res.Size)

	got, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloadAttachmentResolvesFilename(t *testing.T) {
	content := []byte("x")
	c := testClient(t, validManager(t), attachmentFake(t, content, 1))
	dir := t.TempDir()

	res, err := c.DownloadAttachment(context.Background(), "m-1", "att-1", dir, "")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", res.Filename, "filename must come from the message part")
	assert.FileExists(t, filepath.Join(dir, "report.pdf"))
}

func TestDownloadAttachmentUnknownID(t *testing.T) {
	c := testClient(t, validManager(t), attachmentFake(t, []byte("x"), 1))

	_, err := c.DownloadAttachment(context.Background(), "m-1", "att-unknown", t.TempDir(), "")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestDownloadAttachmentTooLarge(t *testing.T) {
	c := testClient(t, validManager(t), attachmentFake(t, []byte("x"), MaxAttachmentSize+1))

	_, err := c.DownloadAttachment(context.Background(), "m-1", "att-1", t.TempDir(), "big.bin")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestDownloadAttachmentUnwritableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	c := testClient(t, validManager(t), attachmentFake(t, []byte("x"), 1))
	dir := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(dir, 0500))

	_, err := c.DownloadAttachment(context.Background(), "m-1", "att-1", dir, "f.bin")
	require.Error(t, err)
	assert.Equal(t, KindLocalIO, KindOf(err))
}

func TestDownloadAttachmentValidation(t *testing.T) {
	c := testClient(t, validManager(t), http.NotFoundHandler())
	ctx := context.Background()

	cases := []struct {
		name                     string
		msgID, attID, dir, fname string
	}{
		{"missing message id", "", "att-1", "/tmp", "f"},
		{"missing attachment id", "m-1", "", "/tmp", "f"},
		{"missing dir", "m-1", "att-1", "", "f"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.DownloadAttachment(ctx, tt.msgID, tt.attID, tt.dir, tt.fname)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{
			name:     "normal filename",
			filename: "document.pdf",
			want:     "document.pdf",
		},
		{
			name:     "filename with forward slash",
			filename: "path/to/document.pdf",
			want:     "path_to_document.pdf",
		},
		{
			name:     "filename with backslash",
			filename: "path\\to\\document.pdf",
			want:     "path_to_document.pdf",
		},
		{
			name:     "filename with parent directory",
			filename: "../../../etc/passwd",
			want:     "______etc_passwd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.filename); got != tt.want {
				t.Errorf("SanitizeFilename() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDownloadAttachmentRemoteError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiError(w, http.StatusNotFound, "notFound")
	})
	c := testClient(t, validManager(t), handler)

	_, err := c.DownloadAttachment(context.Background(), "m-1", "att-1", t.TempDir(), "f.bin")
	require.Error(t, err)
	assert.Equal(t, KindRemoteRejected, KindOf(err))
}

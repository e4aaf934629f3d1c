package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	netmail "net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

// decodeRaw unwraps a captured Message.Raw into a parsed RFC 2822 message.
func decodeRaw(t *testing.T, raw string) *netmail.Message {
	t.Helper()
	rendered, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	parsed, err := netmail.ReadMessage(strings.NewReader(string(rendered)))
	require.NoError(t, err)
	return parsed
}

// withProfile serves the profile endpoint alongside the handler under
// test, for operations that resolve the sender address first.
func withProfile(email string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/profile") {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"emailAddress":%q}`, email)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func TestSend(t *testing.T) {
	var captured gmail.Message
	handler := withProfile("me@example.com", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Contains(t, r.URL.Path, "/users/me/messages/send")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"m-1","threadId":"t-1"}`)
	}))
	c := testClient(t, validManager(t), handler)

	res, err := c.Send(context.Background(), SendRequest{
		To:       []string{"alice@example.com"},
		Cc:       []string{"bob@example.com"},
		Subject:  "Hello",
		TextBody: "Hi there",
	})
	require.NoError(t, err)
	assert.Equal(t, "m-1", res.ID)
	assert.Equal(t, "t-1", res.ThreadID)
	assert.Empty(t, res.SkippedAttachments)

	parsed := decodeRaw(t, captured.Raw)
	assert.Equal(t, "me@example.com", parsed.Header.Get("From"))
	assert.Equal(t, "alice@example.com", parsed.Header.Get("To"))
	assert.Equal(t, "bob@example.com", parsed.Header.Get("Cc"))
	assert.Equal(t, "Hello", parsed.Header.Get("Subject"))
}

func TestSendValidation(t *testing.T) {
	c := testClient(t, validManager(t), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("validation failures must not reach the API")
	}))

	tests := []struct {
		name string
		req  SendRequest
	}{
		{"no recipients", SendRequest{Subject: "s", TextBody: "b"}},
		{"no subject", SendRequest{To: []string{"a@example.com"}, TextBody: "b"}},
		{"no body", SendRequest{To: []string{"a@example.com"}, Subject: "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Send(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestSendSkipsUnreadableAttachment(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(good, []byte("%PDF-1.4 data"), 0644))
	missing := filepath.Join(dir, "missing.pdf")

	var captured gmail.Message
	handler := withProfile("me@example.com", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/users/me/messages/send")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"m-1","threadId":"t-1"}`)
	}))
	c := testClient(t, validManager(t), handler)

	res, err := c.Send(context.Background(), SendRequest{
		To:              []string{"a@example.com"},
		Subject:         "s",
		TextBody:        "b",
		AttachmentPaths: []string{good, missing},
	})
	require.NoError(t, err, "an unreadable attachment must not fail the send")
	assert.Equal(t, []string{missing}, res.SkippedAttachments)

	rendered, err := base64.URLEncoding.DecodeString(captured.Raw)
	require.NoError(t, err)
	assert.Contains(t, string(rendered), "report.pdf", "readable attachment must still be carried")
	assert.NotContains(t, string(rendered), "missing.pdf")
}

func TestCreateDraft(t *testing.T) {
	handler := withProfile("me@example.com", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Contains(t, r.URL.Path, "/users/me/drafts")
		var draft gmail.Draft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		require.NotNil(t, draft.Message)
		require.NotEmpty(t, draft.Message.Raw)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"d-1","message":{"id":"m-1","threadId":"t-1"}}`)
	}))
	c := testClient(t, validManager(t), handler)

	res, err := c.CreateDraft(context.Background(), SendRequest{
		To:       []string{"alice@example.com"},
		Subject:  "Draft",
		TextBody: "WIP",
	})
	require.NoError(t, err)
	assert.Equal(t, "d-1", res.DraftID)
	assert.Equal(t, "m-1", res.ID)
}

// searchFake serves paged message lists plus per-message metadata.
type searchFake struct {
	total        int
	pageSizes    []int64
	metadataGets int
}

func (f *searchFake) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if strings.HasSuffix(r.URL.Path, "/users/me/messages") {
			pageSize, _ := strconv.ParseInt(r.URL.Query().Get("maxResults"), 10, 64)
			f.pageSizes = append(f.pageSizes, pageSize)

			start := 0
			if tok := r.URL.Query().Get("pageToken"); tok != "" {
				start, _ = strconv.Atoi(tok)
			}
			end := start + int(pageSize)
			if end > f.total {
				end = f.total
			}

			resp := gmail.ListMessagesResponse{}
			for i := start; i < end; i++ {
				resp.Messages = append(resp.Messages, &gmail.Message{Id: fmt.Sprintf("m-%d", i)})
			}
			if end < f.total {
				resp.NextPageToken = strconv.Itoa(end)
			}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
			return
		}

		// Per-message metadata get.
		f.metadataGets++
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		msg := gmail.Message{
			Id:       id,
			ThreadId: "t-" + id,
			Snippet:  "snippet of " + id,
			LabelIds: []string{"INBOX"},
			Payload: &gmail.MessagePart{
				Headers: []*gmail.MessagePartHeader{
					{Name: "From", Value: "sender@example.com"},
					{Name: "Subject", Value: "subject " + id},
					{Name: "Date", Value: "Sun, 23 Aug 2026 12:00:00 +0000"},
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(msg))
	})
}

func TestSearchPagesThroughLargeResults(t *testing.T) {
	fake := &searchFake{total: 250}
	c := testClient(t, validManager(t), fake.handler(t))

	results, err := c.Search(context.Background(), "is:unread", 250)
	require.NoError(t, err)
	assert.Len(t, results, 250)
	assert.Equal(t, []int64{100, 100, 50}, fake.pageSizes, "page size must cap at 100")
	assert.Equal(t, 250, fake.metadataGets)

	assert.Equal(t, "m-0", results[0].ID)
	assert.Equal(t, "sender@example.com", results[0].From)
	assert.Equal(t, "subject m-0", results[0].Subject)
	assert.Equal(t, "snippet of m-0", results[0].Snippet)
	assert.Equal(t, []string{"INBOX"}, results[0].Labels)
}

func TestSearchDefaultsMaxResults(t *testing.T) {
	fake := &searchFake{total: 50}
	c := testClient(t, validManager(t), fake.handler(t))

	results, err := c.Search(context.Background(), "from:alice", -1)
	require.NoError(t, err)
	assert.Len(t, results, 10)
	assert.Equal(t, []int64{10}, fake.pageSizes)
}

func TestSearchZeroMaxResults(t *testing.T) {
	fake := &searchFake{total: 50}
	c := testClient(t, validManager(t), fake.handler(t))

	results, err := c.Search(context.Background(), "from:alice", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, fake.pageSizes, "no list call expected for a zero bound")
}

func TestSearchShortResults(t *testing.T) {
	fake := &searchFake{total: 3}
	c := testClient(t, validManager(t), fake.handler(t))

	results, err := c.Search(context.Background(), "from:alice", 20)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestReadFallsBackToSnippet(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id":"m-9","threadId":"t-9","snippet":"preview text",
			"payload":{
				"mimeType":"multipart/mixed",
				"headers":[{"name":"From","value":"alice@example.com"}],
				"parts":[
					{"partId":"1","mimeType":"application/pdf","filename":"report.pdf",
					 "body":{"attachmentId":"att-1","size":10}}
				]
			}
		}`)
	})
	c := testClient(t, validManager(t), handler)

	detail, err := c.Read(context.Background(), "m-9")
	require.NoError(t, err)
	assert.Equal(t, "preview text", detail.Body, "a message with no text part must degrade to the snippet")
}

func TestRead(t *testing.T) {
	body := base64.URLEncoding.EncodeToString([]byte("the message body"))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/users/me/messages/m-42")
		require.Equal(t, "full", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id":"m-42","threadId":"t-42","snippet":"snip","labelIds":["INBOX","UNREAD"],
			"payload":{
				"mimeType":"multipart/mixed",
				"headers":[
					{"name":"From","value":"alice@example.com"},
					{"name":"To","value":"me@example.com"},
					{"name":"Subject","value":"Hello"},
					{"name":"Message-ID","value":"<orig@mail.example.com>"}
				],
				"parts":[
					{"mimeType":"text/plain","body":{"data":%q}},
					{"partId":"1","mimeType":"application/pdf","filename":"doc.pdf","body":{"attachmentId":"att-1","size":2048}}
				]
			}
		}`, body)
	})
	c := testClient(t, validManager(t), handler)

	detail, err := c.Read(context.Background(), "m-42")
	require.NoError(t, err)
	assert.Equal(t, "m-42", detail.ID)
	assert.Equal(t, "alice@example.com", detail.From)
	assert.Equal(t, "the message body", detail.Body)
	assert.Equal(t, "<orig@mail.example.com>", detail.MessageID)
	require.Len(t, detail.Attachments, 1)
	assert.Equal(t, "doc.pdf", detail.Attachments[0].Filename)
	assert.Equal(t, "att-1", detail.Attachments[0].AttachmentID)
}

func TestReadValidation(t *testing.T) {
	c := testClient(t, validManager(t), http.NotFoundHandler())
	_, err := c.Read(context.Background(), "")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestGetThread(t *testing.T) {
	body := base64.URLEncoding.EncodeToString([]byte("reply body"))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/users/me/threads/t-7")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id":"t-7",
			"messages":[
				{"id":"m-1","threadId":"t-7","payload":{"mimeType":"text/plain","headers":[{"name":"Subject","value":"first"}],"body":{"data":%q}}},
				{"id":"m-2","threadId":"t-7","payload":{"mimeType":"text/plain","headers":[{"name":"Subject","value":"second"}],"body":{"data":%q}}}
			]
		}`, body, body)
	})
	c := testClient(t, validManager(t), handler)

	thread, err := c.GetThread(context.Background(), "t-7")
	require.NoError(t, err)
	assert.Equal(t, "t-7", thread.ID)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "first", thread.Messages[0].Subject)
	assert.Equal(t, "reply body", thread.Messages[0].Body)
}

// replyFake serves the original message, the profile, and captures the
// outgoing reply.
func replyFake(t *testing.T, origSubject, origRefs string, captured *gmail.Message) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/messages/send"):
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
			fmt.Fprint(w, `{"id":"m-reply","threadId":"t-orig"}`)
		case strings.Contains(r.URL.Path, "/profile"):
			fmt.Fprint(w, `{"emailAddress":"me@example.com"}`)
		default:
			msg := gmail.Message{
				Id:       "m-orig",
				ThreadId: "t-orig",
				Payload: &gmail.MessagePart{
					Headers: []*gmail.MessagePartHeader{
						{Name: "From", Value: "Alice <alice@example.com>"},
						{Name: "To", Value: "me@example.com, Bob <bob@example.com>"},
						{Name: "Cc", Value: "carol@example.com"},
						{Name: "Subject", Value: origSubject},
						{Name: "Message-ID", Value: "<orig@mail.example.com>"},
						{Name: "References", Value: origRefs},
					},
				},
			}
			require.NoError(t, json.NewEncoder(w).Encode(msg))
		}
	})
}

func TestReply(t *testing.T) {
	var captured gmail.Message
	c := testClient(t, validManager(t), replyFake(t, "Hello", "", &captured))

	res, err := c.Reply(context.Background(), ReplyRequest{
		MessageID: "m-orig",
		TextBody:  "my reply",
	})
	require.NoError(t, err)
	assert.Equal(t, "m-reply", res.ID)

	assert.Equal(t, "t-orig", captured.ThreadId, "reply must join the original thread")

	parsed := decodeRaw(t, captured.Raw)
	assert.Equal(t, "me@example.com", parsed.Header.Get("From"))
	assert.Equal(t, "Re: Hello", parsed.Header.Get("Subject"))
	assert.Equal(t, "<orig@mail.example.com>", parsed.Header.Get("In-Reply-To"))
	assert.Equal(t, "<orig@mail.example.com>", parsed.Header.Get("References"))
	assert.Equal(t, "Alice <alice@example.com>", parsed.Header.Get("To"))
	assert.Empty(t, parsed.Header.Get("Cc"))
}

func TestReplyAllExcludesSelfAndSender(t *testing.T) {
	var captured gmail.Message
	c := testClient(t, validManager(t), replyFake(t, "re: hello", "<root@mail.example.com>", &captured))

	_, err := c.Reply(context.Background(), ReplyRequest{
		MessageID: "m-orig",
		TextBody:  "reply to everyone",
		ReplyAll:  true,
	})
	require.NoError(t, err)

	parsed := decodeRaw(t, captured.Raw)
	assert.Equal(t, "re: hello", parsed.Header.Get("Subject"), "existing Re: prefix must not double up")

	to := parsed.Header.Get("To")
	assert.Contains(t, to, "alice@example.com")
	assert.Contains(t, to, "bob@example.com")
	assert.NotContains(t, to, "me@example.com", "own address must be excluded")
	assert.Equal(t, "<carol@example.com>", parsed.Header.Get("Cc"))

	assert.Equal(t, "<root@mail.example.com> <orig@mail.example.com>", parsed.Header.Get("References"))
}

func TestReplyValidation(t *testing.T) {
	c := testClient(t, validManager(t), http.NotFoundHandler())

	_, err := c.Reply(context.Background(), ReplyRequest{TextBody: "b"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = c.Reply(context.Background(), ReplyRequest{MessageID: "m-1"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestReplySubject(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"Hello", "Re: Hello"},
		{"Re: Hello", "Re: Hello"},
		{"re: hello", "re: hello"},
		{"RE: Hello", "RE: Hello"},
		{"", "Re: "},
	}
	for _, tt := range tests {
		if got := replySubject(tt.subject); got != tt.want {
			t.Errorf("replySubject(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}

func TestFilterAddresses(t *testing.T) {
	tests := []struct {
		name   string
		header string
		self   string
		sender string
		want   []string
	}{
		{
			name:   "excludes self",
			header: "me@example.com, bob@example.com",
			self:   "me@example.com",
			sender: "alice@example.com",
			want:   []string{"<bob@example.com>"},
		},
		{
			name:   "excludes sender",
			header: "Alice <alice@example.com>, Bob <bob@example.com>",
			self:   "me@example.com",
			sender: "Alice <alice@example.com>",
			want:   []string{"Bob <bob@example.com>"},
		},
		{
			name:   "empty header",
			header: "",
			self:   "me@example.com",
			sender: "alice@example.com",
			want:   nil,
		},
		{
			name:   "unparseable header dropped",
			header: "not an address <<<",
			self:   "me@example.com",
			sender: "alice@example.com",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterAddresses(tt.header, tt.self, tt.sender)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrash(t *testing.T) {
	var path string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"m-1","labelIds":["TRASH"]}`)
	})
	c := testClient(t, validManager(t), handler)

	require.NoError(t, c.Trash(context.Background(), "m-1"))
	assert.Contains(t, path, "/users/me/messages/m-1/trash")

	assert.Equal(t, KindValidation, KindOf(c.Trash(context.Background(), "")))
}

func TestDelete(t *testing.T) {
	var method, path string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	c := testClient(t, validManager(t), handler)

	require.NoError(t, c.Delete(context.Background(), "m-1"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Contains(t, path, "/users/me/messages/m-1")
}

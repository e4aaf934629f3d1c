package gateway

import (
	"context"
	netmail "net/mail"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/imthebreezy247/gmail-mcp/internal/logging"
	"github.com/imthebreezy247/gmail-mcp/internal/mail"
)

const (
	// maxPageSize caps a single list call; larger requests page.
	maxPageSize = 100

	// defaultSearchResults applies when the caller does not bound a search.
	defaultSearchResults = 10
)

// SendRequest describes an outgoing message. Attachments are named by
// local path and loaded at send time.
type SendRequest struct {
	To              []string
	Cc              []string
	Bcc             []string
	Subject         string
	TextBody        string
	HTMLBody        string
	AttachmentPaths []string
}

// SendResult identifies the message created by Send or CreateDraft.
// SkippedAttachments lists requested attachment paths that could not be
// read and were left out of the message.
type SendResult struct {
	ID                 string   `json:"id"`
	ThreadID           string   `json:"threadId,omitempty"`
	DraftID            string   `json:"draftId,omitempty"`
	SkippedAttachments []string `json:"skippedAttachments,omitempty"`
}

// EmailSummary is the search-result shape: envelope headers plus snippet,
// no body.
type EmailSummary struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	From     string   `json:"from"`
	To       string   `json:"to,omitempty"`
	Subject  string   `json:"subject"`
	Date     string   `json:"date"`
	Snippet  string   `json:"snippet,omitempty"`
	Labels   []string `json:"labels,omitempty"`
}

// EmailDetail is the full read shape: envelope, body, and attachment
// listing.
type EmailDetail struct {
	ID          string               `json:"id"`
	ThreadID    string               `json:"threadId"`
	From        string               `json:"from"`
	To          string               `json:"to,omitempty"`
	Cc          string               `json:"cc,omitempty"`
	Subject     string               `json:"subject"`
	Date        string               `json:"date"`
	MessageID   string               `json:"messageId,omitempty"`
	Snippet     string               `json:"snippet,omitempty"`
	Labels      []string             `json:"labels,omitempty"`
	Body        string               `json:"body"`
	Attachments []mail.AttachmentRef `json:"attachments,omitempty"`
}

// ThreadDetail is a conversation with its messages in mailbox order.
type ThreadDetail struct {
	ID       string        `json:"id"`
	Messages []EmailDetail `json:"messages"`
}

func (r *SendRequest) validate(op string) *Error {
	if len(r.To) == 0 {
		return validationErr(op, "at least one recipient is required")
	}
	if r.Subject == "" {
		return validationErr(op, "subject is required")
	}
	if r.TextBody == "" && r.HTMLBody == "" {
		return validationErr(op, "body is required")
	}
	return nil
}

// compose loads attachments and renders the request into wire form.
// An unreadable attachment never fails the send: it is skipped with a
// warning, and the skipped paths are reported back to the caller.
func (c *Client) compose(ctx context.Context, op string, r *SendRequest) (string, []string, *Error) {
	msg := &mail.Message{
		From:     c.selfEmail(ctx),
		To:       r.To,
		Cc:       r.Cc,
		Bcc:      r.Bcc,
		Subject:  r.Subject,
		TextBody: r.TextBody,
		HTMLBody: r.HTMLBody,
	}
	var skipped []string
	for _, path := range r.AttachmentPaths {
		att, err := mail.LoadAttachment(path)
		if err != nil {
			skipped = append(skipped, path)
			c.logger.Warn("skipping unreadable attachment",
				logging.Operation(op),
				logging.Account(c.account),
				logging.Err(err))
			continue
		}
		msg.Attachments = append(msg.Attachments, att)
	}

	raw, err := mail.Encode(msg)
	if err != nil {
		return "", nil, validationErr(op, "%v", err)
	}
	return raw, skipped, nil
}

// Send delivers a new message from the authenticated account.
func (c *Client) Send(ctx context.Context, req SendRequest) (res *SendResult, err error) {
	const op = "send_email"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if err := req.validate(op); err != nil {
		return nil, err
	}
	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	raw, skipped, cerr := c.compose(ctx, op, &req)
	if cerr != nil {
		return nil, cerr
	}

	sent, err := c.svc.Users.Messages.Send(userID, &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, "", err)
	}

	c.logger.Info("email sent",
		logging.Operation(op),
		logging.Account(c.account),
		logging.Status(logging.StatusSuccess))

	return &SendResult{ID: sent.Id, ThreadID: sent.ThreadId, SkippedAttachments: skipped}, nil
}

// CreateDraft stores the message as a draft instead of sending it.
func (c *Client) CreateDraft(ctx context.Context, req SendRequest) (res *SendResult, err error) {
	const op = "create_draft"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if err := req.validate(op); err != nil {
		return nil, err
	}
	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	raw, skipped, cerr := c.compose(ctx, op, &req)
	if cerr != nil {
		return nil, cerr
	}

	draft, err := c.svc.Users.Drafts.Create(userID, &gmail.Draft{
		Message: &gmail.Message{Raw: raw},
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, "", err)
	}

	result := &SendResult{DraftID: draft.Id, SkippedAttachments: skipped}
	if draft.Message != nil {
		result.ID = draft.Message.Id
		result.ThreadID = draft.Message.ThreadId
	}
	return result, nil
}

// Search lists messages matching a Gmail query expression. maxResults == 0
// returns an empty list without calling the API; a negative value applies
// the default bound. Larger result sets page through the API in capped
// chunks.
func (c *Client) Search(ctx context.Context, query string, maxResults int64) (summaries []EmailSummary, err error) {
	const op = "search_emails"
	if maxResults == 0 {
		return []EmailSummary{}, nil
	}
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	if maxResults < 0 {
		maxResults = defaultSearchResults
	}

	var ids []string
	pageToken := ""
	for int64(len(ids)) < maxResults {
		pageSize := maxResults - int64(len(ids))
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		call := c.svc.Users.Messages.List(userID).Q(query).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, mapRemoteError(op, "", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" || len(resp.Messages) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}
	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}

	summaries = make([]EmailSummary, 0, len(ids))
	for _, id := range ids {
		m, err := c.svc.Users.Messages.Get(userID, id).
			Format("metadata").
			MetadataHeaders("From", "To", "Subject", "Date").
			Context(ctx).Do()
		if err != nil {
			return nil, mapRemoteError(op, id, err)
		}
		summaries = append(summaries, summarize(m))
	}

	c.logger.Debug("search completed",
		logging.Operation(op),
		logging.Account(c.account))
	return summaries, nil
}

// Read fetches one message in full, with decoded body and attachment
// listing.
func (c *Client) Read(ctx context.Context, messageID string) (d *EmailDetail, err error) {
	const op = "read_email"
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
	return detail(m), nil
}

// GetThread fetches a full conversation.
func (c *Client) GetThread(ctx context.Context, threadID string) (td *ThreadDetail, err error) {
	const op = "get_thread"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if threadID == "" {
		return nil, validationErr(op, "thread ID is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	t, err := c.svc.Users.Threads.Get(userID, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, threadID, err)
	}

	td = &ThreadDetail{ID: t.Id, Messages: make([]EmailDetail, 0, len(t.Messages))}
	for _, m := range t.Messages {
		td.Messages = append(td.Messages, *detail(m))
	}
	return td, nil
}

// ReplyRequest describes a reply to an existing message.
type ReplyRequest struct {
	MessageID string
	TextBody  string
	HTMLBody  string
	// ReplyAll addresses the original To and Cc recipients in addition to
	// the sender, excluding the authenticated account itself.
	ReplyAll bool
}

// Reply sends a threaded reply to an existing message. The subject gains a
// single Re: prefix, and In-Reply-To/References headers keep mail clients
// threading correctly alongside the Gmail thread ID.
func (c *Client) Reply(ctx context.Context, req ReplyRequest) (res *SendResult, err error) {
	const op = "reply_to_email"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if req.MessageID == "" {
		return nil, validationErr(op, "message ID is required")
	}
	if req.TextBody == "" && req.HTMLBody == "" {
		return nil, validationErr(op, "body is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	orig, err := c.svc.Users.Messages.Get(userID, req.MessageID).
		Format("metadata").
		MetadataHeaders("From", "To", "Cc", "Subject", "Message-ID", "References").
		Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, req.MessageID, err)
	}

	self := c.selfEmail(ctx)
	msg := &mail.Message{
		From:     self,
		Subject:  replySubject(mail.HeaderValue(orig.Payload, "Subject")),
		TextBody: req.TextBody,
		HTMLBody: req.HTMLBody,
	}

	from := mail.HeaderValue(orig.Payload, "From")
	if from == "" {
		return nil, validationErr(op, "original message has no sender")
	}
	msg.To = []string{from}

	if req.ReplyAll {
		msg.To = append(msg.To, filterAddresses(mail.HeaderValue(orig.Payload, "To"), self, from)...)
		msg.Cc = filterAddresses(mail.HeaderValue(orig.Payload, "Cc"), self, from)
	}

	if msgID := mail.HeaderValue(orig.Payload, "Message-ID"); msgID != "" {
		msg.InReplyTo = msgID
		if refs := mail.HeaderValue(orig.Payload, "References"); refs != "" {
			msg.References = refs + " " + msgID
		} else {
			msg.References = msgID
		}
	}

	raw, merr := mail.Encode(msg)
	if merr != nil {
		return nil, validationErr(op, "%v", merr)
	}

	sent, err := c.svc.Users.Messages.Send(userID, &gmail.Message{
		Raw:      raw,
		ThreadId: orig.ThreadId,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, req.MessageID, err)
	}

	c.logger.Info("reply sent",
		logging.Operation(op),
		logging.Account(c.account),
		logging.Status(logging.StatusSuccess))

	return &SendResult{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// Trash moves a message to the trash; Gmail purges it after 30 days.
func (c *Client) Trash(ctx context.Context, messageID string) (err error) {
	const op = "trash_message"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if messageID == "" {
		return validationErr(op, "message ID is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return err
	}

	if _, err := c.svc.Users.Messages.Trash(userID, messageID).Context(ctx).Do(); err != nil {
		return mapRemoteError(op, messageID, err)
	}
	return nil
}

// Delete permanently removes a message, bypassing the trash.
func (c *Client) Delete(ctx context.Context, messageID string) (err error) {
	const op = "delete_message"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if messageID == "" {
		return validationErr(op, "message ID is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return err
	}

	if err := c.svc.Users.Messages.Delete(userID, messageID).Context(ctx).Do(); err != nil {
		return mapRemoteError(op, messageID, err)
	}

	c.logger.Info("message permanently deleted",
		logging.Operation(op),
		logging.Account(c.account))
	return nil
}

// replySubject prefixes the subject with Re: unless one is already there,
// whatever its case.
func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// filterAddresses parses a recipient header and drops the authenticated
// account and the original sender, so reply-all never echoes back to self
// or duplicates the To line.
func filterAddresses(header, self, sender string) []string {
	if header == "" {
		return nil
	}

	addrs, err := netmail.ParseAddressList(header)
	if err != nil {
		return nil
	}

	senderAddr := ""
	if parsed, err := netmail.ParseAddress(sender); err == nil {
		senderAddr = parsed.Address
	}

	var out []string
	for _, a := range addrs {
		if strings.EqualFold(a.Address, self) || strings.EqualFold(a.Address, senderAddr) {
			continue
		}
		out = append(out, a.String())
	}
	return out
}

func summarize(m *gmail.Message) EmailSummary {
	return EmailSummary{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		From:     mail.HeaderValue(m.Payload, "From"),
		To:       mail.HeaderValue(m.Payload, "To"),
		Subject:  mail.HeaderValue(m.Payload, "Subject"),
		Date:     mail.HeaderValue(m.Payload, "Date"),
		Snippet:  m.Snippet,
		Labels:   m.LabelIds,
	}
}

func detail(m *gmail.Message) *EmailDetail {
	// Messages with no decodable text part degrade to the snippet.
	body := mail.PreferredBody(m.Payload)
	if body == "" {
		body = m.Snippet
	}
	return &EmailDetail{
		ID:          m.Id,
		ThreadID:    m.ThreadId,
		From:        mail.HeaderValue(m.Payload, "From"),
		To:          mail.HeaderValue(m.Payload, "To"),
		Cc:          mail.HeaderValue(m.Payload, "Cc"),
		Subject:     mail.HeaderValue(m.Payload, "Subject"),
		Date:        mail.HeaderValue(m.Payload, "Date"),
		MessageID:   mail.HeaderValue(m.Payload, "Message-ID"),
		Snippet:     m.Snippet,
		Labels:      m.LabelIds,
		Body:        body,
		Attachments: mail.CollectAttachments(m.Payload),
	}
}

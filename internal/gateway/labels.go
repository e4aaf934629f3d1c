package gateway

import (
	"context"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/imthebreezy247/gmail-mcp/internal/logging"
)

// LabelInfo is a mailbox label with its message counts when the API
// provides them.
type LabelInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type,omitempty"`
	MessagesTotal  int64  `json:"messagesTotal,omitempty"`
	MessagesUnread int64  `json:"messagesUnread,omitempty"`
}

// ListLabels returns all labels, system and user-defined.
func (c *Client) ListLabels(ctx context.Context) (labels []LabelInfo, err error) {
	const op = "list_labels"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	resp, err := c.svc.Users.Labels.List(userID).Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, "", err)
	}

	labels = make([]LabelInfo, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels = append(labels, LabelInfo{
			ID:             l.Id,
			Name:           l.Name,
			Type:           l.Type,
			MessagesTotal:  l.MessagesTotal,
			MessagesUnread: l.MessagesUnread,
		})
	}
	return labels, nil
}

// CreateLabel creates a user label. Nested labels use slash-separated
// names ("Work/Invoices").
func (c *Client) CreateLabel(ctx context.Context, name string) (label *LabelInfo, err error) {
	const op = "create_label"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if name == "" {
		return nil, validationErr(op, "label name is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	created, err := c.svc.Users.Labels.Create(userID, &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, name, err)
	}

	c.logger.Info("label created",
		logging.Operation(op),
		logging.Account(c.account))
	return &LabelInfo{ID: created.Id, Name: created.Name, Type: created.Type}, nil
}

// DeleteLabel removes a user label. Messages keep their other labels.
func (c *Client) DeleteLabel(ctx context.Context, labelID string) (err error) {
	const op = "delete_label"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if labelID == "" {
		return validationErr(op, "label ID is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return err
	}

	if err := c.svc.Users.Labels.Delete(userID, labelID).Context(ctx).Do(); err != nil {
		return mapRemoteError(op, labelID, err)
	}
	return nil
}

// ModifyLabels adds and removes labels on one message and returns the
// message's resulting label id set.
func (c *Client) ModifyLabels(ctx context.Context, messageID string, add, remove []string) (labels []string, err error) {
	const op = "modify_labels"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if messageID == "" {
		return nil, validationErr(op, "message ID is required")
	}
	if len(add) == 0 && len(remove) == 0 {
		return nil, validationErr(op, "at least one label to add or remove is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	modified, err := c.svc.Users.Messages.Modify(userID, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, messageID, err)
	}
	return modified.LabelIds, nil
}

// BatchModifyLabels applies one label change to many messages in a single
// API call.
func (c *Client) BatchModifyLabels(ctx context.Context, messageIDs []string, add, remove []string) (err error) {
	const op = "batch_modify_labels"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if len(messageIDs) == 0 {
		return validationErr(op, "at least one message ID is required")
	}
	if len(add) == 0 && len(remove) == 0 {
		return validationErr(op, "at least one label to add or remove is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return err
	}

	err = c.svc.Users.Messages.BatchModify(userID, &gmail.BatchModifyMessagesRequest{
		Ids:            messageIDs,
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}).Context(ctx).Do()
	if err != nil {
		return mapRemoteError(op, "", err)
	}
	return nil
}

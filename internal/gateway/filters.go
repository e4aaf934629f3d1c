package gateway

import (
	"context"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// FilterCriteria selects the messages a filter applies to. At least one
// field must be set.
type FilterCriteria struct {
	From           string `json:"from,omitempty"`
	To             string `json:"to,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Query          string `json:"query,omitempty"`
	HasAttachment  bool   `json:"hasAttachment,omitempty"`
	Size           int64  `json:"size,omitempty"`
	SizeComparison string `json:"sizeComparison,omitempty"`
}

func (c FilterCriteria) empty() bool {
	return c.From == "" && c.To == "" && c.Subject == "" && c.Query == "" &&
		!c.HasAttachment && c.Size <= 0
}

// FilterAction is what happens to matching messages. The convenience
// booleans expand to the label operations Gmail actually stores: Archive
// removes INBOX, MarkAsRead removes UNREAD, Star adds STARRED, MarkAsSpam
// adds SPAM, Delete adds TRASH.
type FilterAction struct {
	AddLabelIDs    []string `json:"addLabelIds,omitempty"`
	RemoveLabelIDs []string `json:"removeLabelIds,omitempty"`
	Forward        string   `json:"forward,omitempty"`
	Archive        bool     `json:"archive,omitempty"`
	MarkAsRead     bool     `json:"markAsRead,omitempty"`
	Star           bool     `json:"star,omitempty"`
	MarkAsSpam     bool     `json:"markAsSpam,omitempty"`
	Delete         bool     `json:"delete,omitempty"`
}

func (a FilterAction) empty() bool {
	return len(a.AddLabelIDs) == 0 && len(a.RemoveLabelIDs) == 0 && a.Forward == "" &&
		!a.Archive && !a.MarkAsRead && !a.Star && !a.MarkAsSpam && !a.Delete
}

// FilterInfo is a stored filter.
type FilterInfo struct {
	ID       string         `json:"id"`
	Criteria FilterCriteria `json:"criteria"`
	Action   FilterAction   `json:"action"`
}

// CreateFilter stores a new filter. A filter with no criteria or no action
// is rejected locally; Gmail would accept some degenerate shapes and the
// result is never what the caller wanted.
func (c *Client) CreateFilter(ctx context.Context, criteria FilterCriteria, action FilterAction) (info *FilterInfo, err error) {
	const op = "create_filter"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if criteria.empty() {
		return nil, validationErr(op, "at least one filter criterion is required")
	}
	if action.empty() {
		return nil, validationErr(op, "at least one filter action is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	gmailCriteria := &gmail.FilterCriteria{
		From:          criteria.From,
		To:            criteria.To,
		Subject:       criteria.Subject,
		Query:         criteria.Query,
		HasAttachment: criteria.HasAttachment,
	}
	if criteria.Size > 0 {
		gmailCriteria.Size = criteria.Size
		gmailCriteria.SizeComparison = criteria.SizeComparison
	}

	gmailAction := &gmail.FilterAction{
		AddLabelIds:    action.AddLabelIDs,
		RemoveLabelIds: action.RemoveLabelIDs,
		Forward:        action.Forward,
	}
	if action.Archive {
		gmailAction.RemoveLabelIds = append(gmailAction.RemoveLabelIds, "INBOX")
	}
	if action.MarkAsRead {
		gmailAction.RemoveLabelIds = append(gmailAction.RemoveLabelIds, "UNREAD")
	}
	if action.Star {
		gmailAction.AddLabelIds = append(gmailAction.AddLabelIds, "STARRED")
	}
	if action.MarkAsSpam {
		gmailAction.AddLabelIds = append(gmailAction.AddLabelIds, "SPAM")
	}
	if action.Delete {
		gmailAction.AddLabelIds = append(gmailAction.AddLabelIds, "TRASH")
	}

	created, err := c.svc.Users.Settings.Filters.Create(userID, &gmail.Filter{
		Criteria: gmailCriteria,
		Action:   gmailAction,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, "", err)
	}
	return filterInfo(created), nil
}

// ListFilters returns every stored filter.
func (c *Client) ListFilters(ctx context.Context) (filters []*FilterInfo, err error) {
	const op = "list_filters"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	resp, err := c.svc.Users.Settings.Filters.List(userID).Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, "", err)
	}

	filters = make([]*FilterInfo, 0, len(resp.Filter))
	for _, f := range resp.Filter {
		filters = append(filters, filterInfo(f))
	}
	return filters, nil
}

// GetFilter fetches one filter by ID.
func (c *Client) GetFilter(ctx context.Context, filterID string) (info *FilterInfo, err error) {
	const op = "get_filter"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if filterID == "" {
		return nil, validationErr(op, "filter ID is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return nil, err
	}

	f, err := c.svc.Users.Settings.Filters.Get(userID, filterID).Context(ctx).Do()
	if err != nil {
		return nil, mapRemoteError(op, filterID, err)
	}
	return filterInfo(f), nil
}

// DeleteFilter removes a stored filter.
func (c *Client) DeleteFilter(ctx context.Context, filterID string) (err error) {
	const op = "delete_filter"
	defer func(start time.Time) { c.observe(ctx, op, start, err) }(time.Now())

	if filterID == "" {
		return validationErr(op, "filter ID is required")
	}
	if err := c.ensure(ctx, op); err != nil {
		return err
	}

	if err := c.svc.Users.Settings.Filters.Delete(userID, filterID).Context(ctx).Do(); err != nil {
		return mapRemoteError(op, filterID, err)
	}
	return nil
}

func filterInfo(f *gmail.Filter) *FilterInfo {
	info := &FilterInfo{ID: f.Id}
	if f.Criteria != nil {
		info.Criteria = FilterCriteria{
			From:           f.Criteria.From,
			To:             f.Criteria.To,
			Subject:        f.Criteria.Subject,
			Query:          f.Criteria.Query,
			HasAttachment:  f.Criteria.HasAttachment,
			Size:           f.Criteria.Size,
			SizeComparison: f.Criteria.SizeComparison,
		}
	}
	if f.Action != nil {
		info.Action = FilterAction{
			Forward: f.Action.Forward,
		}
		for _, id := range f.Action.AddLabelIds {
			switch id {
			case "STARRED":
				info.Action.Star = true
			case "SPAM":
				info.Action.MarkAsSpam = true
			case "TRASH":
				info.Action.Delete = true
			default:
				info.Action.AddLabelIDs = append(info.Action.AddLabelIDs, id)
			}
		}
		for _, id := range f.Action.RemoveLabelIds {
			switch id {
			case "INBOX":
				info.Action.Archive = true
			case "UNREAD":
				info.Action.MarkAsRead = true
			default:
				info.Action.RemoveLabelIDs = append(info.Action.RemoveLabelIDs, id)
			}
		}
	}
	return info
}

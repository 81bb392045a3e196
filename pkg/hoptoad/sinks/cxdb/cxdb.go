// Package cxdb provides a sink that persists notices to cxdb as SystemMessage items.
package cxdb

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/samber/lo"
	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/strongdm/hoptoad-notifier/pkg/hoptoad"
)

// Client is the subset of *cxdbclient.Client the sink needs.
type Client interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// Option configures the cxdb sink.
type Option func(*sink)

// WithContextID appends every notice to an existing context instead of
// opening one per notice.
func WithContextID(id uint64) Option {
	return func(s *sink) {
		s.contextID = id
	}
}

// WithLabels sets the labels attached to contexts the sink creates.
func WithLabels(labels ...string) Option {
	return func(s *sink) {
		s.labels = labels
	}
}

// WithClientTag sets the client tag attached to contexts the sink creates.
func WithClientTag(tag string) Option {
	return func(s *sink) {
		s.clientTag = tag
	}
}

type sink struct {
	client    Client
	contextID uint64
	labels    []string
	clientTag string
}

// New creates a sink that writes to cxdb.
func New(client Client, opts ...Option) hoptoad.Sink {
	s := &sink{
		client:    client,
		labels:    []string{"error", "hoptoad"},
		clientTag: "hoptoad",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write appends the notice as one turn. Without a fixed context a new
// context is created and tagged on its first turn.
func (s *sink) Write(ctx context.Context, notice *hoptoad.Notice) error {
	if notice == nil {
		return nil
	}

	contextID := s.contextID
	created := false
	if contextID == 0 {
		head, err := s.client.CreateContext(ctx, 0)
		if err != nil {
			return fmt.Errorf("create context: %w", err)
		}
		contextID = head.ContextID
		created = true
	}

	payload, err := cxdbclient.EncodeMsgpack(s.conversationItem(notice, created))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	_, err = s.client.AppendTurn(ctx, &cxdbclient.AppendRequest{
		ContextID:      contextID,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: notice.ID,
	})
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *sink) conversationItem(notice *hoptoad.Notice, created bool) *cxdtypes.ConversationItem {
	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: notice.Time.UnixMilli(),
		ID:        notice.ID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   title(notice),
			Content: details(notice),
		},
	}
	if created {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    s.labels,
			ClientTag: s.clientTag,
		}
	}
	return item
}

// title is "Class: message", capped at 100 bytes.
func title(notice *hoptoad.Notice) string {
	t := notice.ErrorClass()
	if msg := notice.ErrorMessage(); msg != "" {
		t += ": " + truncate(msg, 80)
	}
	return truncate(t, 100)
}

// truncate cuts s to at most n bytes, ellipsis included, on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - len("...")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// details encodes the redacted notice as JSON for SystemMessage.Content.
func details(notice *hoptoad.Notice) string {
	req := notice.Request()
	env := notice.ServerEnvironment()

	d := map[string]any{
		"notice_id":   notice.ID,
		"error_class": notice.ErrorClass(),
		"message":     notice.ErrorMessage(),
		"fingerprint": hoptoad.Fingerprint(notice),
		"backtrace":   lo.Map(notice.Backtrace(), func(l hoptoad.Line, _ int) string { return l.String() }),
	}
	if req.URL != "" {
		d["url"] = req.URL
	}
	if req.Controller != "" {
		d["controller"] = req.Controller
	}
	if req.Action != "" {
		d["action"] = req.Action
	}
	if len(req.Params) > 0 {
		d["params"] = toMap(req.Params)
	}
	if len(req.Session) > 0 {
		d["session"] = toMap(req.Session)
	}
	if env.EnvironmentName != "" {
		d["environment_name"] = env.EnvironmentName
	}
	if env.ProjectRoot != "" {
		d["project_root"] = env.ProjectRoot
	}

	out, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to encode details: %s"}`, err)
	}
	return string(out)
}

func toMap(vars hoptoad.Vars) map[string]any {
	m := make(map[string]any, len(vars))
	for _, v := range vars {
		m[v.Key] = toValue(v.Value)
	}
	return m
}

func toValue(v any) any {
	switch t := v.(type) {
	case hoptoad.Vars:
		return toMap(t)
	case []any:
		return lo.Map(t, func(e any, _ int) any { return toValue(e) })
	default:
		return v
	}
}

// Flush is a no-op; writes are synchronous.
func (s *sink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *sink) Close() error {
	return nil
}

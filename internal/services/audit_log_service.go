package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/repositories"
)

const (
	defaultAuditSeverity = "info"
	defaultActorType     = "unknown"
	defaultHasherPrefix  = "sha256:"
)

// AuditLogger is the minimal logging surface the audit writer needs.
type AuditLogger interface {
	Warnf(format string, args ...any)
}

// AuditLogServiceDeps bundles constructor inputs for the audit writer.
type AuditLogServiceDeps struct {
	Repository repositories.AuditLogRepository
	Clock      func() time.Time
	Logger     AuditLogger
	HashSalt   string
}

type auditLogService struct {
	repo     repositories.AuditLogRepository
	clock    func() time.Time
	logger   AuditLogger
	hashSalt string
}

// NewAuditLogService builds the audit trail writer used by the member and
// order flows.
func NewAuditLogService(deps AuditLogServiceDeps) (AuditLogService, error) {
	if deps.Repository == nil {
		return nil, fmt.Errorf("audit log service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopAuditLogger{}
	}
	return &auditLogService{
		repo:     deps.Repository,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
		hashSalt: deps.HashSalt,
	}, nil
}

// Record writes one audit entry. The write is best effort: persistence
// failures are logged and swallowed so the mutation that triggered the entry
// still succeeds.
func (s *auditLogService) Record(ctx context.Context, record AuditLogRecord) {
	if s.repo == nil {
		return
	}
	entry := s.buildEntry(record)
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Warnf("audit log append failed: %v", err)
	}
}

// List returns a page of audit entries matching the filter.
func (s *auditLogService) List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[AuditLogEntry], error) {
	if s.repo == nil {
		return domain.CursorPage[AuditLogEntry]{}, fmt.Errorf("audit log service: repository is required")
	}
	page, err := s.repo.List(ctx, repositories.AuditLogFilter{
		TargetRef:  strings.TrimSpace(filter.TargetRef),
		Actor:      strings.TrimSpace(filter.Actor),
		ActorType:  strings.TrimSpace(filter.ActorType),
		Action:     strings.TrimSpace(filter.Action),
		DateRange:  filter.DateRange,
		Pagination: domain.Pagination{PageSize: filter.Pagination.PageSize, PageToken: filter.Pagination.PageToken},
	})
	if err != nil {
		return domain.CursorPage[AuditLogEntry]{}, err
	}
	return domain.CursorPage[AuditLogEntry]{Items: page.Items, NextPageToken: page.NextPageToken}, nil
}

func (s *auditLogService) buildEntry(record AuditLogRecord) domain.AuditLogEntry {
	occurred := record.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock()
	} else {
		occurred = occurred.UTC()
	}

	entry := domain.AuditLogEntry{
		Actor:     clipText(record.Actor, 160),
		ActorType: resolveActorType(record.ActorType, record.Actor),
		Action:    clipText(record.Action, 120),
		TargetRef: clipText(record.TargetRef, 200),
		Severity:  resolveSeverity(record.Severity),
		RequestID: clipText(record.RequestID, 128),
		UserAgent: clipText(record.UserAgent, 256),
		CreatedAt: occurred,
	}

	if meta := s.redactMetadata(record.Metadata, record.SensitiveMetadataKeys); len(meta) > 0 {
		entry.Metadata = meta
	}
	if diff := s.redactDiff(record.Diff, record.SensitiveDiffKeys); len(diff) > 0 {
		entry.Diff = diff
	}
	if ip := strings.TrimSpace(record.IPAddress); ip != "" {
		entry.IPHash = defaultHasherPrefix + s.hashString(ip)
	}
	return entry
}

// redactMetadata clips every value and replaces sensitive ones with a salted
// hash so the stored trail never carries raw contact details.
func (s *auditLogService) redactMetadata(metadata map[string]any, sensitive []string) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	masked := sensitiveKeySet(sensitive)
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		k := clipText(key, 80)
		if k == "" {
			continue
		}
		if _, hide := masked[strings.ToLower(k)]; hide {
			out[k] = defaultHasherPrefix + s.hashAny(value)
			continue
		}
		out[k] = clipValue(value)
	}
	return out
}

func (s *auditLogService) redactDiff(diff map[string]AuditLogDiff, sensitive []string) map[string]any {
	if len(diff) == 0 {
		return nil
	}
	masked := sensitiveKeySet(sensitive)
	out := make(map[string]any, len(diff))
	for key, change := range diff {
		k := clipText(key, 80)
		if k == "" {
			continue
		}
		if _, hide := masked[strings.ToLower(k)]; hide {
			out[k] = map[string]any{
				"before": defaultHasherPrefix + s.hashAny(change.Before),
				"after":  defaultHasherPrefix + s.hashAny(change.After),
			}
			continue
		}
		out[k] = map[string]any{
			"before": clipValue(change.Before),
			"after":  clipValue(change.After),
		}
	}
	return out
}

func (s *auditLogService) hashString(value string) string {
	sum := sha256.Sum256([]byte(s.hashSalt + strings.TrimSpace(value)))
	return hex.EncodeToString(sum[:])
}

// hashAny folds arbitrary values into a stable digest. JSON is the canonical
// form because encoding/json emits map keys in sorted order; values it cannot
// marshal fall back to fmt's sorted-map rendering.
func (s *auditLogService) hashAny(value any) string {
	switch v := value.(type) {
	case string:
		return s.hashString(v)
	case []byte:
		return s.hashString(string(v))
	case fmt.Stringer:
		return s.hashString(v.String())
	default:
		if b, err := json.Marshal(v); err == nil {
			return s.hashString(string(b))
		}
		return s.hashString(fmt.Sprintf("%#v", value))
	}
}

type noopAuditLogger struct{}

func (noopAuditLogger) Warnf(string, ...any) {}

// resolveActorType honors an explicit well-known type and otherwise infers
// one from the actor reference. Member identities count as users.
func resolveActorType(actorType, actor string) string {
	normalized := strings.ToLower(strings.TrimSpace(actorType))
	switch normalized {
	case "user", "staff", "system", "service":
		return normalized
	}
	actor = strings.ToLower(strings.TrimSpace(actor))
	switch {
	case strings.HasPrefix(actor, "members/"), strings.HasPrefix(actor, "member:"), strings.HasPrefix(actor, "user:"):
		return "user"
	case strings.HasPrefix(actor, "staff/"), strings.HasPrefix(actor, "staff:"):
		return "staff"
	case actor == "system" || strings.HasPrefix(actor, "system:"):
		return "system"
	default:
		return defaultActorType
	}
}

func resolveSeverity(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "warn", "warning":
		return "warn"
	case "error":
		return "error"
	default:
		return defaultAuditSeverity
	}
}

func sensitiveKeySet(keys []string) map[string]struct{} {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		k := strings.ToLower(clipText(key, 80))
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func clipValue(value any) any {
	switch v := value.(type) {
	case string:
		return clipText(v, 512)
	case fmt.Stringer:
		return clipText(v.String(), 512)
	default:
		return v
	}
}

// clipText trims the input, strips control characters, and truncates the
// result to limit bytes.
func clipText(input string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range input {
		if r < 32 {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= limit {
			break
		}
	}
	return b.String()
}

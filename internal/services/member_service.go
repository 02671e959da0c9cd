package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/repositories"
)

// Member service sentinel errors.
var (
	ErrMemberInvalidInput = errors.New("member: invalid input")
	ErrMemberNotFound     = errors.New("member: not found")
	ErrMemberInvalidState = errors.New("member: invalid state")
	ErrMemberUnavailable  = errors.New("member: storage unavailable")
)

// MemberServiceDeps lists collaborators required by the member service.
type MemberServiceDeps struct {
	Members repositories.MemberRepository
	Audit   AuditLogService
	Clock   func() time.Time
	Logger  func(ctx context.Context, msg string, fields map[string]any)
}

type memberService struct {
	members repositories.MemberRepository
	audit   AuditLogService
	clock   func() time.Time
	logger  func(ctx context.Context, msg string, fields map[string]any)
}

// NewMemberService builds a MemberService.
func NewMemberService(deps MemberServiceDeps) (MemberService, error) {
	if deps.Members == nil {
		return nil, fmt.Errorf("%w: member repository is required", ErrMemberInvalidInput)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &memberService{
		members: deps.Members,
		audit:   deps.Audit,
		clock:   func() time.Time { return clock().UTC() },
		logger:  logger,
	}, nil
}

var _ MemberService = (*memberService)(nil)

func (s *memberService) GetMember(ctx context.Context, memberID string) (domain.Member, error) {
	id := strings.TrimSpace(memberID)
	if id == "" {
		return domain.Member{}, fmt.Errorf("%w: member id is required", ErrMemberInvalidInput)
	}
	member, err := s.members.FindByID(ctx, id)
	if err != nil {
		return domain.Member{}, s.translateRepoError(err)
	}
	return member, nil
}

func (s *memberService) UpdateProfile(ctx context.Context, cmd UpdateMemberProfileCommand) (domain.Member, error) {
	member, err := s.GetMember(ctx, cmd.MemberID)
	if err != nil {
		return domain.Member{}, err
	}

	changed := false
	changed = applyStringField(&member.CompanyName, cmd.CompanyName) || changed
	changed = applyStringField(&member.ContactName, cmd.ContactName) || changed
	changed = applyStringField(&member.Phone, cmd.Phone) || changed
	changed = applyStringField(&member.DefaultDeliveryLocation, cmd.DefaultDeliveryLocation) || changed
	if !changed {
		return member, nil
	}
	if member.CompanyName == "" {
		return domain.Member{}, fmt.Errorf("%w: company name is required", ErrMemberInvalidInput)
	}

	member.UpdatedAt = s.clock()
	saved, err := s.members.Upsert(ctx, member)
	if err != nil {
		return domain.Member{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *memberService) ListMembers(ctx context.Context, filter MemberListFilter) (domain.CursorPage[domain.Member], error) {
	page, err := s.members.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.Member]{}, s.translateRepoError(err)
	}
	return page, nil
}

// Approve moves a pending account into the approved pool so it can trade.
func (s *memberService) Approve(ctx context.Context, cmd MemberModerationCommand) (domain.Member, error) {
	member, err := s.GetMember(ctx, cmd.MemberID)
	if err != nil {
		return domain.Member{}, err
	}
	if member.Status == domain.MemberStatusApproved {
		return member, nil
	}
	if member.Status != domain.MemberStatusPending && member.Status != domain.MemberStatusSuspended {
		return domain.Member{}, fmt.Errorf("%w: cannot approve from %s", ErrMemberInvalidState, member.Status)
	}

	now := s.clock()
	before := member.Status
	member.Status = domain.MemberStatusApproved
	member.ApprovedAt = &now
	member.UpdatedAt = now
	if member.Role == "" {
		member.Role = domain.MemberRoleBuyer
	}

	saved, err := s.members.Upsert(ctx, member)
	if err != nil {
		return domain.Member{}, s.translateRepoError(err)
	}
	s.recordModeration(ctx, "member.approve", cmd, before, saved.Status)
	return saved, nil
}

// Suspend blocks an account from placing orders until re-approved.
func (s *memberService) Suspend(ctx context.Context, cmd MemberModerationCommand) (domain.Member, error) {
	member, err := s.GetMember(ctx, cmd.MemberID)
	if err != nil {
		return domain.Member{}, err
	}
	if member.Status == domain.MemberStatusSuspended {
		return member, nil
	}

	before := member.Status
	member.Status = domain.MemberStatusSuspended
	member.UpdatedAt = s.clock()

	saved, err := s.members.Upsert(ctx, member)
	if err != nil {
		return domain.Member{}, s.translateRepoError(err)
	}
	s.recordModeration(ctx, "member.suspend", cmd, before, saved.Status)
	return saved, nil
}

func (s *memberService) recordModeration(ctx context.Context, action string, cmd MemberModerationCommand, before, after domain.MemberStatus) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, AuditLogRecord{
		Actor:      cmd.ActorID,
		ActorType:  "staff",
		Action:     action,
		TargetRef:  "members/" + strings.TrimSpace(cmd.MemberID),
		OccurredAt: s.clock(),
		Metadata:   map[string]any{"reason": strings.TrimSpace(cmd.Reason)},
		Diff: map[string]AuditLogDiff{
			"status": {Before: string(before), After: string(after)},
		},
	})
}

func (s *memberService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrMemberNotFound
		case repoErr.IsUnavailable():
			return ErrMemberUnavailable
		}
		return ErrMemberUnavailable
	}
	return ErrMemberUnavailable
}

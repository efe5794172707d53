package service

import (
	"context"
	"time"

	"github.com/gilvint/headspace-agent/internal/domain"
)

// QuotaRepository is the persistent counter store. Consume must be a single
// atomic increment-and-compare: when the increment would pass limit it
// applies nothing and reports allowed=false.
type QuotaRepository interface {
	Consume(ctx context.Context, identityKey string, day time.Time, cost, limit int) (used int, allowed bool, err error)
}

// QuotaConfig holds the daily allotments per identity class.
type QuotaConfig struct {
	AnonDailyLimit int
	AuthDailyLimit int
}

// QuotaIdentity is the caller as the gate sees it. UserID is empty for
// anonymous callers; IPHash is always set and never a raw address.
type QuotaIdentity struct {
	UserID  string
	IPHash  string
	IsOwner bool
}

// Key returns the counter key: the user id when authenticated, the hashed
// IP otherwise.
func (i QuotaIdentity) Key() string {
	if i.UserID != "" {
		return "user:" + i.UserID
	}
	return "ip:" + i.IPHash
}

// QuotaGate enforces the hard daily cap. Buckets reset at UTC midnight;
// there is no decay within a day and denied requests are never charged.
type QuotaGate struct {
	repo QuotaRepository
	cfg  QuotaConfig
	now  func() time.Time
}

func NewQuotaGate(repo QuotaRepository, cfg QuotaConfig) *QuotaGate {
	return &QuotaGate{
		repo: repo,
		cfg:  cfg,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Consume charges cost against the identity's daily bucket. The owner
// identity bypasses the gate entirely. A storage failure is surfaced as a
// gate failure, never silently mapped to allowed or denied.
func (g *QuotaGate) Consume(ctx context.Context, identity QuotaIdentity, cost int) (domain.QuotaDecision, error) {
	if identity.IsOwner {
		return domain.QuotaDecision{Allowed: true, Remaining: domain.UnlimitedRemaining}, nil
	}

	if cost <= 0 {
		cost = 1
	}

	limit := g.cfg.AnonDailyLimit
	if identity.UserID != "" {
		limit = g.cfg.AuthDailyLimit
	}

	day := g.now().Truncate(24 * time.Hour)

	used, allowed, err := g.repo.Consume(ctx, identity.Key(), day, cost, limit)
	if err != nil {
		return domain.QuotaDecision{}, domain.NewDomainErrorWithCause(domain.ErrCodeQuotaGateFailure, "quota check failed", err)
	}

	if !allowed {
		return domain.QuotaDecision{Allowed: false, Remaining: 0}, nil
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return domain.QuotaDecision{Allowed: true, Remaining: remaining}, nil
}

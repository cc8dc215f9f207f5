package quota

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alurai_backend/internal/model"
	"alurai_backend/pkg/plan"
)

// EnforcementMode decides what a quota check answers when storage fails.
// Permissive favors availability: infrastructure errors never block users.
type EnforcementMode string

const (
	Permissive EnforcementMode = "permissive"
	Strict     EnforcementMode = "strict"
)

// ErrUnavailable is returned in strict mode when a counter cannot be read
// or written.
var ErrUnavailable = fmt.Errorf("usage storage unavailable")

type Result struct {
	Allowed      bool   `json:"allowed"`
	CurrentUsage int64  `json:"current_usage"`
	Limit        int64  `json:"limit"` // -1 means unlimited
	Message      string `json:"message,omitempty"`
}

type Tracker struct {
	db   *gorm.DB
	mode EnforcementMode
}

var GlobalTracker *Tracker

func InitTracker(db *gorm.DB, mode EnforcementMode) {
	if mode != Strict {
		mode = Permissive
	}
	GlobalTracker = NewTracker(db, mode)
}

func NewTracker(db *gorm.DB, mode EnforcementMode) *Tracker {
	return &Tracker{db: db, mode: mode}
}

func (t *Tracker) Mode() EnforcementMode {
	return t.mode
}

// TierForUser resolves the user's tier from their active subscription,
// defaulting to free.
func (t *Tracker) TierForUser(userID uint) plan.Tier {
	var userSub model.UserSubscription
	err := t.db.Where("user_id = ? AND status IN ?", userID,
		[]model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusTrialing}).
		Preload("Plan").
		Order("created_at DESC").
		First(&userSub).Error
	if err != nil {
		return plan.FreeTier
	}
	return plan.Tier(userSub.Plan.Tier)
}

// TrackUsage increments the user's counter for action by amount and reports
// whether the post-increment usage is within the plan limit. The increment
// is a single upsert with a SQL-level addition, so concurrent requests never
// lose updates. On storage errors the permissive mode answers allowed.
func (t *Tracker) TrackUsage(userID uint, action plan.Action, amount int64) (Result, error) {
	if !plan.ValidAction(action) {
		return Result{}, fmt.Errorf("unknown usage action: %s", action)
	}
	if amount < 0 {
		return Result{}, fmt.Errorf("usage amount must not be negative")
	}

	limit := plan.LimitFor(t.TierForUser(userID), action)

	stat := model.UsageStat{
		UserID:      userID,
		Action:      string(action),
		Count:       amount,
		PeriodStart: periodStart(time.Now()),
	}

	err := t.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "action"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("count + ?", amount),
			"updated_at": time.Now(),
		}),
	}).Create(&stat).Error
	if err != nil {
		return t.storageFailure(limit, err)
	}

	var current model.UsageStat
	if err := t.db.Where("user_id = ? AND action = ?", userID, string(action)).
		First(&current).Error; err != nil {
		return t.storageFailure(limit, err)
	}

	res := Result{
		Allowed:      true,
		CurrentUsage: current.Count,
		Limit:        limit,
	}
	if limit != plan.Unlimited && current.Count > limit {
		res.Allowed = false
		res.Message = fmt.Sprintf("Usage limit exceeded for %s (%d/%d). Upgrade your plan to continue.",
			action, current.Count, limit)
	}
	return res, nil
}

// CheckQuota answers whether one more unit of action would be within limit.
// Read-only; nothing is incremented.
func (t *Tracker) CheckQuota(userID uint, action plan.Action) (Result, error) {
	if !plan.ValidAction(action) {
		return Result{}, fmt.Errorf("unknown usage action: %s", action)
	}

	limit := plan.LimitFor(t.TierForUser(userID), action)

	var stat model.UsageStat
	err := t.db.Where("user_id = ? AND action = ?", userID, string(action)).
		First(&stat).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return t.storageFailure(limit, err)
	}

	res := Result{
		Allowed:      true,
		CurrentUsage: stat.Count,
		Limit:        limit,
	}
	if limit != plan.Unlimited && stat.Count >= limit {
		res.Allowed = false
		res.Message = fmt.Sprintf("Usage limit reached for %s (%d/%d).", action, stat.Count, limit)
	}
	return res, nil
}

// GetUserUsageStats reads all counters for display. Actions with no row yet
// report zero usage.
func (t *Tracker) GetUserUsageStats(userID uint) (map[plan.Action]Result, error) {
	tier := t.TierForUser(userID)

	var stats []model.UsageStat
	if err := t.db.Where("user_id = ?", userID).Find(&stats).Error; err != nil {
		if t.mode == Strict {
			return nil, ErrUnavailable
		}
		log.Printf("quota: could not read usage stats for user %d: %v", userID, err)
		stats = nil
	}

	counts := make(map[string]int64, len(stats))
	for _, s := range stats {
		counts[s.Action] = s.Count
	}

	out := make(map[plan.Action]Result)
	for action, limit := range plan.GetTierLimits(tier).Actions {
		count := counts[string(action)]
		out[action] = Result{
			Allowed:      limit == plan.Unlimited || count < limit,
			CurrentUsage: count,
			Limit:        limit,
		}
	}
	return out, nil
}

// ResetUserUsage zeroes one counter, or all of them when action is empty.
// Used for corrections and the monthly period rollover.
func (t *Tracker) ResetUserUsage(userID uint, action plan.Action) error {
	query := t.db.Model(&model.UsageStat{}).Where("user_id = ?", userID)
	if action != "" {
		if !plan.ValidAction(action) {
			return fmt.Errorf("unknown usage action: %s", action)
		}
		query = query.Where("action = ?", string(action))
	}
	return query.Updates(map[string]interface{}{
		"count":        0,
		"period_start": periodStart(time.Now()),
	}).Error
}

// SetUsage overwrites a counter. Administrative correction only.
func (t *Tracker) SetUsage(userID uint, action plan.Action, amount int64) error {
	if !plan.ValidAction(action) {
		return fmt.Errorf("unknown usage action: %s", action)
	}
	if amount < 0 {
		return fmt.Errorf("usage amount must not be negative")
	}

	stat := model.UsageStat{
		UserID:      userID,
		Action:      string(action),
		Count:       amount,
		PeriodStart: periodStart(time.Now()),
	}
	return t.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "action"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      amount,
			"updated_at": time.Now(),
		}),
	}).Create(&stat).Error
}

// ResetAllUsage zeroes every counter in storage. Monthly rollover entry point.
func (t *Tracker) ResetAllUsage() error {
	return t.db.Model(&model.UsageStat{}).Where("1 = 1").Updates(map[string]interface{}{
		"count":        0,
		"period_start": periodStart(time.Now()),
	}).Error
}

func (t *Tracker) storageFailure(limit int64, err error) (Result, error) {
	if t.mode == Strict {
		return Result{}, ErrUnavailable
	}
	log.Printf("quota: storage error, answering allowed: %v", err)
	return Result{
		Allowed: true,
		Limit:   limit,
		Message: "usage tracking temporarily unavailable",
	}, nil
}

func periodStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

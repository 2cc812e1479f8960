package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"boardly/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DueDateMonitor periodically sweeps cards with due dates and synthesizes
// DUE_DATE_APPROACHING events for boards that have rules for them. The
// match itself (daysBeforeDue conditions) stays in the evaluator; the
// monitor only manufactures the events.
type DueDateMonitor struct {
	db         *gorm.DB
	logger     *logrus.Logger
	automation *AutomationService

	mu      sync.Mutex
	emitted map[uint]int // card id -> daysBeforeDue last emitted
}

func NewDueDateMonitor(db *gorm.DB, logger *logrus.Logger, automation *AutomationService) *DueDateMonitor {
	if logger == nil {
		logger = logrus.New()
	}
	return &DueDateMonitor{
		db:         db,
		logger:     logger,
		automation: automation,
		emitted:    make(map[uint]int),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (m *DueDateMonitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	m.logger.Infof("due-date monitor started, interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("due-date monitor stopped")
			return
		case <-ticker.C:
			if n, err := m.Sweep(ctx); err != nil {
				m.logger.Warnf("due-date sweep failed: %v", err)
			} else if n > 0 {
				m.logger.Infof("due-date sweep emitted %d event(s)", n)
			}
		}
	}
}

// Sweep emits one event per open card per days-before-due value. A card is
// re-emitted only when the remaining-days value changes, so each threshold
// fires once.
func (m *DueDateMonitor) Sweep(ctx context.Context) (int, error) {
	boardIDs, err := m.boardsWithDueDateRules(ctx)
	if err != nil {
		return 0, err
	}
	if len(boardIDs) == 0 {
		return 0, nil
	}

	now := time.Now()
	var cards []models.Card
	if err := m.db.WithContext(ctx).
		Where("board_id IN ?", boardIDs).
		Where("due_date IS NOT NULL AND due_date > ?", now).
		Where("status NOT IN ?", []string{"done", "archived"}).
		Find(&cards).Error; err != nil {
		return 0, fmt.Errorf("load cards: %w", err)
	}

	emitted := 0
	for _, card := range cards {
		daysLeft := daysUntil(now, *card.DueDate)
		m.mu.Lock()
		last, seen := m.emitted[card.ID]
		if seen && last == daysLeft {
			m.mu.Unlock()
			continue
		}
		m.emitted[card.ID] = daysLeft
		m.mu.Unlock()

		m.automation.HandleEvent(ctx, DomainEvent{
			Type:          TriggerDueDateApproaching,
			BoardID:       card.BoardID,
			CardID:        card.ID,
			ListID:        card.ListID,
			DaysBeforeDue: daysLeft,
		})
		emitted++
	}
	return emitted, nil
}

func (m *DueDateMonitor) boardsWithDueDateRules(ctx context.Context) ([]uint, error) {
	var boardIDs []uint
	err := m.db.WithContext(ctx).Model(&models.Automation{}).
		Where("trigger_type = ? AND active = ?", TriggerDueDateApproaching, true).
		Distinct("board_id").
		Pluck("board_id", &boardIDs).Error
	if err != nil {
		return nil, fmt.Errorf("load rule boards: %w", err)
	}
	return boardIDs, nil
}

// daysUntil counts whole days remaining, rounding up: due in 30 hours is 2
// days out, due in 10 hours is 1.
func daysUntil(now, due time.Time) int {
	hours := due.Sub(now).Hours()
	days := int(hours / 24)
	if hours > float64(days)*24 {
		days++
	}
	return days
}

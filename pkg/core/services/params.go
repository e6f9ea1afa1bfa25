package services

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/mfleming/demoroster/internal/config"
	"github.com/mfleming/demoroster/pkg/core/engine"
	"github.com/mfleming/demoroster/pkg/core/model"
)

// ScheduleParams builds engine parameters from configuration, expanding the
// blackout recurrence rules into concrete dates around the window.
func ScheduleParams(cfg *config.Config, window model.DateRange, logger *zap.Logger) (engine.Params, error) {
	params := engine.DefaultParams()
	if cfg.ShortNoticeDays > 0 {
		params.ShortNoticeDays = cfg.ShortNoticeDays
	}
	if cfg.MaxBumpsPerEvent > 0 {
		params.MaxBumpsPerEvent = cfg.MaxBumpsPerEvent
	}
	if cfg.MinDaysToDueDate > 0 {
		params.MinDaysToDueDate = cfg.MinDaysToDueDate
	}

	if len(cfg.BlackoutRules) == 0 {
		return params, nil
	}

	// Expand each rule over the window with a buffer on both sides so edge
	// dates are covered.
	searchStart := window.Start.AddDate(0, 0, -7)
	searchEnd := window.End.AddDate(0, 0, 7)

	params.Blackouts = make(map[time.Time]bool)
	for i, raw := range cfg.BlackoutRules {
		rule, err := rrule.StrToRRule(raw)
		if err != nil {
			return engine.Params{}, fmt.Errorf("failed to parse blackout rule %d: %w", i, err)
		}
		rule.DTStart(searchStart)
		for _, occurrence := range rule.Between(searchStart, searchEnd, true) {
			params.Blackouts[model.Midnight(occurrence)] = true
		}
	}

	logger.Debug("Expanded blackout rules",
		zap.Int("rules", len(cfg.BlackoutRules)),
		zap.Int("dates", len(params.Blackouts)))

	return params, nil
}

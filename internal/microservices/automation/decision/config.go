package decision

import "restaurant-automation/internal/common/config"

// ConfigFrom overlays the tunables exposed in the service config on
// DefaultConfig. Zero values keep the default.
func ConfigFrom(c config.DecisionConfig) Config {
	cfg := DefaultConfig()
	if c.BasePrepMinutes > 0 {
		cfg.BasePrepMinutes = c.BasePrepMinutes
	}
	if c.SpecialPrepMinutes > 0 {
		cfg.SpecialPrepExtra = c.SpecialPrepMinutes
	}
	if c.MinPrepMinutes > 0 {
		cfg.MinPrepMinutes = c.MinPrepMinutes
	}
	if len(c.SpecialKeywords) > 0 {
		cfg.SpecialKeywords = c.SpecialKeywords
	}
	if c.VIPKeyword != "" {
		cfg.VIPKeyword = c.VIPKeyword
	}
	if c.HighLoadThreshold > 0 {
		cfg.HighLoadAbove = c.HighLoadThreshold
	}
	if c.UrgentPriority > 0 {
		cfg.UrgentPriority = c.UrgentPriority
	}
	if c.WaitMinutesPerStep > 0 {
		cfg.WaitMinutesPerStep = c.WaitMinutesPerStep
	}
	if c.WaitScoreCap > 0 {
		cfg.WaitScoreCap = c.WaitScoreCap
	}
	if c.UrgentBonus > 0 {
		cfg.UrgentBonus = c.UrgentBonus
	}
	return cfg
}

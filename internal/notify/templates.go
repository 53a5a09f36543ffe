package notify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
)

// Templates maps a message class to its pool of text/template strings.
// Message classes are event kinds, except verification results, which use
// one class per verdict (see Key).
type Templates map[string][]string

// Key returns the message class of ev.
func Key(ev domain.ReminderEvent) string {
	if ev.Kind == domain.KindVerificationResult {
		return "verification_" + ev.Verdict.String()
	}
	return string(ev.Kind)
}

// DefaultTemplates returns the built-in pools.
func DefaultTemplates() Templates {
	return Templates{
		string(domain.KindWaterDue): {
			"💧 Time to drink some water.",
			"💧 It's been a while. Grab a glass of water.",
			"💧 Hydration check: drink some water now.",
		},
		string(domain.KindFastingMilestone): {
			"⏳ You've been fasting for {{.Hours}} hours.",
			"⏳ {{.Hours}} hours since your last meal. Keep going!",
			"⏳ Fasting milestone: {{.Hours}}h.",
		},
		string(domain.KindWindowOpened): {
			"🍽️ Eating window is now open.",
			"🍽️ Your eating window just opened. Enjoy your meal.",
		},
		string(domain.KindWindowClosingSoon): {
			"⚠️ Eating window closes in 30 minutes.",
			"⚠️ 30 minutes left in your eating window.",
		},
		string(domain.KindWindowClosed): {
			"⏳ Eating window closed. Fasting begins.",
			"⏳ Window closed. The fast starts now.",
		},
		"verification_compliant": {
			"✅ Verified: found your check-in post for today.",
			"✅ Check-in post found. Nice work today!",
		},
		"verification_non_compliant": {
			"❌ No check-in post found for today's window.",
			"❌ I couldn't find today's check-in post. Don't forget to post it.",
		},
		"verification_unknown": {
			"❔ Could not verify your check-in today: the lookup was unavailable.",
			"❔ Verification is unavailable right now, so today's check-in is unconfirmed.",
		},
		string(domain.KindDailySummary): {
			"📊 Daily Summary\n\n💧 Water: {{.WaterMl}}/{{.GoalMl}} ml\n✅ Keep it up!",
		},
	}
}

// LoadTemplates reads a JSON object of class -> []template from path and merges it over the defaults.
// An empty path returns the defaults.
func LoadTemplates(path string) (Templates, error) {
	t := DefaultTemplates()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var override Templates
	if err := json.Unmarshal(raw, &override); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	for k, pool := range override {
		if _, ok := t[k]; !ok {
			return nil, fmt.Errorf("templates %s: unknown message class %q", path, k)
		}
		if len(pool) == 0 {
			return nil, fmt.Errorf("templates %s: empty pool for %q", path, k)
		}
		t[k] = pool
	}
	return t, nil
}

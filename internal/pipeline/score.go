package pipeline

import (
	"strings"

	"github.com/gconnect/leadgen-cli/internal/model"
)

// genericPrefixes are email local-part prefixes that suggest a shared inbox
// rather than a person.
var genericPrefixes = []string{"info", "contact", "support", "sales", "admin"}

// Score computes the additive priority score and tier for a lead. Pure and
// deterministic; the weights and cutoffs are business rules, not tunables.
func Score(lead model.Lead) (int, model.PriorityTier) {
	name := strings.ToLower(lead.Name)
	cat := strings.ToLower(lead.Category)

	score := 0

	switch {
	case strings.Contains(cat, "architect") || strings.Contains(cat, "real_estate"):
		score += 15
	case strings.Contains(cat, "restaurant") || strings.Contains(cat, "cafe") || strings.Contains(cat, "gym"):
		score += 10
	}

	if containsAny(name, "group", "pvt", "corp", "ltd") {
		score += 10
	}

	if lead.HasEmail() {
		if hasGenericPrefix(lead.Email) {
			score -= 5
		} else {
			score += 5
		}
	}

	final := score
	if final < 0 {
		final = 0
	}

	return final, tierFor(score)
}

// tierFor maps the raw (unclamped) score onto a priority tier.
func tierFor(score int) model.PriorityTier {
	switch {
	case score >= 25:
		return model.TierHot
	case score >= 10:
		return model.TierWarm
	default:
		return model.TierCold
	}
}

// hasGenericPrefix reports whether the email's local part starts with a
// shared-inbox prefix.
func hasGenericPrefix(email string) bool {
	lower := strings.ToLower(email)
	for _, p := range genericPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// containsAny checks if s contains any of the given substrings.
func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package rules

import (
	"fmt"

	"github.com/spf13/viper"
)

// InsightRule fires when every high category scores well and every low
// category scores poorly at the same time, pointing at a known cause/effect
// pattern between survey categories.
type InsightRule struct {
	ID             string   `mapstructure:"id"`
	HighCategories []string `mapstructure:"high_categories"`
	LowCategories  []string `mapstructure:"low_categories"`
	Insight        string   `mapstructure:"insight"`
	Recommendation string   `mapstructure:"recommendation"`
}

// Theme is one comment-theme bucket with its match keywords.
type Theme struct {
	ID       string   `mapstructure:"id"`
	Label    string   `mapstructure:"label"`
	Keywords []string `mapstructure:"keywords"`
	Positive []string `mapstructure:"positive"`
	Negative []string `mapstructure:"negative"`
}

// Table bundles the static rule configuration consumed by the analyzers.
// Tests substitute fixture tables; production loads the built-in defaults or
// a versioned config file.
type Table struct {
	Version          int           `mapstructure:"version"`
	InsightRules     []InsightRule `mapstructure:"insight_rules"`
	Themes           []Theme       `mapstructure:"themes"`
	SharedCategories []string      `mapstructure:"shared_categories"`
	LoyaltyCategory  string        `mapstructure:"loyalty_category"`
}

// Load reads a rule table from the given config file.
func Load(path string) (*Table, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var t Table
	if err := v.Unmarshal(&t); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if len(t.InsightRules) == 0 {
		return nil, fmt.Errorf("rules file %s contains no insight rules", path)
	}
	return &t, nil
}

// Default returns the built-in rule table.
func Default() *Table {
	return &Table{
		Version: 1,
		InsightRules: []InsightRule{
			{
				ID:             "treatment-good-wait-long",
				HighCategories: []string{"treatment"},
				LowCategories:  []string{"wait_time"},
				Insight:        "patients rate the treatment itself highly but waiting time drags overall satisfaction down",
				Recommendation: "review appointment slotting and front-desk handoff to shorten perceived waiting time",
			},
			{
				ID:             "staff-good-facility-low",
				HighCategories: []string{"staff"},
				LowCategories:  []string{"facility"},
				Insight:        "staff interactions score well while the facility itself leaves a weaker impression",
				Recommendation: "small facility refreshes (waiting room seating, signage, cleanliness checks) tend to close this gap",
			},
			{
				ID:             "explanation-good-cost-low",
				HighCategories: []string{"explanation"},
				LowCategories:  []string{"cost"},
				Insight:        "treatment explanations land well but patients feel uncertain about costs",
				Recommendation: "present written cost estimates before treatment starts, especially for self-pay options",
			},
			{
				ID:             "reception-good-wait-long",
				HighCategories: []string{"reception"},
				LowCategories:  []string{"wait_time"},
				Insight:        "reception is friendly but patients still wait too long after check-in",
				Recommendation: "surface expected waiting time at check-in and stagger chair preparation",
			},
			{
				ID:             "treatment-explanation-low",
				HighCategories: []string{"staff", "reception"},
				LowCategories:  []string{"explanation"},
				Insight:        "the team is well liked but treatment explanations are not landing",
				Recommendation: "adopt a short visual explanation routine (mirror, photos, models) before each treatment",
			},
		},
		Themes: []Theme{
			{
				ID:       "waiting",
				Label:    "waiting time",
				Keywords: []string{"wait", "waiting", "queue", "delay", "late"},
				Positive: []string{"short", "quick", "no wait", "on time"},
				Negative: []string{"long", "slow", "forever", "delayed"},
			},
			{
				ID:       "staff",
				Label:    "staff attitude",
				Keywords: []string{"staff", "nurse", "hygienist", "receptionist", "assistant"},
				Positive: []string{"kind", "friendly", "polite", "helpful", "attentive"},
				Negative: []string{"rude", "cold", "unfriendly", "dismissive"},
			},
			{
				ID:       "explanation",
				Label:    "treatment explanation",
				Keywords: []string{"explain", "explanation", "described", "informed"},
				Positive: []string{"clear", "thorough", "detailed", "easy to understand"},
				Negative: []string{"unclear", "confusing", "rushed", "no explanation"},
			},
			{
				ID:       "pain",
				Label:    "pain and comfort",
				Keywords: []string{"pain", "hurt", "painful", "numb", "anesthesia", "comfort"},
				Positive: []string{"painless", "gentle", "comfortable", "no pain"},
				Negative: []string{"hurt", "painful", "rough", "uncomfortable"},
			},
			{
				ID:       "cost",
				Label:    "cost and billing",
				Keywords: []string{"cost", "price", "expensive", "billing", "fee", "insurance"},
				Positive: []string{"reasonable", "fair", "worth"},
				Negative: []string{"expensive", "overpriced", "surprise", "hidden"},
			},
			{
				ID:       "facility",
				Label:    "cleanliness and facility",
				Keywords: []string{"clean", "facility", "equipment", "waiting room", "chair", "modern"},
				Positive: []string{"clean", "modern", "comfortable", "new"},
				Negative: []string{"dirty", "old", "outdated", "cramped"},
			},
		},
		SharedCategories: []string{
			"wait_time", "staff", "explanation", "treatment", "reception", "facility", "cost",
		},
		LoyaltyCategory: "loyalty",
	}
}

package insight

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	cerrors "github.com/blueberrycongee/llmcoach/pkg/errors"
)

// Predicate reports whether a message matches a rule.
type Predicate func(message string) bool

// Rule pairs an insight category with the predicate that detects it.
type Rule struct {
	Category  string
	Predicate Predicate
}

// RegexRule compiles pattern case-insensitively into a Rule.
func RegexRule(category, pattern string) (Rule, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Rule{}, cerrors.NewConfigurationError(fmt.Sprintf("insight rule %q: invalid pattern", category), err)
	}
	return Rule{Category: category, Predicate: re.MatchString}, nil
}

// MustRegexRule is like RegexRule but panics on an invalid pattern.
func MustRegexRule(category, pattern string) Rule {
	r, err := RegexRule(category, pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// KeywordRule matches when any of the words occurs in the message,
// ignoring case.
func KeywordRule(category string, words ...string) Rule {
	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}
	return Rule{
		Category: category,
		Predicate: func(message string) bool {
			m := strings.ToLower(message)
			for _, w := range lowered {
				if w != "" && strings.Contains(m, w) {
					return true
				}
			}
			return false
		},
	}
}

// Insight categories of the default rule table.
const (
	CategoryFoodPreference        = "food_preference"
	CategoryDigestiveResponse     = "digestive_response"
	CategoryLifestyleChange       = "lifestyle_change"
	CategorySleepPattern          = "sleep_pattern"
	CategoryAchievement           = "achievement"
	CategorySymptomChange         = "symptom_change"
	CategoryMoodPattern           = "mood_pattern"
	CategoryStressEating          = "stress_eating"
	CategoryEnergyLevel           = "energy_level"
	CategoryExercisePerformance   = "exercise_performance"
	CategorySocialEating          = "social_eating"
	CategoryEnvironmentalFactor   = "environmental_factor"
	CategoryHealthCondition       = "health_condition"
	CategoryMedicationInteraction = "medication_interaction"
)

// RuleSpec is the data form of a regex rule, as stored in YAML.
type RuleSpec struct {
	Category string `yaml:"category" json:"category"`
	Pattern  string `yaml:"pattern" json:"pattern"`
}

var defaultSpecs = []RuleSpec{
	{CategoryFoodPreference, `(prefer|like|enjoy|love|dislike|hate|can't stand).*?(food|meal|snack|breakfast|lunch|dinner|ingredient)`},
	{CategoryDigestiveResponse, `(feel|feeling|makes me|causes|gives me).*?(bloated|gassy|tired|energetic|sick|nauseous|digestive|stomach)`},
	{CategoryLifestyleChange, `(started|stopped|changed|began|quit|resumed).*?(exercise|workout|sleep|diet|routine|meditation|supplements)`},
	{CategorySleepPattern, `(sleep|sleeping|insomnia|tired|exhausted|rested|wake up).*?(hours|better|worse|quality|schedule)`},
	{CategoryAchievement, `(lost|gained|reached|achieved|completed|hit).*?(weight|goal|target|milestone|pound|kg|inch)`},
	{CategorySymptomChange, `(pain|ache|inflammation|swelling|headache|migraine|joint|muscle).*?(better|worse|improved|reduced)`},
	{CategoryMoodPattern, `(feel|feeling|mood|emotion).*?(stressed|tired|happy|energetic|sad|anxious|depressed|motivated)`},
	{CategoryStressEating, `(stress|stressed|anxious|worried|overwhelmed).*?(eat|eating|snack|binge|crave)`},
	{CategoryEnergyLevel, `(energy|energetic|tired|fatigued|exhausted|alert|focused|concentration).*?(high|low|better|worse|stable)`},
	{CategoryExercisePerformance, `(workout|exercise|training|run|gym|strength|endurance).*?(better|worse|improved|struggling|stronger)`},
	{CategorySocialEating, `(family|friends|social|party|restaurant|dining).*?(eat|eating|food|meal|diet)`},
	{CategoryEnvironmentalFactor, `(work|office|home|cooking|meal prep|grocery|budget|time).*?(affect|impact|influence|challenge)`},
	{CategoryHealthCondition, `(diagnosed|condition|disease|illness|medication|doctor|medical|test|lab).*?(diabetes|thyroid|PCOS|IBS|allergy)`},
	{CategoryMedicationInteraction, `(medication|medicine|drug|supplement|vitamin|mineral).*?(food|meal|timing|interaction)`},
}

// DefaultRuleSpecs returns the data form of the default rule table.
func DefaultRuleSpecs() []RuleSpec {
	out := make([]RuleSpec, len(defaultSpecs))
	copy(out, defaultSpecs)
	return out
}

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	rules, err := CompileRules(defaultSpecs)
	if err != nil {
		panic(err)
	}
	return rules
}

// CompileRules turns rule specs into regex rules, preserving order.
func CompileRules(specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for i, s := range specs {
		if strings.TrimSpace(s.Category) == "" {
			return nil, cerrors.NewConfigurationError(fmt.Sprintf("insight rule %d has no category", i), nil)
		}
		r, err := RegexRule(s.Category, s.Pattern)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// LoadRules parses a YAML list of {category, pattern} entries.
func LoadRules(data []byte) ([]Rule, error) {
	var specs []RuleSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, cerrors.NewConfigurationError("parse insight rules", err)
	}
	return CompileRules(specs)
}

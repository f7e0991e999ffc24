package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/blueberrycongee/llmcoach/internal/store"
)

// MoodMealParams are the getMoodMeal arguments.
type MoodMealParams struct {
	Mood string `json:"mood"`
}

// MoodModifiers describe the kind of food that suits a mood.
type MoodModifiers struct {
	Temperature string   `json:"temperature"`
	Comfort     string   `json:"comfort"`
	Nutrients   []string `json:"nutrients"`
	Colors      []string `json:"colors"`
	Textures    []string `json:"textures"`
}

// MoodMeal is a set of suggestions for one mood.
type MoodMeal struct {
	Mood        string        `json:"mood"`
	Modifiers   MoodModifiers `json:"modifiers"`
	Suggestions []string      `json:"suggestions"`
	Explanation string        `json:"explanation"`
}

// MoodMealResult is returned by getMoodMeal.
type MoodMealResult struct {
	Result
	Meal MoodMeal `json:"meal"`
}

type moodEntry struct {
	modifiers   MoodModifiers
	suggestions []string
	explanation string
}

var moodTable = map[string]moodEntry{
	"stressed": {
		modifiers: MoodModifiers{
			Temperature: "warm", Comfort: "high",
			Nutrients: []string{"magnesium", "omega-3", "vitamin B", "tryptophan"},
			Colors:    []string{"warm", "earth tones"},
			Textures:  []string{"soft", "creamy"},
		},
		suggestions: []string{
			"Warm oatmeal with banana and nuts",
			"Herbal tea with dark chocolate",
			"Comforting soup with whole grains",
			"Warm milk with honey and cinnamon",
		},
		explanation: "When you're stressed, your body needs extra magnesium and B vitamins to support your nervous system. Warm, comforting foods can help activate your parasympathetic nervous system.",
	},
	"tired": {
		modifiers: MoodModifiers{
			Temperature: "neutral", Comfort: "medium",
			Nutrients: []string{"iron", "vitamin C", "complex carbs", "protein"},
			Colors:    []string{"bright", "energizing"},
			Textures:  []string{"crisp", "fresh"},
		},
		suggestions: []string{
			"Iron-rich spinach salad with citrus",
			"Lean protein with sweet potato",
			"Green smoothie with berries",
			"Quinoa bowl with vegetables",
		},
		explanation: "Fatigue often indicates low iron or B vitamins. Iron-rich foods with vitamin C help absorption, while complex carbs provide sustained energy.",
	},
	"happy": {
		modifiers: MoodModifiers{
			Temperature: "cool", Comfort: "medium",
			Nutrients: []string{"antioxidants", "vitamins", "fiber"},
			Colors:    []string{"colorful", "vibrant"},
			Textures:  []string{"varied", "crunchy"},
		},
		suggestions: []string{
			"Colorful fruit salad",
			"Rainbow vegetable stir-fry",
			"Fresh smoothie bowl",
			"Mediterranean-style plate",
		},
		explanation: "Your positive mood is perfect for colorful, antioxidant-rich foods that support brain health and maintain your energy levels.",
	},
	"energetic": {
		modifiers: MoodModifiers{
			Temperature: "cool", Comfort: "low",
			Nutrients: []string{"protein", "complex carbs", "electrolytes"},
			Colors:    []string{"bright", "fresh"},
			Textures:  []string{"crisp", "refreshing"},
		},
		suggestions: []string{
			"Protein-rich smoothie",
			"Fresh vegetable wraps",
			"Light salad with lean protein",
			"Hydrating fruit and nuts",
		},
		explanation: "Channel your energy into light, nutritious foods that won't weigh you down. Focus on protein and complex carbs for sustained energy.",
	},
	"sad": {
		modifiers: MoodModifiers{
			Temperature: "warm", Comfort: "high",
			Nutrients: []string{"omega-3", "vitamin D", "folate", "tryptophan"},
			Colors:    []string{"warm", "comforting"},
			Textures:  []string{"soft", "nourishing"},
		},
		suggestions: []string{
			"Warm soup with vegetables",
			"Comforting pasta with vegetables",
			"Warm herbal tea",
			"Nourishing grain bowl",
		},
		explanation: "Comforting, warm foods can help boost serotonin production. Omega-3s and vitamin D are particularly important for mood support.",
	},
	"anxious": {
		modifiers: MoodModifiers{
			Temperature: "warm", Comfort: "high",
			Nutrients: []string{"magnesium", "omega-3", "vitamin B", "antioxidants"},
			Colors:    []string{"calming", "soft"},
			Textures:  []string{"smooth", "gentle"},
		},
		suggestions: []string{
			"Warm chamomile tea",
			"Soft-cooked vegetables",
			"Gentle herbal infusions",
			"Comforting porridge",
		},
		explanation: "Gentle, warm foods can help calm your nervous system. Magnesium and omega-3s are especially beneficial for anxiety.",
	},
}

// dietExclusions lists ingredient words a diet rules out.
var dietExclusions = map[string][]string{
	"vegetarian": {"chicken", "beef", "fish"},
	"vegan":      {"milk", "cheese", "yogurt", "honey"},
	"keto":       {"grain", "bread", "pasta"},
}

// FilterForDiet drops suggestions that mention an ingredient the diet
// excludes. Unknown diets and omnivore keep everything.
func FilterForDiet(suggestions []string, dietType string) []string {
	excluded, ok := dietExclusions[dietType]
	if !ok {
		return append([]string(nil), suggestions...)
	}
	out := make([]string, 0, len(suggestions))
next:
	for _, s := range suggestions {
		lower := strings.ToLower(s)
		for _, word := range excluded {
			if strings.Contains(lower, word) {
				continue next
			}
		}
		out = append(out, s)
	}
	return out
}

// MoodMealFor returns the suggestions for mood filtered for dietType.
func MoodMealFor(mood, dietType string) (MoodMeal, error) {
	e, ok := moodTable[mood]
	if !ok {
		return MoodMeal{}, fmt.Errorf("unknown mood: %s", mood)
	}
	return MoodMeal{
		Mood:        mood,
		Modifiers:   e.modifiers,
		Suggestions: FilterForDiet(e.suggestions, dietType),
		Explanation: e.explanation,
	}, nil
}

// GetMoodMeal suggests meals for the user's mood. Users without a profile get
// unfiltered suggestions.
func (h *Handlers) GetMoodMeal(ctx context.Context, p MoodMealParams) (any, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}

	var diet string
	profile, err := h.profiles.GetProfile(ctx, uid)
	switch {
	case err == nil:
		diet = profile.DietType
	case stderrors.Is(err, store.ErrNotFound):
	default:
		return nil, fmt.Errorf("load profile: %w", err)
	}

	meal, err := MoodMealFor(p.Mood, diet)
	if err != nil {
		return nil, err
	}
	return MoodMealResult{
		Result: Result{
			Success: true,
			Message: fmt.Sprintf("Based on your %s mood, here are some meal suggestions that can help support your emotional well-being while maintaining your nutritional goals.", p.Mood),
		},
		Meal: meal,
	}, nil
}

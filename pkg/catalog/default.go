package catalog

// DefaultVersion is the version of the built-in coaching catalog.
const DefaultVersion = "2024-06"

// Function names of the built-in coaching catalog.
const (
	FnGenerateMealPlan       = "generateMealPlan"
	FnUpdateMealPlan         = "updateMealPlan"
	FnGetMoodMeal            = "getMoodMeal"
	FnSuggestCardioPlan      = "suggestCardioPlan"
	FnLogProgress            = "logProgress"
	FnAdjustPlanForLifestyle = "adjustPlanForLifestyle"
	FnRateMealPlan           = "rateMealPlan"
	FnReportMealIssue        = "reportMealIssue"
)

// Moods understood by getMoodMeal and logProgress.
var Moods = []string{"stressed", "tired", "happy", "energetic", "sad", "anxious"}

// DietTypes understood by generateMealPlan.
var DietTypes = []string{"omnivore", "vegan", "vegetarian", "keto", "mediterranean", "paleo"}

func scale(desc string) Property {
	return Property{Type: TypeNumber, Minimum: Bound(1), Maximum: Bound(5), Description: desc}
}

// DefaultDescriptors returns the built-in coaching functions in catalog order.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:        FnGenerateMealPlan,
			Description: "Create a personalized meal plan based on user goals and preferences",
			Parameters: Schema{
				Type: TypeObject,
				Properties: map[string]Property{
					"goal":     {Type: TypeString, Enum: []string{"lose", "maintain", "gain"}, Description: "Primary health goal"},
					"calories": {Type: TypeNumber, Description: "Daily calorie target"},
					"preferences": {
						Type: TypeObject,
						Properties: map[string]Property{
							"dietType":      {Type: TypeString, Enum: DietTypes, Description: "Dietary preferences"},
							"allergies":     {Type: TypeArray, Items: &Property{Type: TypeString}, Description: "Food allergies"},
							"dislikes":      {Type: TypeArray, Items: &Property{Type: TypeString}, Description: "Food dislikes"},
							"cookingEffort": {Type: TypeString, Enum: []string{"quick", "budget", "gourmet"}, Description: "Cooking effort preference"},
						},
					},
				},
				Required: []string{"goal", "calories", "preferences"},
			},
		},
		{
			Name:        FnUpdateMealPlan,
			Description: "Modify an existing meal plan based on user feedback",
			Parameters: Schema{
				Type: TypeObject,
				Properties: map[string]Property{
					"section":     {Type: TypeString, Enum: []string{"breakfast", "lunch", "dinner", "snacks"}, Description: "Meal section to modify"},
					"requirement": {Type: TypeString, Description: "Specific change requested"},
				},
				Required: []string{"section", "requirement"},
			},
		},
		{
			Name:        FnGetMoodMeal,
			Description: "Suggest meals appropriate for the user's current mood",
			Parameters: Schema{
				Type: TypeObject,
				Properties: map[string]Property{
					"mood": {Type: TypeString, Enum: Moods, Description: "Current emotional state"},
				},
				Required: []string{"mood"},
			},
		},
		{
			Name:        FnSuggestCardioPlan,
			Description: "Recommend cardiovascular exercise plan",
			Parameters: Schema{
				Type: TypeObject,
				Properties: map[string]Property{
					"activityLevel": scale("Current activity level (1-5 scale)"),
					"goal":          {Type: TypeString, Description: "Primary health goal"},
					"currentWeight": {Type: TypeNumber, Description: "Current weight for calorie calculations"},
				},
				Required: []string{"activityLevel", "goal"},
			},
		},
		{
			Name:        FnLogProgress,
			Description: "Record user's daily progress and metrics",
			Parameters: Schema{
				Type: TypeObject,
				Properties: map[string]Property{
					"weight":      {Type: TypeNumber, Description: "Current weight"},
					"mood":        {Type: TypeString, Enum: Moods, Description: "Current mood"},
					"notes":       {Type: TypeString, Description: "Additional observations"},
					"sleepHours":  {Type: TypeNumber, Description: "Hours of sleep"},
					"stressLevel": scale("Stress level (1-5 scale)"),
					"steps":       {Type: TypeNumber, Description: "Daily step count"},
				},
			},
		},
		{
			Name:        FnAdjustPlanForLifestyle,
			Description: "Modify meal plan based on lifestyle factors",
			Parameters: Schema{
				Type: TypeObject,
				Properties: map[string]Property{
					"sleepHours":  {Type: TypeNumber, Description: "Average sleep duration"},
					"stressLevel": scale("Current stress level"),
					"stepsPerDay": {Type: TypeNumber, Description: "Daily activity level"},
				},
			},
		},
		{
			Name:        FnRateMealPlan,
			Description: "Record the user's star rating and feedback for a meal plan",
			Parameters: Schema{
				Type: TypeObject,
				Properties: map[string]Property{
					"mealPlanId": {Type: TypeString, Description: "Meal plan being rated"},
					"rating":     scale("Star rating (1-5)"),
					"feedback":   {Type: TypeString, Description: "Free-form feedback"},
					"mealType":   {Type: TypeString, Description: "Meal the rating refers to, if any"},
					"issues":     {Type: TypeArray, Items: &Property{Type: TypeString}, Description: "Problems noticed"},
				},
				Required: []string{"rating"},
			},
		},
		{
			Name:        FnReportMealIssue,
			Description: "Report a problem with a meal plan",
			Parameters: Schema{
				Type: TypeObject,
				Properties: map[string]Property{
					"mealPlanId":  {Type: TypeString, Description: "Meal plan concerned"},
					"issueType":   {Type: TypeString, Description: "Kind of issue, e.g. allergy, taste, portion"},
					"description": {Type: TypeString, Description: "What went wrong"},
					"suggestion":  {Type: TypeString, Description: "Suggested improvement"},
					"severity":    {Type: TypeString, Enum: []string{"low", "medium", "high"}, Description: "Issue severity"},
				},
				Required: []string{"issueType", "description"},
			},
		},
	}
}

// Default returns the built-in coaching catalog.
func Default() *Catalog {
	return MustNew(DefaultVersion, DefaultDescriptors()...)
}

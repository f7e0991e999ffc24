package catalog

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/blueberrycongee/llmcoach/pkg/errors"
)

func TestNew(t *testing.T) {
	t.Run("duplicate names are a configuration error", func(t *testing.T) {
		_, err := New("v1",
			Descriptor{Name: "a"},
			Descriptor{Name: "b"},
			Descriptor{Name: "a"},
		)
		require.Error(t, err)
		assert.True(t, cerrors.IsConfiguration(err))
		assert.Contains(t, err.Error(), `"a"`)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		_, err := New("v1", Descriptor{Name: "  "})
		require.Error(t, err)
		assert.True(t, cerrors.IsConfiguration(err))
	})

	t.Run("MustNew panics on duplicates", func(t *testing.T) {
		assert.Panics(t, func() {
			MustNew("v1", Descriptor{Name: "x"}, Descriptor{Name: "x"})
		})
	})

	t.Run("parameters default to object", func(t *testing.T) {
		c, err := New("v1", Descriptor{Name: "noop"})
		require.NoError(t, err)
		d, ok := c.Lookup("noop")
		require.True(t, ok)
		assert.Equal(t, TypeObject, d.Parameters.Type)
	})
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Equal(t, DefaultVersion, c.Version())
	assert.Equal(t, []string{
		FnGenerateMealPlan, FnUpdateMealPlan, FnGetMoodMeal, FnSuggestCardioPlan,
		FnLogProgress, FnAdjustPlanForLifestyle, FnRateMealPlan, FnReportMealIssue,
	}, c.Names())

	for _, name := range c.Names() {
		d, ok := c.Lookup(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, d.Description, name)
		for _, r := range d.Parameters.Required {
			_, declared := d.Parameters.Properties[r]
			assert.True(t, declared, "%s: required field %q is not declared", name, r)
		}
	}

	_, ok := c.Lookup("orderPizza")
	assert.False(t, ok)
}

func TestListIsACopy(t *testing.T) {
	c := Default()
	list := c.List()
	list[0].Name = "mutated"

	assert.Equal(t, FnGenerateMealPlan, c.List()[0].Name)
	assert.True(t, c.Has(FnGenerateMealPlan))
}

func TestSchemaIsolation(t *testing.T) {
	c := Default()

	d, ok := c.Lookup(FnGetMoodMeal)
	require.True(t, ok)
	mood := d.Parameters.Properties["mood"]
	mood.Enum[0] = "furious"
	d.Parameters.Required[0] = "other"
	delete(d.Parameters.Properties, "mood")

	for _, listed := range c.List() {
		if listed.Name == FnGetMoodMeal {
			listed.Parameters.Properties["mood"] = Property{Type: TypeNumber}
		}
	}

	assert.Error(t, c.ValidateArguments(FnGetMoodMeal, json.RawMessage(`{"mood":"furious"}`)))
	assert.Error(t, c.ValidateArguments(FnGetMoodMeal, json.RawMessage(`{}`)))
	assert.NoError(t, c.ValidateArguments(FnGetMoodMeal, json.RawMessage(`{"mood":"tired"}`)))

	input := Descriptor{Name: "f", Parameters: Schema{
		Properties: map[string]Property{"n": {Type: TypeInteger, Maximum: Bound(3)}},
		Required:   []string{"n"},
	}}
	built, err := New("test", input)
	require.NoError(t, err)
	*input.Parameters.Properties["n"].Maximum = 100
	input.Parameters.Properties["extra"] = Property{Type: TypeString}

	assert.Error(t, built.ValidateArguments("f", json.RawMessage(`{"n":50}`)))
	got, _ := built.Lookup("f")
	assert.NotContains(t, got.Parameters.Properties, "extra")
}

func TestValidateArguments(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		fn      string
		args    string
		wantErr string
		kind    cerrors.Kind
	}{
		{name: "valid mood", fn: FnGetMoodMeal, args: `{"mood":"stressed"}`},
		{name: "missing required", fn: FnGetMoodMeal, args: `{}`, wantErr: "mood", kind: cerrors.KindMalformedArguments},
		{name: "null required", fn: FnGetMoodMeal, args: `{"mood":null}`, wantErr: "mood", kind: cerrors.KindMalformedArguments},
		{name: "enum violation", fn: FnGetMoodMeal, args: `{"mood":"grumpy"}`, wantErr: "one of", kind: cerrors.KindMalformedArguments},
		{name: "not json", fn: FnGetMoodMeal, args: `{mood:`, wantErr: "not a JSON object", kind: cerrors.KindMalformedArguments},
		{name: "array instead of object", fn: FnGetMoodMeal, args: `["stressed"]`, kind: cerrors.KindMalformedArguments},
		{name: "null arguments", fn: FnLogProgress, args: `null`, kind: cerrors.KindMalformedArguments},
		{name: "empty arguments with no required fields", fn: FnLogProgress, args: ``},
		{name: "undeclared fields tolerated", fn: FnLogProgress, args: `{"weight":80.5,"extra":true}`},
		{name: "bound below minimum", fn: FnSuggestCardioPlan, args: `{"activityLevel":0,"goal":"lose"}`, wantErr: ">= 1", kind: cerrors.KindMalformedArguments},
		{name: "bound above maximum", fn: FnLogProgress, args: `{"stressLevel":6}`, wantErr: "<= 5", kind: cerrors.KindMalformedArguments},
		{name: "wrong type", fn: FnSuggestCardioPlan, args: `{"activityLevel":"high","goal":"lose"}`, wantErr: "number", kind: cerrors.KindMalformedArguments},
		{
			name: "nested object",
			fn:   FnGenerateMealPlan,
			args: `{"goal":"lose","calories":1800,"preferences":{"dietType":"vegan","allergies":["nuts"]}}`,
		},
		{
			name:    "nested enum",
			fn:      FnGenerateMealPlan,
			args:    `{"goal":"lose","calories":1800,"preferences":{"dietType":"carnivore"}}`,
			wantErr: "preferences.dietType",
			kind:    cerrors.KindMalformedArguments,
		},
		{
			name:    "array item type",
			fn:      FnGenerateMealPlan,
			args:    `{"goal":"lose","calories":1800,"preferences":{"allergies":[1]}}`,
			wantErr: "preferences.allergies[0]",
			kind:    cerrors.KindMalformedArguments,
		},
		{name: "unknown function", fn: "orderPizza", args: `{}`, kind: cerrors.KindUnknownFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.ValidateArguments(tt.fn, json.RawMessage(tt.args))
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, cerrors.KindOf(err))
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestPromptBlock(t *testing.T) {
	block := Default().PromptBlock()

	assert.Contains(t, block, DefaultVersion)
	assert.Contains(t, block, "`getMoodMeal(mood)`")
	assert.Contains(t, block, "`suggestCardioPlan(activityLevel, goal, currentWeight)`")
	// Declaration order is preserved.
	assert.Less(t, strings.Index(block, FnGenerateMealPlan), strings.Index(block, FnReportMealIssue))
}

func TestMCPToolsRoundTrip(t *testing.T) {
	c := Default()
	tools := c.MCPTools()
	require.Len(t, tools, c.Len())

	mood := tools[2]
	assert.Equal(t, FnGetMoodMeal, mood.Name)
	assert.Equal(t, "object", mood.InputSchema.Type)
	assert.Equal(t, []string{"mood"}, mood.InputSchema.Required)

	prop, ok := mood.InputSchema.Properties["mood"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", prop["type"])
	assert.Len(t, prop["enum"], len(Moods))

	back, err := FromMCPTool(mood)
	require.NoError(t, err)
	orig, _ := c.Lookup(FnGetMoodMeal)
	assert.Equal(t, orig, back)
}

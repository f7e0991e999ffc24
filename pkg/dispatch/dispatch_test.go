package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	cerrors "github.com/blueberrycongee/llmcoach/pkg/errors"
)

type moodParams struct {
	Mood string `json:"mood"`
}

func TestTable_TypedDispatch(t *testing.T) {
	table := NewTable()
	MustRegister(table, "getMoodMeal", func(_ context.Context, p moodParams) (any, error) {
		return map[string]string{"suggestion": "tea for " + p.Mood}, nil
	})

	out, err := table.Dispatch(context.Background(), "getMoodMeal", json.RawMessage(`{"mood":"stressed"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"suggestion":"tea for stressed"}`, string(out))
}

func TestTable_RawResultPassesThrough(t *testing.T) {
	table := NewTable()
	MustRegister(table, "raw", func(context.Context, struct{}) (any, error) {
		return json.RawMessage(`{"ok":true}`), nil
	})
	out, err := table.Dispatch(context.Background(), "raw", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(out))
}

func TestTable_Errors(t *testing.T) {
	table := NewTable()
	boom := errors.New("database unavailable")
	MustRegister(table, "fails", func(context.Context, moodParams) (any, error) { return nil, boom })
	MustRegister(table, "panics", func(context.Context, moodParams) (any, error) { panic("nil map") })

	t.Run("handler error is returned", func(t *testing.T) {
		_, err := table.Dispatch(context.Background(), "fails", nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("panic becomes error", func(t *testing.T) {
		var err error
		assert.NotPanics(t, func() {
			_, err = table.Dispatch(context.Background(), "panics", nil)
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
	})

	t.Run("undecodable arguments", func(t *testing.T) {
		_, err := table.Dispatch(context.Background(), "fails", json.RawMessage(`{"mood":42}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode fails arguments")
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := table.Dispatch(context.Background(), "nope", nil)
		require.Error(t, err)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		err := Register(table, "fails", func(context.Context, moodParams) (any, error) { return nil, nil })
		require.Error(t, err)
	})
}

func TestTable_Check(t *testing.T) {
	c := catalog.MustNew("v1",
		catalog.Descriptor{Name: "a"},
		catalog.Descriptor{Name: "b"},
	)
	noop := func(context.Context, struct{}) (any, error) { return nil, nil }

	table := NewTable()
	MustRegister(table, "a", noop)
	MustRegister(table, "z", noop)

	err := table.Check(c)
	require.Error(t, err)
	assert.True(t, cerrors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "no handler for b")
	assert.Contains(t, err.Error(), "handlers not in catalog: z")

	exact := NewTable()
	MustRegister(exact, "a", noop)
	MustRegister(exact, "b", noop)
	assert.NoError(t, exact.Check(c))
	assert.Equal(t, []string{"a", "b"}, exact.Names())
}

func TestFuncAdapter(t *testing.T) {
	var d Dispatcher = Func(func(_ context.Context, name string, _ json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`"` + name + `"`), nil
	})
	out, err := d.Dispatch(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(out))
}

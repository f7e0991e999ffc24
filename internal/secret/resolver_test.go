package secret

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapProvider struct {
	values map[string]string
	calls  int
	closed bool
}

func (m *mapProvider) Get(_ context.Context, path string) (string, error) {
	m.calls++
	v, ok := m.values[path]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *mapProvider) Close() error {
	m.closed = true
	return nil
}

func TestIsReference(t *testing.T) {
	assert.True(t, IsReference("env://OPENAI_API_KEY"))
	assert.True(t, IsReference("vault://secret/data/coach#key"))
	assert.False(t, IsReference("sk-plain"))
	assert.False(t, IsReference("://missing-scheme"))
	assert.False(t, IsReference("host.example://x"))
}

func TestResolver_Get(t *testing.T) {
	r := NewResolver()
	r.Register("env", &mapProvider{values: map[string]string{"KEY": "sk-1"}})

	v, err := r.Get(context.Background(), "env://KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-1", v)

	v, err = r.Get(context.Background(), "literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", v)

	_, err = r.Get(context.Background(), "vault://x")
	assert.Error(t, err)

	_, err = r.Get(context.Background(), "env://MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"env"}, r.Schemes())
}

func TestResolver_ResolveIsAllOrNothing(t *testing.T) {
	r := NewResolver()
	r.Register("env", &mapProvider{values: map[string]string{"KEY": "sk-1"}})

	apiKey, password := "env://KEY", "env://MISSING"
	err := r.Resolve(context.Background(), map[string]*string{
		"model.api_key":     &apiKey,
		"postgres.password": &password,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.password")
	assert.Equal(t, "env://KEY", apiKey)

	password = "plain"
	require.NoError(t, r.Resolve(context.Background(), map[string]*string{
		"model.api_key":     &apiKey,
		"postgres.password": &password,
	}))
	assert.Equal(t, "sk-1", apiKey)
	assert.Equal(t, "plain", password)
}

func TestResolver_Close(t *testing.T) {
	a, b := &mapProvider{}, &mapProvider{}
	r := NewResolver()
	r.Register("a", a)
	r.Register("b", b)
	require.NoError(t, r.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestCached(t *testing.T) {
	inner := &mapProvider{values: map[string]string{"KEY": "sk-1"}}
	assert.Same(t, inner, Cached(inner, 0))

	p := Cached(inner, time.Minute)

	for i := 0; i < 3; i++ {
		v, err := p.Get(context.Background(), "KEY")
		require.NoError(t, err)
		assert.Equal(t, "sk-1", v)
	}
	assert.Equal(t, 1, inner.calls)

	_, err := p.Get(context.Background(), "MISSING")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, _ = p.Get(context.Background(), "MISSING")
	assert.Equal(t, 3, inner.calls, "failures are not cached")

	require.NoError(t, p.Close())
	assert.True(t, inner.closed)
}

package embedded_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/embedls/pkg/embedded"
)

func TestDefaultsAreValid(t *testing.T) {
	for _, l := range embedded.Defaults() {
		require.NoError(t, embedded.Validate(l), l.ID())
	}
	_, err := embedded.NewRegistry(embedded.Defaults()...)
	require.NoError(t, err)
}

func TestRegistryByID(t *testing.T) {
	r := embedded.DefaultRegistry()

	tests := []struct {
		id     string
		want   string
		wantOk bool
	}{
		{id: "python", want: "python", wantOk: true},
		{id: "Python", want: "python", wantOk: true},
		{id: "sh", want: "bash", wantOk: true},
		{id: "ojs", want: "javascript", wantOk: true},
		{id: "tex", want: "tex", wantOk: true},
		{id: "cobol", wantOk: false},
		{id: "", wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			l, ok := r.ByID(tt.id)
			require.Equal(t, tt.wantOk, ok)
			if ok {
				assert.Equal(t, tt.want, l.ID())
			}
		})
	}
}

func TestRegistryByExtension(t *testing.T) {
	r := embedded.DefaultRegistry()

	l, ok := r.ByExtension("jl")
	require.True(t, ok)
	assert.Equal(t, "julia", l.ID())

	_, ok = r.ByExtension("nope")
	assert.False(t, ok)
}

func TestLanguageHelpers(t *testing.T) {
	r := embedded.DefaultRegistry()
	py, _ := r.ByID("python")

	assert.Equal(t, 2, py.PreambleLength())
	assert.True(t, py.Triggers("."))
	assert.False(t, py.Triggers("$"))

	var missing *embedded.Language
	assert.Equal(t, 0, missing.PreambleLength())
	assert.Equal(t, "", missing.ID())
	assert.False(t, missing.Matches("python"))
}

func TestValidate(t *testing.T) {
	err := embedded.Validate(&embedded.Language{Strategy: "bogus", Server: &embedded.ServerCommand{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ids")
	assert.Contains(t, err.Error(), "no file extension")
	assert.Contains(t, err.Error(), "unknown strategy")
	assert.Contains(t, err.Error(), "empty server command")

	_, err = embedded.NewRegistry(&embedded.Language{IDs: []string{"x"}})
	require.Error(t, err)
}

func TestRegistryWith(t *testing.T) {
	base := embedded.DefaultRegistry()

	r, err := base.With([]*embedded.Language{
		{IDs: []string{"python"}, Extension: "py", Strategy: embedded.StrategyContent},
		{IDs: []string{"haskell", "hs"}, Extension: "hs", Strategy: embedded.StrategyTempFile},
	}, []string{"sql"})
	require.NoError(t, err)

	py, ok := r.ByID("python")
	require.True(t, ok)
	assert.Equal(t, embedded.StrategyContent, py.Strategy)
	assert.Equal(t, 0, py.PreambleLength())

	_, ok = r.ByID("hs")
	assert.True(t, ok)

	_, ok = r.ByID("sql")
	assert.False(t, ok)

	original, _ := base.ByID("python")
	assert.Equal(t, embedded.StrategyTempFile, original.Strategy, "base registry is untouched")
}

func TestTriggerChars(t *testing.T) {
	r, err := embedded.NewRegistry(
		&embedded.Language{IDs: []string{"a"}, Extension: "a", Strategy: embedded.StrategyContent, TriggerChars: []string{".", ":"}},
		&embedded.Language{IDs: []string{"b"}, Extension: "b", Strategy: embedded.StrategyContent, TriggerChars: []string{"$", "."}},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"$", ".", ":"}, r.TriggerChars())
}

package yamldoc

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) Value {
	t.Helper()
	v, err := Parse([]byte(src))
	require.NoError(t, err)
	return v
}

func TestParse_Kinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Kind
	}{
		{"mapping", "category: PHP\n", Mapping},
		{"sequence", "- a\n- b\n", Sequence},
		{"scalar", "hello\n", Scalar},
		{"explicit null", "~\n", Null},
		{"empty stream", "", Null},
		{"comment only", "# nothing here\n", Null},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustParse(t, tt.src).Kind())
		})
	}
}

func TestGet_AbsentAndNullKeys(t *testing.T) {
	v := mustParse(t, "category:\nquestions: []\n")

	assert.True(t, v.Has("category"), "a key with a null value is still present")
	assert.Equal(t, Null, v.Get("category").Kind())
	assert.Equal(t, Sequence, v.Get("questions").Kind())
	assert.False(t, v.Has("missing"))
	assert.Equal(t, Absent, v.Get("missing").Kind())

	// Lookups on non-mappings degrade to absent.
	assert.Equal(t, Absent, v.Get("questions").Get("anything").Kind())
	assert.Equal(t, Absent, Value{}.Get("x").Kind())
}

func TestItems(t *testing.T) {
	v := mustParse(t, "questions:\n  - question: Q1\n  - question: Q2\n")
	items := v.Get("questions").Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Q2", items[1].Get("question").Text())
	assert.Nil(t, v.Items(), "mapping has no items")
}

func TestIsTrue_StrictBoolean(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"correct: true", true},
		{"correct: True", true},
		{"correct: false", false},
		{`correct: "true"`, false},
		{"correct: 1", false},
		{"correct: !!str true", false},
		{"correct:", false},
		{"correct: [true]", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, mustParse(t, tt.src).Get("correct").IsTrue())
		})
	}
}

func TestAliasesResolve(t *testing.T) {
	src := `
defaults: &yes
  value: A
  correct: true
answers:
  - *yes
`
	v := mustParse(t, src)
	items := v.Get("answers").Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].Get("correct").IsTrue())
	assert.Equal(t, "A", items[0].Get("value").Text())
}

func TestGet_MergeKeys(t *testing.T) {
	src := `
right: &right
  correct: true
base: &base
  value: base
  correct: false
answers:
  - <<: *right
    value: A
  - <<: [*right, *base]
  - <<: *base
    correct: true
  - <<: *right
`
	items := mustParse(t, src).Get("answers").Items()
	require.Len(t, items, 4)

	assert.True(t, items[0].Get("correct").IsTrue())
	assert.Equal(t, "A", items[0].Get("value").Text())

	// Earlier entries of a merge list win.
	assert.True(t, items[1].Get("correct").IsTrue())
	assert.Equal(t, "base", items[1].Get("value").Text())

	// Direct keys win over merged ones.
	assert.True(t, items[2].Get("correct").IsTrue())

	assert.False(t, items[3].Has("value"))
	assert.False(t, items[3].Has("<<"))

	got, ok := items[2].Interface().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"value": "base", "correct": true}, got)
}

func TestParse_RejectsDuplicateKeys(t *testing.T) {
	_, err := Parse([]byte("answers:\n  - {value: A, correct: false, correct: true}\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Contains(t, err.Error(), `"correct"`)

	// The same key in sibling mappings is fine.
	_, err = Parse([]byte("- {value: A}\n- {value: B}\n"))
	assert.NoError(t, err)
}

func TestInterface(t *testing.T) {
	v := mustParse(t, "category: PHP\ncount: 3\nratio: 0.5\nok: true\nnone: ~\nlist: [a, 1]\n")
	got, ok := v.Interface().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "PHP", got["category"])
	assert.Equal(t, json.Number("3"), got["count"])
	assert.Equal(t, json.Number("0.5"), got["ratio"])
	assert.Equal(t, true, got["ok"])
	assert.Nil(t, got["none"])
	assert.Equal(t, []any{"a", json.Number("1")}, got["list"])
}

func TestParse_RejectsMultipleDocuments(t *testing.T) {
	_, err := Parse([]byte("a: 1\n---\nb: 2\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMultipleDocuments))
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse([]byte("questions: [unclosed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse yaml")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "php.yml")
	require.NoError(t, os.WriteFile(path, []byte("category: PHP\n"), 0o644))

	v, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "PHP", v.Get("category").Text())
	assert.Equal(t, 1, v.Get("category").Line())

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

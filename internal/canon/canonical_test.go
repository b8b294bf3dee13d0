package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "hello", `"hello"`},
		{"int", 42, `42`},
		{"negative", int64(-7), `-7`},
		{"bool", true, `true`},
		{"array", []any{"a", 1, false}, `["a",1,false]`},
		{"strings", []string{"x", "y"}, `["x","y"]`},
		{"sorted keys", map[string]any{"b": 1, "a": 2}, `{"a":2,"b":1}`},
		{"nested", map[string]any{"z": map[string]string{"d": "4", "c": "3"}}, `{"z":{"c":"3","d":"4"}}`},
		{"no html escape", "<a>&</a>", `"<a>&</a>"`},
		{"line separators raw", "a\u2028b\u2029", "\"a\u2028b\u2029\""},
		{"control chars", "tab\tnl\nnul\x00", `"tab\tnl\nnul\u0000"`},
		{"quote and backslash", `say "hi" \o/`, `"say \"hi\" \\o/"`},
		{"empty object", map[string]any{}, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+1F600 is the surrogate pair D83D DE00, which sorts before U+FB01
	// although its code point is larger.
	got, err := Marshal(map[string]any{"\uFB01": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFB01\":1}", string(got))
}

func TestMarshal_NFC(t *testing.T) {
	decomposed := "e\u0301"
	got, err := Marshal(map[string]any{decomposed: decomposed})
	require.NoError(t, err)
	assert.Equal(t, "{\"\u00e9\":\"\u00e9\"}", string(got))
}

func TestMarshal_NormalizationCollision(t *testing.T) {
	_, err := Marshal(map[string]any{"e\u0301": 1, "\u00e9": 2})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestMarshal_Rejects(t *testing.T) {
	for _, v := range []any{nil, 1.5, float32(2), struct{}{}, []any{nil}, map[string]any{"x": 0.1}} {
		_, err := Marshal(v)
		assert.ErrorIs(t, err, ErrUnsupported, "%#v", v)
	}
}

func TestDigest(t *testing.T) {
	a, err := Digest(DomainRequest, map[string]any{"code": "x", "framework": "cw-2"})
	require.NoError(t, err)
	b, err := Digest(DomainRequest, map[string]any{"framework": "cw-2", "code": "x"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, err := Digest(DomainStream, map[string]any{"code": "x", "framework": "cw-2"})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSum_Separator(t *testing.T) {
	assert.NotEqual(t, Sum("ab", []byte("c")), Sum("a", []byte("bc")))
}

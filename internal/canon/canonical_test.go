package canon

import (
	"encoding/hex"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	out, err := Marshal(map[string]any{"b": 1, "a": "x", "c": true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":true}`, string(out))
}

func TestMarshal_NestedValues(t *testing.T) {
	out, err := Marshal(map[string]any{
		"list": []any{int64(1), "two", nil, false},
		"obj":  map[string]any{"z": 1.5, "y": float64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"list":[1,"two",null,false],"obj":{"y":2,"z":1.5}}`, string(out))
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	out, err := Marshal("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(out))
}

func TestMarshal_LineSeparatorsLiteral(t *testing.T) {
	out, err := Marshal("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(out))
}

func TestMarshal_EscapedBackslashKept(t *testing.T) {
	// A literal backslash followed by "u2028" text must stay escaped.
	out, err := Marshal(`\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(out))
}

func TestMarshal_NFCNormalization(t *testing.T) {
	decomposed := "e\u0301" // e + combining acute
	out, err := Marshal(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(out))
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FF61
	// in UTF-16 even though the UTF-8 bytes sort after it.
	out, err := Marshal(map[string]any{"｡": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"｡\":1}", string(out))
}

func TestMarshal_NumberForms(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{json.Number("1.0"), "1"},
		{json.Number("42"), "42"},
		{json.Number("0.25"), "0.25"},
		{float64(1e21), "1e+21"},
		{int32(-7), "-7"},
		{uint64(9), "9"},
	}
	for _, tc := range cases {
		out, err := Marshal(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(out), "input %v", tc.in)
	}
}

func TestMarshal_RejectsNonFinite(t *testing.T) {
	_, err := Marshal(math.NaN())
	assert.Error(t, err)
	_, err = Marshal(map[string]any{"x": math.Inf(1)})
	assert.Error(t, err)
}

func TestMarshal_Structs(t *testing.T) {
	type profile struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	out, err := Marshal(profile{Name: "alice", Age: 30})
	require.NoError(t, err)
	assert.Equal(t, `{"age":30,"name":"alice"}`, string(out))
}

func TestDecode_NormalizesNumbers(t *testing.T) {
	v, err := Decode([]byte(`{"i":3,"f":1.5,"l":[1]}`))
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, int64(3), m["i"])
	assert.Equal(t, 1.5, m["f"])
	assert.Equal(t, []any{int64(1)}, m["l"])
}

func TestDecode_RoundTrip(t *testing.T) {
	in := map[string]any{"name": "alice", "tags": []any{"a", "b"}, "age": int64(30)}
	data, err := Marshal(in)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestHash_DomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	m := Hash(DomainManifest, data)
	e := Hash(DomainEntry, data)
	assert.Len(t, m, 32)
	assert.NotEqual(t, m, e)
	assert.Equal(t, m, Hash(DomainManifest, data))
}

func TestHashHex_KeyOrderIndependent(t *testing.T) {
	a, err := HashHex(DomainEntry, map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	b, err := HashHex(DomainEntry, map[string]any{"y": 2, "x": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	_, err = hex.DecodeString(a)
	assert.NoError(t, err)
}

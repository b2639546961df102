package schema

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileCUE = `
name: string & != ""
age?: int & >=0
`

func TestCUE_Accepts(t *testing.T) {
	s, err := CUE(profileCUE)
	require.NoError(t, err)
	assert.Equal(t, FormatCUE, s.Format())
	assert.Nil(t, s.Validate(map[string]any{"name": "alice", "age": 30}))
	assert.Nil(t, s.Validate(map[string]any{"name": "alice"}))
}

func TestCUE_RejectsWrongType(t *testing.T) {
	s := MustCUE(profileCUE)
	errs := s.Validate(map[string]any{"name": "alice", "age": "thirty"})
	require.NotEmpty(t, errs)
	assert.Equal(t, "age", errs[0].Path)
}

func TestCUE_RejectsMissingRequired(t *testing.T) {
	s := MustCUE(profileCUE)
	errs := s.Validate(map[string]any{"age": 3})
	require.NotEmpty(t, errs)
	assert.Equal(t, "name", errs[0].Path)
}

func TestCUE_IntegralFloatIsInt(t *testing.T) {
	// JSON has one number type; 3.0 decoded as float64 must still satisfy int.
	s := MustCUE(profileCUE)
	assert.Nil(t, s.Validate(map[string]any{"name": "a", "age": float64(3)}))
}

func TestCUE_ScalarSchema(t *testing.T) {
	s := MustCUE(`string`)
	assert.Nil(t, s.Validate("v"))
	assert.NotEmpty(t, s.Validate(42))
}

func TestCUE_Definition(t *testing.T) {
	s, err := CUE(`#Profile: { name: string }`, WithDefinition("#Profile"))
	require.NoError(t, err)
	assert.Nil(t, s.Validate(map[string]any{"name": "a"}))
	assert.NotEmpty(t, s.Validate(map[string]any{"name": "a", "extra": true}))

	_, err = CUE(`#Profile: { name: string }`, WithDefinition("#Missing"))
	assert.Error(t, err)
}

func TestCUE_CompileError(t *testing.T) {
	_, err := CUE(`name: string &`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCUE(`{`) })
}

func TestCUE_ConcurrentValidate(t *testing.T) {
	s := MustCUE(profileCUE)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.Nil(t, s.Validate(map[string]any{"name": "n", "age": i}))
		}(i)
	}
	wg.Wait()
}

func TestJSONSchema_Validate(t *testing.T) {
	s, err := JSONSchema(`{
		"type": "object",
		"properties": {"title": {"type": "string"}, "votes": {"type": "integer", "minimum": 0}},
		"required": ["title"]
	}`)
	require.NoError(t, err)
	assert.Equal(t, FormatJSONSchema, s.Format())

	assert.Nil(t, s.Validate(map[string]any{"title": "hello", "votes": 2}))

	errs := s.Validate(map[string]any{"votes": -1})
	require.Len(t, errs, 2)
	paths := []string{errs[0].Path, errs[1].Path}
	assert.Contains(t, paths, "")
	assert.Contains(t, paths, "votes")
}

func TestJSONSchema_CompileError(t *testing.T) {
	_, err := JSONSchema(`{"type": 12}`)
	assert.Error(t, err)
}

type comment struct {
	Author string `json:"author"`
	Body   string `json:"body"`
	Edited bool   `json:"edited,omitempty"`
}

func TestReflect_StructSchema(t *testing.T) {
	s, err := Reflect(&comment{})
	require.NoError(t, err)

	assert.Nil(t, s.Validate(map[string]any{"author": "a", "body": "b"}))
	assert.Nil(t, s.Validate(comment{Author: "a", Body: "b", Edited: true}))
	assert.NotEmpty(t, s.Validate(map[string]any{"author": "a"}))
	assert.NotEmpty(t, s.Validate(map[string]any{"author": "a", "body": "b", "spam": 1}))
}

func TestAny_AcceptsEverything(t *testing.T) {
	s := Any()
	assert.Nil(t, s.Validate(nil))
	assert.Nil(t, s.Validate(map[string]any{"x": 1}))
	assert.Equal(t, FormatAny, s.Format())
}

func TestCompile_Formats(t *testing.T) {
	s, err := Compile("cue", `string`)
	require.NoError(t, err)
	assert.Equal(t, FormatCUE, s.Format())

	s, err = Compile("jsonschema", `{"type":"string"}`)
	require.NoError(t, err)
	assert.Equal(t, FormatJSONSchema, s.Format())

	s, err = Compile("any", "")
	require.NoError(t, err)
	assert.Equal(t, FormatAny, s.Format())

	_, err = Compile("xml", "")
	var ufe *UnknownFormatError
	assert.ErrorAs(t, err, &ufe)
}

package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ddb/internal/access"
	"github.com/roach88/ddb/internal/fault"
	"github.com/roach88/ddb/internal/schema"
)

func profile() Blueprint {
	return Blueprint{
		Name:             "profile",
		Schema:           schema.Any(),
		AccessController: access.WritersFactory("owner"),
		Kind:             KeyValue,
	}
}

func TestBlueprint_Validate(t *testing.T) {
	require.NoError(t, profile().Validate())

	tests := []struct {
		name string
		edit func(*Blueprint)
		code fault.Code
	}{
		{"empty name", func(b *Blueprint) { b.Name = "" }, fault.ErrCodeInvalidStoreName},
		{"dotted name", func(b *Blueprint) { b.Name = "a.b" }, fault.ErrCodeInvalidStoreName},
		{"nil schema", func(b *Blueprint) { b.Schema = nil }, fault.ErrCodeSchemaMissing},
		{"unknown kind", func(b *Blueprint) { b.Kind = "counter" }, fault.ErrCodeStoreKindMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bp := profile()
			tt.edit(&bp)
			err := bp.Validate()
			assert.True(t, fault.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestBlueprint_Controller(t *testing.T) {
	bp := profile()
	c := bp.Controller(access.Props{"owner": "alice"})
	require.NotNil(t, c)
	assert.True(t, c.CanAppend("alice"))

	assert.Nil(t, bp.Controller(nil))

	bp.AccessController = nil
	assert.Nil(t, bp.Controller(access.Props{"owner": "alice"}))
}

func TestRegistry_GetAndNames(t *testing.T) {
	feed := Blueprint{Name: "posts", Schema: schema.Any(), Kind: Feed}
	r, err := NewRegistry(profile(), feed)
	require.NoError(t, err)

	assert.Equal(t, []string{"posts", "profile"}, r.Names())
	assert.Equal(t, 2, r.Len())

	got, err := r.Get("posts")
	require.NoError(t, err)
	assert.Equal(t, Feed, got.Kind)

	_, err = r.Get("missing")
	assert.True(t, fault.Is(err, fault.ErrCodeBlueprintNotFound))
}

func TestRegistry_RejectsSchemaless(t *testing.T) {
	bp := profile()
	bp.Schema = nil
	_, err := NewRegistry(bp)
	assert.True(t, fault.Is(err, fault.ErrCodeSchemaMissing))
	assert.Panics(t, func() { MustRegistry(bp) })
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(profile(), profile())
	assert.True(t, fault.Is(err, fault.ErrCodeDuplicateBlueprint))
}

func TestKind_Valid(t *testing.T) {
	for _, k := range Kinds() {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("").Valid())
}

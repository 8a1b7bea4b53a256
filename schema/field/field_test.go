package field_test

import (
	"testing"

	"github.com/syssam/magicbox/schema/field"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBuilders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		builder *field.Builder
		typ     field.Type
		autoKey bool
	}{
		{name: "string", builder: field.String("name"), typ: field.TypeString},
		{name: "int", builder: field.Int("age"), typ: field.TypeInt, autoKey: true},
		{name: "int64", builder: field.Int64("big"), typ: field.TypeInt64, autoKey: true},
		{name: "float", builder: field.Float("price"), typ: field.TypeFloat64},
		{name: "bool", builder: field.Bool("active"), typ: field.TypeBool},
		{name: "time", builder: field.Time("created_at"), typ: field.TypeTime},
		{name: "uuid", builder: field.UUID("id"), typ: field.TypeUUID},
		{name: "json", builder: field.JSON("meta"), typ: field.TypeJSON},
		{name: "bytes", builder: field.Bytes("blob"), typ: field.TypeBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd := tt.builder.Descriptor()
			assert.Equal(t, tt.typ, fd.Type)
			assert.Equal(t, tt.autoKey, fd.AutoKey())
			assert.False(t, fd.Optional)
			assert.False(t, fd.Virtual)
			assert.NoError(t, fd.Err)
		})
	}
}

func TestModifiers(t *testing.T) {
	t.Parallel()

	fd := field.Int("hands").Optional().Default(2).Sensitive().Descriptor()
	assert.True(t, fd.Optional)
	assert.True(t, fd.Sensitive)
	v, ok := fd.DefaultValue()
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	calls := 0
	fd = field.String("code").DefaultFunc(func() any { calls++; return "x" }).Descriptor()
	v, ok = fd.DefaultValue()
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	assert.Equal(t, 1, calls)

	_, ok = field.String("plain").Descriptor().DefaultValue()
	assert.False(t, ok)

	assert.Error(t, field.String("").Descriptor().Err)
}

func TestFromName(t *testing.T) {
	t.Parallel()

	tests := map[string]field.Type{
		"":          field.TypeString,
		"text":      field.TypeString,
		"integer":   field.TypeInt,
		"BIGINT":    field.TypeInt64,
		"double":    field.TypeFloat64,
		"boolean":   field.TypeBool,
		"timestamp": field.TypeTime,
		"uuid":      field.TypeUUID,
		"json":      field.TypeJSON,
		"blob":      field.TypeBytes,
	}
	for typ, want := range tests {
		fd := field.FromName("f", typ).Descriptor()
		assert.Equal(t, want, fd.Type, typ)
		assert.NoError(t, fd.Err, typ)
	}
	assert.Error(t, field.FromName("f", "money").Descriptor().Err)
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(3), field.Int("hands").Descriptor().Coerce("3"))
	assert.Equal(t, "three", field.Int("hands").Descriptor().Coerce("three"))
	assert.Equal(t, 1.5, field.Float("price").Descriptor().Coerce("1.5"))
	assert.Equal(t, true, field.Bool("is_human").Descriptor().Coerce("1"))
	assert.Equal(t, "007", field.String("code").Descriptor().Coerce("007"))
}

func TestPassword(t *testing.T) {
	t.Parallel()

	fd := field.Password("password", "password_hash").Descriptor()
	require.True(t, fd.Virtual)
	require.NotNil(t, fd.Setter)

	cols, err := fd.Setter("hunter2")
	require.NoError(t, err)
	require.Contains(t, cols, "password_hash")
	hash, ok := cols["password_hash"].(string)
	require.True(t, ok)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))

	_, err = fd.Setter(42)
	assert.Error(t, err)
}

package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loxlang/loxvm/lang/value"
)

func TestTruthy(t *testing.T) {
	assert.False(t, value.Nil.Truthy())
	assert.False(t, value.Bool(false).Truthy())
	assert.True(t, value.Bool(true).Truthy())
	assert.True(t, value.Number(0).Truthy())
	assert.True(t, value.Number(-1).Truthy())
}

func TestEqualScalars(t *testing.T) {
	assert.True(t, value.Equal(value.Nil, value.Nil))
	assert.True(t, value.Equal(value.Number(1), value.Number(1)))
	assert.False(t, value.Equal(value.Number(1), value.Number(2)))
	assert.False(t, value.Equal(value.Nil, value.Bool(false)))
	assert.False(t, value.Equal(value.Bool(true), value.Number(1)))
}

func TestEqualStringsByIdentity(t *testing.T) {
	a := &value.String{Chars: "hi", Hash: value.FNV1a("hi")}
	b := &value.String{Chars: "hi", Hash: value.FNV1a("hi")}
	assert.False(t, value.Equal(value.FromObj(a), value.FromObj(b)), "distinct *String objects with equal content are not Equal without interning")
	assert.True(t, value.Equal(value.FromObj(a), value.FromObj(a)))
}

func TestNumberFormatting(t *testing.T) {
	assert.Equal(t, "3", value.Number(3).String())
	assert.Equal(t, "3.5", value.Number(3.5).String())
	assert.Equal(t, "-2", value.Number(-2).String())
}

func TestType(t *testing.T) {
	assert.Equal(t, "nil", value.Nil.Type())
	assert.Equal(t, "boolean", value.Bool(true).Type())
	assert.Equal(t, "number", value.Number(1).Type())
	s := &value.String{Chars: "x"}
	assert.Equal(t, "string", value.FromObj(s).Type())
}

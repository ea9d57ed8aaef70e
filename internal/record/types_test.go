package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFields_Has(t *testing.T) {
	f := Fields{"a": "x", "b": "", "c": Null}

	assert.True(t, f.Has("a"))
	assert.False(t, f.Has("b"), "empty string is not present")
	assert.False(t, f.Has("c"), "null literal is not present")
	assert.False(t, f.Has("missing"))
}

func TestFields_Value(t *testing.T) {
	f := Fields{"a": "x", "c": Null}

	assert.Equal(t, "x", f.Value("a"))
	assert.Equal(t, "", f.Value("c"))
	assert.Equal(t, "", f.Value("missing"))
}

func TestFields_Flag(t *testing.T) {
	f := Fields{"on": "1", "true": "true", "off": "0", "junk": "yes"}

	assert.True(t, f.Flag("on"))
	assert.True(t, f.Flag("true"))
	assert.False(t, f.Flag("off"))
	assert.False(t, f.Flag("junk"))
	assert.False(t, f.Flag("missing"))
}

func TestFields_CloneIsIndependent(t *testing.T) {
	f := Fields{"a": "1"}
	c := f.Clone()
	c["a"] = "2"

	assert.Equal(t, "1", f["a"])

	var nilFields Fields
	assert.NotNil(t, nilFields.Clone())
}

func TestFields_KeysSorted(t *testing.T) {
	f := Fields{"zebra": "1", "alpha": "2", "mid": "3"}
	assert.Equal(t, []string{"alpha", "mid", "zebra"}, f.Keys())
}

func TestType_Valid(t *testing.T) {
	assert.True(t, TypeAddress.Valid())
	assert.True(t, TypePhone.Valid())
	assert.True(t, TypeContact.Valid())
	assert.False(t, Type("Email").Valid())
}

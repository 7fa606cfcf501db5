package diffengine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skeema/rowdiff/internal/typemodel"
)

func TestValidateBisectionParamsRejectsTooSmallFactor(t *testing.T) {
	assert.Error(t, validateBisectionParams(1, 16384))
}

func TestValidateBisectionParamsRejectsFactorAtOrAboveThreshold(t *testing.T) {
	assert.Error(t, validateBisectionParams(32, 32))
	assert.Error(t, validateBisectionParams(64, 32))
}

func TestValidateBisectionParamsAcceptsDefaults(t *testing.T) {
	assert.NoError(t, validateBisectionParams(32, 16384))
}

func TestKeyClass(t *testing.T) {
	assert.Equal(t, "integer", keyClass(typemodel.Integer{}))
	assert.Equal(t, "uuid", keyClass(typemodel.StringUUID{}))
	assert.Equal(t, "uuid", keyClass(typemodel.NativeUUID{}))
	assert.Equal(t, "alphanum", keyClass(typemodel.StringAlphanum{}))
	assert.Equal(t, "", keyClass(typemodel.Float{}))
	assert.Equal(t, "", keyClass(typemodel.Text{}))
}

func TestIsUUIDType(t *testing.T) {
	assert.True(t, isUUIDType(typemodel.StringUUID{}))
	assert.True(t, isUUIDType(typemodel.NativeUUID{}))
	assert.False(t, isUUIDType(typemodel.Text{}))
}

func TestIsStringType(t *testing.T) {
	assert.True(t, isStringType(typemodel.Text{}))
	assert.True(t, isStringType(typemodel.StringUUID{}))
	assert.True(t, isStringType(typemodel.StringAlphanum{}))
	assert.False(t, isStringType(typemodel.Integer{}))
}

package keyspace

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntKeyCompareAndRoundTrip(t *testing.T) {
	a, b := IntKey(5), IntKey(9)
	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(IntKey(5)))

	kv, err := a.FromInt(big.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, IntKey(42), kv)
}

func TestArithUUIDRoundTrip(t *testing.T) {
	u, err := NewArithUUID("00000000-0000-0000-0000-000000000001")
	require.NoError(t, err)

	next, err := u.FromInt(new(big.Int).Add(u.Int(), big.NewInt(1)))
	require.NoError(t, err)
	nextUUID := next.(ArithUUID)

	assert.Equal(t, "00000000-0000-0000-0000-000000000002", nextUUID.String())
	assert.Negative(t, u.Compare(nextUUID))
	assert.Positive(t, nextUUID.Compare(u))
}

func TestArithUUIDOverflow(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err := ArithUUIDFromInt(tooBig)
	assert.Error(t, err)
}

func TestArithAlphanumericOrderingMatchesAlphabetPosition(t *testing.T) {
	a, err := NewArithAlphanumeric("AA", 4)
	require.NoError(t, err)
	b, err := NewArithAlphanumeric("AB", 4)
	require.NoError(t, err)

	assert.Negative(t, a.Compare(b))
	assert.Equal(t, "AA  ", a.String())
}

func TestArithAlphanumericRejectsUnknownCharacter(t *testing.T) {
	_, err := NewArithAlphanumeric("a$b", 0)
	assert.Error(t, err)
}

func TestArithAlphanumericRejectsLengthOverflow(t *testing.T) {
	_, err := NewArithAlphanumeric("abcdef", 3)
	assert.Error(t, err)
}

func TestArithAlphanumericAddAndSub(t *testing.T) {
	a, err := NewArithAlphanumeric("0", 3)
	require.NoError(t, err)

	b, err := a.Add(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Sub(a).Int64())
}

func TestArithAlphanumericFromIntZero(t *testing.T) {
	a, err := NewArithAlphanumeric("ZZZ", 3)
	require.NoError(t, err)

	kv, err := a.FromInt(big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, "   ", kv.String())
}

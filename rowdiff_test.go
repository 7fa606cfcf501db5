package rowdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeema/rowdiff/internal/dbconn"
	"github.com/skeema/rowdiff/internal/keyspace"
	"github.com/skeema/rowdiff/internal/tablesegment"
	"github.com/skeema/rowdiff/internal/typemodel"
)

func TestConnectRejectsUnknownScheme(t *testing.T) {
	_, err := Connect(nil, "oracle://user@host/db", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestConnectRejectsUnparseableURI(t *testing.T) {
	_, err := Connect(nil, "://bad", 0)
	require.Error(t, err)
}

func TestKeyArithForInteger(t *testing.T) {
	a, err := keyArithFor("id", typemodel.Integer{})
	require.NoError(t, err)
	_, ok := a.(keyspace.IntKey)
	assert.True(t, ok)
}

func TestKeyArithForStringUUID(t *testing.T) {
	a, err := keyArithFor("id", typemodel.StringUUID{})
	require.NoError(t, err)
	_, ok := a.(keyspace.ArithUUID)
	assert.True(t, ok)
}

func TestKeyArithForAlphanumCarriesMaxLen(t *testing.T) {
	a, err := keyArithFor("id", typemodel.StringAlphanum{Len: 12})
	require.NoError(t, err)
	an, ok := a.(keyspace.ArithAlphanumeric)
	require.True(t, ok)
	assert.Equal(t, 12, an.MaxLen)
}

func TestKeyArithForUnsupportedTypeErrors(t *testing.T) {
	_, err := keyArithFor("amount", typemodel.Float{})
	assert.Error(t, err)
}

func TestResolveAlgorithmAutoPicksJoinDiffForSharedDatabase(t *testing.T) {
	db := &dbconn.Database{}
	a := &tablesegment.TableSegment{DB: db}
	b := &tablesegment.TableSegment{DB: db}

	algo, err := resolveAlgorithm(AlgorithmAuto, a, b)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmJoinDiff, algo)
}

func TestResolveAlgorithmAutoPicksHashDiffForDifferentDatabases(t *testing.T) {
	a := &tablesegment.TableSegment{DB: &dbconn.Database{}}
	b := &tablesegment.TableSegment{DB: &dbconn.Database{}}

	algo, err := resolveAlgorithm(AlgorithmAuto, a, b)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmHashDiff, algo)
}

func TestResolveAlgorithmHonorsExplicitChoice(t *testing.T) {
	a := &tablesegment.TableSegment{DB: &dbconn.Database{}}
	b := &tablesegment.TableSegment{DB: &dbconn.Database{}}

	algo, err := resolveAlgorithm(AlgorithmHashDiff, a, b)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmHashDiff, algo)
}

func TestResolveAlgorithmRejectsUnknownValue(t *testing.T) {
	a := &tablesegment.TableSegment{DB: &dbconn.Database{}}
	b := &tablesegment.TableSegment{DB: &dbconn.Database{}}

	_, err := resolveAlgorithm(Algorithm("bogus"), a, b)
	assert.Error(t, err)
}

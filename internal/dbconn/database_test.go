package dbconn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableName(t *testing.T) {
	assert.Equal(t, []string{"public", "users"}, ParseTableName("public.users"))
	assert.Equal(t, []string{"users"}, ParseTableName("users"))
}

func TestNormalizeTablePath(t *testing.T) {
	schema, table, err := normalizeTablePath([]string{"users"}, "public")
	require.NoError(t, err)
	assert.Equal(t, "public", schema)
	assert.Equal(t, "users", table)

	schema, table, err = normalizeTablePath([]string{"app", "users"}, "public")
	require.NoError(t, err)
	assert.Equal(t, "app", schema)
	assert.Equal(t, "users", table)

	_, _, err = normalizeTablePath([]string{"a", "b", "c"}, "public")
	assert.Error(t, err)
}

func TestSelectTableSchemaSQLEscapesLiterals(t *testing.T) {
	sql := selectTableSchemaSQL("o'brien", "us'ers")
	assert.Contains(t, sql, "table_name = 'us''ers'")
	assert.Contains(t, sql, "table_schema = 'o''brien'")
}

func TestSelectTableUniqueColumnsSQL(t *testing.T) {
	sql := selectTableUniqueColumnsSQL("public", "orders")
	assert.Contains(t, sql, "key_column_usage")
	assert.Contains(t, sql, "table_name = 'orders'")
	assert.Contains(t, sql, "table_schema = 'public'")
}

func TestCachedReturnsSamePoolForSameKey(t *testing.T) {
	clearCacheForTests()
	defer clearCacheForTests()

	cache.pools["mysql:dsn-a"] = &Database{DSN: "dsn-a"}
	first, err := Cached(nil, "mysql", "dsn-a", nil)
	require.NoError(t, err)
	second, err := Cached(nil, "mysql", "dsn-a", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

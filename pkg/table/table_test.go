package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesColumns(t *testing.T) {
	_, err := New()
	assert.Error(t, err, "zero columns should be rejected")

	_, err = New("a", "")
	assert.Error(t, err, "empty column name should be rejected")

	_, err = New("a", "b", "a")
	assert.Error(t, err, "duplicate column should be rejected")

	tbl, err := New("id", "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, tbl.Columns())
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, 2, tbl.Width())
}

func TestAppendNormalizesCells(t *testing.T) {
	tbl, err := New("id", "score", "name", "active")
	require.NoError(t, err)

	require.NoError(t, tbl.Append(int32(7), float32(2.5), []byte("niels"), true))
	row := tbl.Row(0)
	assert.Equal(t, int64(7), row[0])
	assert.Equal(t, float64(2.5), row[1])
	assert.Equal(t, "niels", row[2])
	assert.Equal(t, true, row[3])
}

func TestAppendRejectsBadRows(t *testing.T) {
	tbl, err := New("a", "b")
	require.NoError(t, err)

	err = tbl.Append(1)
	assert.ErrorContains(t, err, "2 columns")

	err = tbl.Append(1, struct{}{})
	assert.ErrorContains(t, err, "unsupported cell type")

	err = tbl.Append(uint64(1<<63), 2)
	assert.ErrorContains(t, err, "overflows")
}

func TestRecordsRoundTrip(t *testing.T) {
	tbl, err := FromRecords([]string{"id", "name"}, []map[string]any{
		{"id": 1, "name": "ada"},
		{"id": 2},
	})
	require.NoError(t, err)

	recs := tbl.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1), recs[0]["id"])
	assert.Equal(t, "ada", recs[0]["name"])
	assert.Nil(t, recs[1]["name"], "missing record key should become a nil cell")

	_, err = FromRecords([]string{"id"}, []map[string]any{{"nope": 1}})
	assert.ErrorContains(t, err, "unknown column")
}

func TestCellLookup(t *testing.T) {
	tbl, err := FromRecords([]string{"id", "name"}, []map[string]any{{"id": 1, "name": "ada"}})
	require.NoError(t, err)

	v, ok := tbl.Cell(0, "name")
	assert.True(t, ok)
	assert.Equal(t, "ada", v)

	_, ok = tbl.Cell(0, "missing")
	assert.False(t, ok)
}

func TestHeadAndCopyAreIndependent(t *testing.T) {
	tbl, err := FromRecords([]string{"id"}, []map[string]any{{"id": 1}, {"id": 2}, {"id": 3}})
	require.NoError(t, err)

	head := tbl.Head(2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, 3, tbl.Len(), "Head must not mutate the source")
	assert.Equal(t, 3, tbl.Head(10).Len(), "Head clamps to row count")

	cp := tbl.Copy()
	require.NoError(t, cp.Append(4))
	assert.Equal(t, 3, tbl.Len(), "Copy must be deep")
	assert.Equal(t, 4, cp.Len())
}

func TestSelect(t *testing.T) {
	tbl, err := FromRecords([]string{"id", "name", "score"}, []map[string]any{
		{"id": 1, "name": "ada", "score": 9.5},
		{"id": 2, "name": "bob", "score": 7.0},
	})
	require.NoError(t, err)

	sel, err := tbl.Select("name", "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "id"}, sel.Columns())
	assert.Equal(t, []any{"ada", int64(1)}, sel.Row(0))
	assert.Equal(t, 2, sel.Len())

	_, err = tbl.Select("name", "missing")
	assert.ErrorContains(t, err, `unknown column "missing"`)
}

func TestEqual(t *testing.T) {
	a, err := FromRecords([]string{"id", "name"}, []map[string]any{{"id": 1, "name": "ada"}})
	require.NoError(t, err)
	b, err := FromRecords([]string{"id", "name"}, []map[string]any{{"id": 1, "name": "ada"}})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(nil))

	require.NoError(t, b.Append(2, "bob"))
	assert.False(t, a.Equal(b), "row count differs")

	c, err := FromRecords([]string{"name", "id"}, []map[string]any{{"id": 1, "name": "ada"}})
	require.NoError(t, err)
	assert.False(t, a.Equal(c), "column order matters")
}

package btree

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marmot/buffer"
	"marmot/common"
	"marmot/disk"
)

func newTestHeaderPage(t *testing.T, file string) (HeaderPage, func()) {
	t.Helper()
	os.Remove(file)
	dm, _, err := disk.NewDiskManager(file, nil)
	require.NoError(t, err)

	pool := buffer.NewBufferPoolManager(4, dm, 2, nil)
	page, err := pool.FetchPage(common.HeaderPageID)
	require.NoError(t, err)

	return NewHeaderPage(page), func() {
		pool.UnpinPage(common.HeaderPageID, true)
		dm.Close()
		common.Remove(file)
	}
}

func TestHeader_Page_Should_Track_Index_Roots(t *testing.T) {
	hp, done := newTestHeaderPage(t, "tmp_hp1.marmot")
	defer done()

	assert.Equal(t, 0, hp.GetRecordCount())

	require.True(t, hp.InsertRecord("orders_pk", 7))
	require.True(t, hp.InsertRecord("users_pk", 12))
	assert.Equal(t, 2, hp.GetRecordCount())

	root, ok := hp.GetRootId("orders_pk")
	require.True(t, ok)
	assert.Equal(t, common.PageID(7), root)

	require.True(t, hp.UpdateRecord("orders_pk", 21))
	root, _ = hp.GetRootId("orders_pk")
	assert.Equal(t, common.PageID(21), root)

	_, ok = hp.GetRootId("missing")
	assert.False(t, ok)
	assert.False(t, hp.UpdateRecord("missing", 1))
}

func TestHeader_Page_Insert_Should_Reject_Duplicates_And_Bad_Names(t *testing.T) {
	hp, done := newTestHeaderPage(t, "tmp_hp2.marmot")
	defer done()

	require.True(t, hp.InsertRecord("idx", 1))
	assert.False(t, hp.InsertRecord("idx", 2))
	assert.False(t, hp.InsertRecord("", 3))
	assert.False(t, hp.InsertRecord("this_name_is_way_too_long_for_a_header_record", 4))

	root, ok := hp.GetRootId("idx")
	require.True(t, ok)
	assert.Equal(t, common.PageID(1), root)
}

func TestHeader_Page_Delete_Should_Compact_Records(t *testing.T) {
	hp, done := newTestHeaderPage(t, "tmp_hp3.marmot")
	defer done()

	require.True(t, hp.InsertRecord("a", 1))
	require.True(t, hp.InsertRecord("b", 2))
	require.True(t, hp.InsertRecord("c", 3))

	require.True(t, hp.DeleteRecord("b"))
	assert.False(t, hp.DeleteRecord("b"))
	assert.Equal(t, 2, hp.GetRecordCount())

	for name, want := range map[string]common.PageID{"a": 1, "c": 3} {
		root, ok := hp.GetRootId(name)
		require.True(t, ok)
		assert.Equal(t, want, root)
	}
}

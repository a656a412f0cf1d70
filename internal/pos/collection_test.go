package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncableCollections_SalesPrecedeItems(t *testing.T) {
	cols := SyncableCollections()

	idx := make(map[Collection]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}

	assert.Less(t, idx[Sales], idx[SaleItems],
		"sale rows must land before their items reference them")
	assert.Len(t, cols, 6)
}

func TestSyncMeta_RecordInterface(t *testing.T) {
	var r Record = &Sale{}
	r.Meta().ID = "x"
	assert.Equal(t, "x", r.(*Sale).ID)
}

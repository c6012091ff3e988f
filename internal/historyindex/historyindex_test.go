package historyindex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nuevaaudio/nueva-engine/internal/undo"
)

func openMemoryIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestRebuildAndRowCount(t *testing.T) {
	ix := openMemoryIndex(t)

	actions := []undo.Action{
		undo.NewAction(undo.ActionDspChange, "add gain", []byte(`{}`), []byte(`{}`)),
		undo.NewAction(undo.ActionBake, "bake", []byte(`{}`), []byte(`{}`)),
	}
	require.NoError(t, ix.Rebuild(actions, []string{actions[0].ID}))

	count, err := ix.RowCount()
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	needsRebuild, err := ix.NeedsRebuild(2)
	require.NoError(t, err)
	require.False(t, needsRebuild)

	needsRebuild, err = ix.NeedsRebuild(3)
	require.NoError(t, err)
	require.True(t, needsRebuild)
}

func TestActionsForModel(t *testing.T) {
	ix := openMemoryIndex(t)

	action := undo.NewAction(undo.ActionAiProcessing, "vocal isolation", []byte(`{}`), []byte(`{}`))
	require.NoError(t, ix.Rebuild([]undo.Action{action}, nil))
	require.NoError(t, ix.RecordLayer1(action.ID, "acestep-v1", "isolate vocals", time.Unix(0, 0).UTC()))

	rows, err := ix.ActionsForModel("acestep-v1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, action.ID, rows[0].ID)
}

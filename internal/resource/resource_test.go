package resource

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptureCurrentDirectory(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	snap, err := Capture(cwd)
	require.NoError(t, err)
	require.Greater(t, snap.DiskTotalBytes, uint64(0))
	require.Greater(t, snap.MemTotalBytes, uint64(0))
}

func TestCheckDiskSpaceSufficient(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	err = CheckDiskSpace(cwd, 1)
	require.NoError(t, err)
}

func TestCheckDiskSpaceInsufficient(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	err = CheckDiskSpace(cwd, 1<<40)
	require.Error(t, err)
}

func TestCheckMemoryInsufficient(t *testing.T) {
	err := CheckMemory(1 << 40)
	require.Error(t, err)
}

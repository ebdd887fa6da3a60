package shm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapFile_CreatesZeroedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	m, err := MapFile(MapOptions{Path: path, Size: 64, Create: true})
	require.NoError(t, err)
	defer m.Unmap()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(64), info.Size())
	b, err := m.ReadAt(0, 64)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 64), b)
}

func TestMapFile_WithoutCreate(t *testing.T) {
	_, err := MapFile(MapOptions{Path: filepath.Join(t.TempDir(), "missing"), Size: 8})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMapFile_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "region")
	_, err := MapFile(MapOptions{Path: path, Size: 8, Create: true})
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(statErr))
}

func TestMapFile_ExtendsShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	require.NoError(t, os.WriteFile(path, []byte{7, 7, 7}, 0o644))

	m, err := MapFile(MapOptions{Path: path, Size: 16})
	require.NoError(t, err)
	defer m.Unmap()

	b, err := m.ReadAt(0, 16)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 7, 7}, b[:3])
	assert.Equal(t, make([]byte, 13), b[3:])
}

func TestMapFile_RejectsLargerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	require.NoError(t, os.WriteFile(path, make([]byte, 32), 0o644))

	_, err := MapFile(MapOptions{Path: path, Size: 16})
	assert.ErrorIs(t, err, ErrTooLarge)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(32), info.Size())
}

func TestMapFile_InvalidSize(t *testing.T) {
	_, err := MapFile(MapOptions{Path: filepath.Join(t.TempDir(), "region"), Size: 0, Create: true})
	assert.Error(t, err)
}

func TestMappedRegion_BoundsChecks(t *testing.T) {
	m, err := MapFile(MapOptions{Path: filepath.Join(t.TempDir(), "region"), Size: 8, Create: true})
	require.NoError(t, err)
	defer m.Unmap()

	_, err = m.LoadByte(8)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.LoadByte(-1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.ErrorIs(t, m.StoreByte(8, 1), ErrOutOfBounds)
	_, err = m.ReadAt(4, 5)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.ErrorIs(t, m.WriteAt(6, []byte{1, 2, 3}), ErrOutOfBounds)

	assert.NoError(t, m.StoreByte(7, 0xAB))
	v, err := m.LoadByte(7)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), v)
}

func TestMappedRegion_TwoMappingsShareWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	a, err := MapFile(MapOptions{Path: path, Size: 32, Create: true})
	require.NoError(t, err)
	defer a.Unmap()
	b, err := MapFile(MapOptions{Path: path, Size: 32})
	require.NoError(t, err)
	defer b.Unmap()

	require.NoError(t, a.WriteAt(10, []byte{1, 2, 3}))
	got, err := b.ReadAt(10, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestMappedRegion_FlushPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	m, err := MapFile(MapOptions{Path: path, Size: 4, Create: true})
	require.NoError(t, err)
	require.NoError(t, m.StoreByte(1, 0xFF))
	require.NoError(t, m.Flush())
	require.NoError(t, m.Unmap())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0xFF, 0, 0}, raw)
}

func TestMappedRegion_UnmapIdempotent(t *testing.T) {
	m, err := MapFile(MapOptions{Path: filepath.Join(t.TempDir(), "region"), Size: 4, Create: true})
	require.NoError(t, err)
	assert.True(t, m.Mapped())
	assert.NoError(t, m.Unmap())
	assert.NoError(t, m.Unmap())
	assert.False(t, m.Mapped())

	_, err = m.LoadByte(0)
	assert.ErrorIs(t, err, ErrUnmapped)
	assert.ErrorIs(t, m.Flush(), ErrUnmapped)
}

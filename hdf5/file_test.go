package hdf5

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.h5")
}

func TestCreateAndReopen(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	assert.True(t, f.IsWritable())
	assert.Equal(t, 3, f.Version())
	assert.Equal(t, "/", f.Root().Path())
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, f.IsWritable())
	assert.Equal(t, path, f.Path())

	members, err := f.Root().Members()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestOpenNotHDF5(t *testing.T) {
	t.Parallel()
	path := tempFile(t)
	require.NoError(t, os.WriteFile(path, []byte("not an hdf5 file, just text"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestCreateGroups(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)

	sensors, err := f.Root().CreateGroup("sensors")
	require.NoError(t, err)
	assert.Equal(t, "/sensors", sensors.Path())

	_, err = sensors.CreateGroup("temp")
	require.NoError(t, err)
	_, err = f.Root().CreateGroup("logs")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	members, err := f.Root().Members()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sensors", "logs"}, members)

	temp, err := f.OpenGroup("/sensors/temp")
	require.NoError(t, err)
	assert.Equal(t, "temp", temp.Name())

	n, err := f.Root().NumObjects()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOpenGroupErrors(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("data", []int32{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.OpenGroup("/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.OpenGroup("/data")
	assert.ErrorIs(t, err, ErrNotGroup)

	_, err = f.OpenDataset("/")
	assert.ErrorIs(t, err, ErrNotDataset)
}

func TestSoftLink(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	grp, err := f.Root().CreateGroup("real")
	require.NoError(t, err)
	_, err = grp.CreateDataset("values", []float64{1.5, 2.5})
	require.NoError(t, err)
	require.NoError(t, f.Root().CreateSoftLink("alias", "/real"))
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/alias/values")
	require.NoError(t, err)
	vals, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, vals)
}

func TestExternalLink(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	ext, err := Create(filepath.Join(dir, "ext.h5"))
	require.NoError(t, err)
	_, err = ext.Root().CreateDataset("payload", []int64{7, 8, 9})
	require.NoError(t, err)
	require.NoError(t, ext.Close())

	main, err := Create(filepath.Join(dir, "main.h5"))
	require.NoError(t, err)
	require.NoError(t, main.Root().CreateExternalLink("remote", "ext.h5", "/payload"))
	require.NoError(t, main.Close())

	f, err := Open(filepath.Join(dir, "main.h5"))
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/remote")
	require.NoError(t, err)
	vals, err := ds.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8, 9}, vals)
}

func TestClosedFileErrors(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.OpenDataset("/anything")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.OpenGroup("/anything")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAttrByPath(t *testing.T) {
	t.Parallel()
	path := tempFile(t)

	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("data", []int32{1, 2},
		WithAttribute("units", "volts"),
		WithAttribute("gain", 2.5),
	)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	val, err := f.ReadAttr("/data@units")
	require.NoError(t, err)
	assert.Equal(t, "volts", val)

	attr, err := f.GetAttr("/data@gain")
	require.NoError(t, err)
	gain, err := attr.ReadScalarFloat64()
	require.NoError(t, err)
	assert.Equal(t, 2.5, gain)

	_, err = f.GetAttr("/data@missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/section-speed/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"START_2024031509.txt": "nine",
		"START_2024031508.TXT": "eight",
		"END_2024031508.txt":   "end",
		"START_notes.md":       "ignored",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "START_2024031510.txt"), 0755))

	src := NewDirSource(dir)
	items, err := src.Items(context.Background(), "START_")
	require.NoError(t, err)
	assert.Equal(t, []string{"START_2024031508.TXT", "START_2024031509.txt"}, names(items))

	data, err := items[0].ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "eight", string(data))

	ends, err := src.Items(context.Background(), "END_")
	require.NoError(t, err)
	assert.Equal(t, []string{"END_2024031508.txt"}, names(ends))
}

func TestDirSource_MissingDirectory(t *testing.T) {
	_, err := NewDirSource(filepath.Join(t.TempDir(), "nope")).Items(context.Background(), "START_")
	assert.Error(t, err)
}

func TestDirSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDirSource(t.TempDir()).Items(ctx, "START_")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZipSource(t *testing.T) {
	archive := testutil.ZipArchive(t, map[string]string{
		"logs/START_2024031509.txt": "start nine",
		"logs/START_2024031508.txt": "start eight",
		"logs/END_2024031508.txt":   "end eight",
		"logs/readme.md":            "ignored",
	})

	t.Run("in memory", func(t *testing.T) {
		src := NewZipBytesSource("bundle.zip", archive)
		assert.Equal(t, "zip:bundle.zip", src.Name())

		items, err := src.Items(context.Background(), "START_")
		require.NoError(t, err)
		assert.Equal(t, []string{"START_2024031508.txt", "START_2024031509.txt"}, names(items))

		data, err := items[1].ReadAll()
		require.NoError(t, err)
		assert.Equal(t, "start nine", string(data))
	})

	t.Run("on disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bundle.zip")
		require.NoError(t, os.WriteFile(path, archive, 0644))

		items, err := NewZipFileSource(path).Items(context.Background(), "END_")
		require.NoError(t, err)
		assert.Equal(t, []string{"END_2024031508.txt"}, names(items))
	})

	t.Run("corrupt archive", func(t *testing.T) {
		_, err := NewZipBytesSource("broken.zip", []byte("not a zip")).Items(context.Background(), "START_")
		assert.Error(t, err)
	})
}

func TestUploadSource(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("f1", "START_2024031509.txt", []byte("nine"))
	store.AddFile("f2", "START_2024031508.txt", []byte("eight"))
	store.AddFile("f3", "END_2024031508.txt", []byte("end"))

	src := NewUploadSource(store, []string{"f1", "f2", "f3"})

	items, err := src.Items(context.Background(), "START_")
	require.NoError(t, err)
	assert.Equal(t, []string{"START_2024031508.txt", "START_2024031509.txt"}, names(items))

	data, err := items[0].ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "eight", string(data))

	t.Run("unknown id", func(t *testing.T) {
		_, err := NewUploadSource(store, []string{"missing"}).Items(context.Background(), "START_")
		assert.Error(t, err)
	})

	t.Run("zip upload", func(t *testing.T) {
		archive := testutil.ZipArchive(t, map[string]string{"END_2024031508.txt": "zipped"})
		store.AddFile("z1", "bundle.zip", archive)

		items, err := NewZipUploadSource(store, "z1").Items(context.Background(), "END_")
		require.NoError(t, err)
		require.Len(t, items, 1)
		data, err := items[0].ReadAll()
		require.NoError(t, err)
		assert.Equal(t, "zipped", string(data))
	})
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource(
		NamedBytes{Name: "b/START_2024031509.txt", Data: []byte("2")},
		NamedBytes{Name: "a/START_2024031508.txt", Data: []byte("1")},
		NamedBytes{Name: "END_2024031508.txt", Data: []byte("x")},
	)

	items, err := src.Items(context.Background(), "START_")
	require.NoError(t, err)
	assert.Equal(t, []string{"START_2024031508.txt", "START_2024031509.txt"}, names(items))
}

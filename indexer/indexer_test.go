package indexer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/vision-index/cache"
	"github.com/tsawler/vision-index/internal/logging"
	"github.com/tsawler/vision-index/vision/dataset"
)

// createDataset writes root/<rel> for every relative image path and a mapping
// file with one superclass per entry of rows
func createDataset(t *testing.T, images []string, rows []string) (root, mapping string) {
	t.Helper()
	base := t.TempDir()
	root = filepath.Join(base, "data")
	for _, rel := range images {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("mock image content"), 0644))
	}
	var content string
	for _, row := range rows {
		content += row + "\n"
	}
	mapping = filepath.Join(base, "superclasses.txt")
	require.NoError(t, os.WriteFile(mapping, []byte(content), 0644))
	return root, mapping
}

func splitItems(t *testing.T, s *dataset.Split) map[string][2]int {
	t.Helper()
	items := make(map[string][2]int, s.Len())
	for i := 0; i < s.Len(); i++ {
		p, c, sc, err := s.GetItem(i)
		require.NoError(t, err)
		items[p] = [2]int{c, sc}
	}
	return items
}

type fakeUploader struct {
	key, localPath string
	err            error
}

func (f *fakeUploader) Upload(_ context.Context, key, localPath string) (string, error) {
	f.key, f.localPath = key, localPath
	if f.err != nil {
		return "", f.err
	}
	return "s3://bucket/" + key, nil
}

func TestBuildCatDog(t *testing.T) {
	root, mapping := createDataset(t,
		[]string{"train/cat/1.jpg", "train/dog/2.png", "val/cat/3.jpeg"},
		[]string{"cat", "dog"})
	out := filepath.Join(t.TempDir(), "index.vidx")

	var logs bytes.Buffer
	idx, err := Build(context.Background(), Options{
		Root:        root,
		MappingFile: mapping,
		Output:      out,
		Logger:      logging.New(&logs, "text", slog.LevelInfo),
	})
	require.NoError(t, err)

	assert.Equal(t, root, idx.BaseDir)
	assert.Equal(t, []string{"cat", "dog"}, idx.ClassNames)
	assert.Equal(t, []int32{1, 2}, idx.ClassToSuperclass)

	require.Equal(t, 2, idx.Train.Len())
	assert.Equal(t, map[string][2]int{"cat/1.jpg": {1, 1}, "dog/2.png": {2, 2}}, splitItems(t, idx.Train))
	assert.Equal(t, len("cat/1.jpg")+1, idx.Train.Paths.Width)

	require.Equal(t, 1, idx.Val.Len())
	assert.Equal(t, map[string][2]int{"cat/3.jpeg": {1, 1}}, splitItems(t, idx.Val))

	loaded, err := cache.Load(out)
	require.NoError(t, err)
	assert.Equal(t, idx, loaded)

	for _, line := range []string{"enumerating classes", "scanning validation set", "scanning training set", "saving cache"} {
		assert.Contains(t, logs.String(), line)
	}
}

func TestBuildFailures(t *testing.T) {
	t.Run("MissingValDirectory", func(t *testing.T) {
		root, mapping := createDataset(t, []string{"train/cat/1.jpg"}, []string{"cat"})
		out := filepath.Join(t.TempDir(), "index.vidx")

		var logs bytes.Buffer
		_, err := Build(context.Background(), Options{
			Root: root, MappingFile: mapping, Output: out,
			Logger: logging.New(&logs, "text", slog.LevelInfo),
		})
		require.ErrorIs(t, err, dataset.ErrDirectoryNotFound)
		assert.Contains(t, err.Error(), filepath.Join(root, "val"))
		assert.NotContains(t, logs.String(), "enumerating classes")
		assert.NoFileExists(t, out)
	})

	t.Run("MissingSuperclassBeforeScan", func(t *testing.T) {
		root, mapping := createDataset(t,
			[]string{"train/cat/1.jpg", "train/dog/2.png", "val/cat/3.jpeg"},
			[]string{"cat", "wolf"})
		out := filepath.Join(t.TempDir(), "index.vidx")

		var logs bytes.Buffer
		_, err := Build(context.Background(), Options{
			Root: root, MappingFile: mapping, Output: out,
			Logger: logging.New(&logs, "text", slog.LevelInfo),
		})
		var ce *dataset.ClassError
		require.ErrorAs(t, err, &ce)
		assert.ErrorIs(t, err, dataset.ErrMissingSuperclass)
		assert.Equal(t, "dog", ce.Class)
		assert.NotContains(t, logs.String(), "scanning")
	})

	t.Run("MappingOmitsClass", func(t *testing.T) {
		root, mapping := createDataset(t,
			[]string{"train/cat/1.jpg", "train/dog/2.png", "val/cat/3.jpeg"},
			[]string{"cat"})

		_, err := Build(context.Background(), Options{
			Root: root, MappingFile: mapping, Output: filepath.Join(t.TempDir(), "index.vidx"),
		})
		assert.ErrorIs(t, err, dataset.ErrCardinalityMismatch)
	})

	t.Run("ValClassNotInTrain", func(t *testing.T) {
		root, mapping := createDataset(t,
			[]string{"train/cat/1.jpg", "val/bird/3.jpg"},
			[]string{"cat"})

		_, err := Build(context.Background(), Options{
			Root: root, MappingFile: mapping, Output: filepath.Join(t.TempDir(), "index.vidx"),
		})
		assert.ErrorIs(t, err, dataset.ErrUnknownClass)
	})

	t.Run("FailedBuildKeepsExistingCache", func(t *testing.T) {
		root, mapping := createDataset(t,
			[]string{"train/cat/1.jpg", "val/bird/3.jpg"},
			[]string{"cat"})
		out := filepath.Join(t.TempDir(), "index.vidx")
		require.NoError(t, os.WriteFile(out, []byte("previous"), 0644))

		_, err := Build(context.Background(), Options{Root: root, MappingFile: mapping, Output: out})
		require.Error(t, err)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "previous", string(data))
	})

	t.Run("UnwritableOutput", func(t *testing.T) {
		root, mapping := createDataset(t, []string{"train/cat/1.jpg", "val/cat/2.jpg"}, []string{"cat"})

		_, err := Build(context.Background(), Options{
			Root: root, MappingFile: mapping, Output: filepath.Join(t.TempDir(), "no", "such", "index.vidx"),
		})
		assert.ErrorIs(t, err, cache.ErrPersist)
	})
}

func TestBuildPublishes(t *testing.T) {
	root, mapping := createDataset(t, []string{"train/cat/1.jpg", "val/cat/2.jpg"}, []string{"cat"})
	out := filepath.Join(t.TempDir(), "index.vidx")

	t.Run("Uploads", func(t *testing.T) {
		up := &fakeUploader{}
		_, err := Build(context.Background(), Options{
			Root: root, MappingFile: mapping, Output: out,
			Saver:         cache.NewSaver(cache.FormatProto, cache.CompressionZstd),
			Uploader:      up,
			PublishPrefix: "indexes",
		})
		require.NoError(t, err)
		assert.Equal(t, "indexes/index.vidx", up.key)
		assert.Equal(t, out, up.localPath)
	})

	t.Run("UploadError", func(t *testing.T) {
		boom := errors.New("bucket unreachable")
		_, err := Build(context.Background(), Options{
			Root: root, MappingFile: mapping, Output: out,
			Uploader: &fakeUploader{err: boom},
		})
		assert.ErrorIs(t, err, boom)
	})
}

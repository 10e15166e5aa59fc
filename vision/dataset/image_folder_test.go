package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestSplit creates dir/<class>/<file> for every entry in files
func createTestSplit(t *testing.T, dir string, files map[string][]string) {
	t.Helper()
	for className, names := range files {
		classDir := filepath.Join(dir, className)
		require.NoError(t, os.MkdirAll(classDir, 0755))
		for _, name := range names {
			require.NoError(t, createMockImageFile(filepath.Join(classDir, name)))
		}
	}
}

// createMockImageFile creates a simple file to simulate an image
func createMockImageFile(path string) error {
	return os.WriteFile(path, []byte("mock image content"), 0644)
}

func catDogTables(t *testing.T) (*ClassIndex, *SuperclassMap) {
	t.Helper()
	rows := []SuperclassRow{{ID: 1, Members: []string{"cat"}}, {ID: 2, Members: []string{"dog"}}}
	return NewClassIndex([]string{"cat", "dog"}), NewSuperclassMap(rows)
}

func sortedRecords(r *SplitRecords) []string {
	out := make([]string, r.Len())
	for i := range r.Paths {
		out[i] = r.Paths[i]
	}
	sort.Strings(out)
	return out
}

func TestWalkImages(t *testing.T) {
	t.Run("CollectsImagesWithLabels", func(t *testing.T) {
		dir := t.TempDir()
		createTestSplit(t, dir, map[string][]string{
			"cat": {"1.jpg"},
			"dog": {"2.png"},
		})
		classes, supers := catDogTables(t)

		records, err := WalkImages(dir, classes, supers)
		require.NoError(t, err)
		require.Equal(t, 2, records.Len())

		labels := map[string][2]int32{}
		for i, p := range records.Paths {
			labels[p] = [2]int32{records.ClassIDs[i], records.SuperclassIDs[i]}
		}
		assert.Equal(t, map[string][2]int32{
			"cat/1.jpg": {1, 1},
			"dog/2.png": {2, 2},
		}, labels)
		assert.Equal(t, len("cat/1.jpg")+1, records.MaxLen)
	})

	t.Run("ExtensionsAreCaseInsensitive", func(t *testing.T) {
		dir := t.TempDir()
		createTestSplit(t, dir, map[string][]string{
			"dog": {"a.JPG", "b.jpg", "c.Jpg", "d.PnG", "e.ppm", "f.BMP", "g.jpeg"},
		})
		classes := NewClassIndex([]string{"dog"})
		supers := NewSuperclassMap([]SuperclassRow{{ID: 1, Members: []string{"dog"}}})

		records, err := WalkImages(dir, classes, supers)
		require.NoError(t, err)
		assert.Equal(t, 7, records.Len())
		for _, id := range records.ClassIDs {
			assert.Equal(t, int32(1), id)
		}
	})

	t.Run("SkipsNonImageFiles", func(t *testing.T) {
		dir := t.TempDir()
		createTestSplit(t, dir, map[string][]string{
			"cat": {"1.jpg", "notes.txt", "image.gif", "jpg"},
		})
		classes, supers := catDogTables(t)

		records, err := WalkImages(dir, classes, supers)
		require.NoError(t, err)
		assert.Equal(t, []string{"cat/1.jpg"}, records.Paths)
	})

	t.Run("NestedDirectoriesUseImmediateParent", func(t *testing.T) {
		dir := t.TempDir()
		nested := filepath.Join(dir, "cat", "dog")
		require.NoError(t, os.MkdirAll(nested, 0755))
		require.NoError(t, createMockImageFile(filepath.Join(nested, "x.jpg")))
		classes, supers := catDogTables(t)

		records, err := WalkImages(dir, classes, supers)
		require.NoError(t, err)
		assert.Equal(t, []string{"dog/x.jpg"}, records.Paths)
		assert.Equal(t, []int32{2}, records.ClassIDs)
	})

	t.Run("UnknownClass", func(t *testing.T) {
		dir := t.TempDir()
		createTestSplit(t, dir, map[string][]string{
			"cat":  {"1.jpg"},
			"bird": {"2.jpg"},
		})
		classes, supers := catDogTables(t)

		_, err := WalkImages(dir, classes, supers)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownClass))

		var ce *ClassError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "bird", ce.Class)
	})

	t.Run("UnknownSuperclass", func(t *testing.T) {
		dir := t.TempDir()
		createTestSplit(t, dir, map[string][]string{"dog": {"2.jpg"}})
		classes := NewClassIndex([]string{"cat", "dog"})
		supers := NewSuperclassMap([]SuperclassRow{{ID: 1, Members: []string{"cat"}}})

		_, err := WalkImages(dir, classes, supers)
		assert.ErrorIs(t, err, ErrUnknownSuperclass)
	})

	t.Run("FollowsSymlinks", func(t *testing.T) {
		store := t.TempDir()
		createTestSplit(t, store, map[string][]string{"cat": {"linked.jpg"}})

		dir := t.TempDir()
		if err := os.Symlink(filepath.Join(store, "cat"), filepath.Join(dir, "cat")); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
		classes, supers := catDogTables(t)

		records, err := WalkImages(dir, classes, supers)
		require.NoError(t, err)
		assert.Equal(t, []string{"cat/linked.jpg"}, records.Paths)
	})

	t.Run("RecordsLinkedFileByLinkName", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "original.png")
		require.NoError(t, createMockImageFile(target))

		dir := t.TempDir()
		createTestSplit(t, dir, map[string][]string{"dog": {"2.jpg"}})
		if err := os.Symlink(target, filepath.Join(dir, "dog", "alias.jpg")); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
		classes, supers := catDogTables(t)

		records, err := WalkImages(dir, classes, supers)
		require.NoError(t, err)
		assert.Equal(t, []string{"dog/2.jpg", "dog/alias.jpg"}, sortedRecords(records))
		assert.Equal(t, []int32{2, 2}, records.ClassIDs)
	})

	t.Run("SkipsDanglingLinks", func(t *testing.T) {
		dir := t.TempDir()
		createTestSplit(t, dir, map[string][]string{"cat": {"1.jpg"}})
		if err := os.Symlink(filepath.Join(dir, "nowhere.jpg"), filepath.Join(dir, "cat", "gone.jpg")); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
		classes, supers := catDogTables(t)

		records, err := WalkImages(dir, classes, supers)
		require.NoError(t, err)
		assert.Equal(t, []string{"cat/1.jpg"}, records.Paths)
	})

	t.Run("SymlinkLoopTerminates", func(t *testing.T) {
		dir := t.TempDir()
		createTestSplit(t, dir, map[string][]string{"cat": {"1.jpg"}})
		if err := os.Symlink(dir, filepath.Join(dir, "cat", "loop")); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
		classes, supers := catDogTables(t)

		records, err := WalkImages(dir, classes, supers)
		require.NoError(t, err)
		assert.Equal(t, []string{"cat/1.jpg"}, sortedRecords(records))
	})

	t.Run("EmptySplit", func(t *testing.T) {
		classes, supers := catDogTables(t)

		records, err := WalkImages(t.TempDir(), classes, supers)
		require.NoError(t, err)
		assert.Equal(t, 0, records.Len())
		assert.Equal(t, 1, records.MaxLen)
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		classes, supers := catDogTables(t)

		_, err := WalkImages(filepath.Join(t.TempDir(), "missing"), classes, supers)
		assert.ErrorIs(t, err, ErrDirectoryNotFound)
	})
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.jpg", "a.JPEG", "b.Png", "c.ppm", "d.bmp"} {
		assert.True(t, IsImageFile(name), name)
	}
	for _, name := range []string{"a.gif", "a.jpg.txt", "jpg", "a."} {
		assert.False(t, IsImageFile(name), name)
	}
}

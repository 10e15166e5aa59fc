// Package indexer runs the end-to-end build of a dataset index: discover
// classes, join them with their superclasses, scan both splits and write the
// cache file.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/tsawler/vision-index/cache"
	"github.com/tsawler/vision-index/internal/logging"
	"github.com/tsawler/vision-index/vision/dataset"
)

// Options configures a single build
type Options struct {
	// Root holds the train/ and val/ split directories
	Root string
	// MappingFile lists one superclass per line
	MappingFile string
	// Output is the cache file path; an existing file is replaced
	Output string

	// Saver defaults to protobuf without compression
	Saver *cache.Saver

	// Uploader, when set, receives the finished cache file under PublishPrefix
	Uploader      cache.Uploader
	PublishPrefix string

	Logger *slog.Logger
}

// Build indexes opts.Root and writes the cache file. Every failure aborts the
// run; because the cache is written last, a failed build never replaces an
// existing cache file.
func Build(ctx context.Context, opts Options) (*dataset.Index, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	saver := opts.Saver
	if saver == nil {
		saver = cache.NewSaver(cache.FormatProto, cache.CompressionNone)
	}

	trainDir := filepath.Join(opts.Root, dataset.TrainSplit)
	valDir := filepath.Join(opts.Root, dataset.ValSplit)
	if err := dataset.RequireDir(trainDir); err != nil {
		return nil, err
	}
	if err := dataset.RequireDir(valDir); err != nil {
		return nil, err
	}

	log.Info("enumerating classes", "dir", trainDir)
	classes, err := dataset.EnumerateClasses(trainDir)
	if err != nil {
		return nil, err
	}

	supers, err := dataset.LoadSuperclassMap(opts.MappingFile)
	if err != nil {
		return nil, err
	}
	classToSuper, err := dataset.JoinSuperclasses(classes, supers)
	if err != nil {
		return nil, err
	}
	log.Info("classes resolved", "classes", classes.Len(), "superclasses", supers.NumSuperclasses())

	log.Info("scanning validation set", "dir", valDir)
	val, err := scanSplit(valDir, classes, supers)
	if err != nil {
		return nil, err
	}
	log.Info("validation set scanned", "images", val.Len(), "width", val.Paths.Width)

	log.Info("scanning training set", "dir", trainDir)
	train, err := scanSplit(trainDir, classes, supers)
	if err != nil {
		return nil, err
	}
	log.Info("training set scanned", "images", train.Len(), "width", train.Paths.Width)

	idx := &dataset.Index{
		BaseDir:           opts.Root,
		ClassNames:        classes.Names(),
		ClassToSuperclass: classToSuper,
		Train:             train,
		Val:               val,
	}

	log.Info("saving cache", "path", opts.Output)
	if err := saver.Save(idx, opts.Output); err != nil {
		return nil, err
	}

	if opts.Uploader != nil {
		key := cache.ObjectKey(opts.PublishPrefix, opts.Output)
		location, err := opts.Uploader.Upload(ctx, key, opts.Output)
		if err != nil {
			return nil, err
		}
		log.Info("cache published", "location", location)
	}

	return idx, nil
}

func scanSplit(dir string, classes *dataset.ClassIndex, supers *dataset.SuperclassMap) (*dataset.Split, error) {
	records, err := dataset.WalkImages(dir, classes, supers)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return dataset.EncodeSplit(records)
}

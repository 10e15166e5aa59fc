// Command build-index scans an image classification dataset laid out as
// <root>/{train,val}/<class>/<image> and writes a cache file with the image
// paths and their class and superclass labels.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tsawler/vision-index/cache"
	"github.com/tsawler/vision-index/config"
	"github.com/tsawler/vision-index/indexer"
	"github.com/tsawler/vision-index/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "build-index: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("build-index", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: build-index [options]\n\n")
		fmt.Fprintf(fs.Output(), "Index <root>/train and <root>/val into a single cache file.\n\n")
		fmt.Fprintf(fs.Output(), "Options:\n")
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "YAML config file")
	root := fs.String("root", "", "dataset root containing train/ and val/")
	mapping := fs.String("mapping", "", "superclass mapping file, one superclass per line")
	out := fs.String("out", "", "cache file to write")
	format := fs.String("format", "", "cache format: proto or json")
	compression := fs.String("compression", "", "cache compression: none, zstd or lz4")
	publish := fs.Bool("publish", false, "upload the cache file to the configured bucket")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	inspect := fs.String("inspect", "", "print a summary of an existing cache file and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if *inspect != "" {
		idx, err := cache.Load(*inspect)
		if err != nil {
			return err
		}
		fmt.Print(idx.String())
		return nil
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	override(&cfg.Dataset.Root, *root)
	override(&cfg.Dataset.Mapping, *mapping)
	override(&cfg.Cache.Output, *out)
	override(&cfg.Cache.Format, *format)
	override(&cfg.Cache.Compression, *compression)
	override(&cfg.Log.Level, *logLevel)
	if *publish {
		cfg.Publish.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	f, err := cache.ParseFormat(cfg.Cache.Format)
	if err != nil {
		return err
	}
	c, err := cache.ParseCompression(cfg.Cache.Compression)
	if err != nil {
		return err
	}

	opts := indexer.Options{
		Root:        cfg.Dataset.Root,
		MappingFile: cfg.Dataset.Mapping,
		Output:      cfg.Cache.Output,
		Saver:       cache.NewSaver(f, c),
		Logger:      logging.New(os.Stdout, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level)),
	}
	if cfg.Publish.Enabled {
		publisher, err := cache.NewPublisher(cache.PublishOptions{
			Endpoint:  cfg.Publish.Endpoint,
			Region:    cfg.Publish.Region,
			Bucket:    cfg.Publish.Bucket,
			AccessKey: cfg.Publish.AccessKey,
			SecretKey: cfg.Publish.SecretKey,
			UseSSL:    cfg.Publish.UseSSL,
		})
		if err != nil {
			return err
		}
		opts.Uploader = publisher
		opts.PublishPrefix = cfg.Publish.Prefix
	}

	_, err = indexer.Build(context.Background(), opts)
	return err
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

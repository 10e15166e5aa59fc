package cache

import (
	"encoding/json"
	"fmt"

	"github.com/tsawler/vision-index/vision/dataset"
)

type jsonIndex struct {
	BaseDir           string     `json:"base_dir"`
	ClassNames        []string   `json:"class_names"`
	ClassToSuperclass []int32    `json:"class_to_superclass"`
	Train             *jsonSplit `json:"train"`
	Val               *jsonSplit `json:"val"`
}

// jsonSplit keeps the table width so the fixed-width buffer is rebuilt exactly on load
type jsonSplit struct {
	Width         int      `json:"width"`
	Paths         []string `json:"paths"`
	ClassIDs      []int32  `json:"class_ids"`
	SuperclassIDs []int32  `json:"superclass_ids"`
}

func marshalJSON(idx *dataset.Index) ([]byte, error) {
	doc := jsonIndex{
		BaseDir:           idx.BaseDir,
		ClassNames:        idx.ClassNames,
		ClassToSuperclass: idx.ClassToSuperclass,
		Train:             toJSONSplit(idx.Train),
		Val:               toJSONSplit(idx.Val),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode index: %w", err)
	}
	return data, nil
}

func toJSONSplit(s *dataset.Split) *jsonSplit {
	js := &jsonSplit{
		Width:         s.Paths.Width,
		Paths:         make([]string, s.Len()),
		ClassIDs:      s.ClassIDs,
		SuperclassIDs: s.SuperclassIDs,
	}
	for i := range js.Paths {
		js.Paths[i] = s.Paths.Path(i)
	}
	return js
}

func unmarshalJSON(data []byte) (*dataset.Index, error) {
	var doc jsonIndex
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}

	idx := &dataset.Index{
		BaseDir:           doc.BaseDir,
		ClassNames:        doc.ClassNames,
		ClassToSuperclass: doc.ClassToSuperclass,
	}
	var err error
	if idx.Train, err = fromJSONSplit(doc.Train); err != nil {
		return nil, fmt.Errorf("train split: %w", err)
	}
	if idx.Val, err = fromJSONSplit(doc.Val); err != nil {
		return nil, fmt.Errorf("val split: %w", err)
	}
	return idx, nil
}

func fromJSONSplit(js *jsonSplit) (*dataset.Split, error) {
	if js == nil {
		return nil, fmt.Errorf("missing")
	}
	// A saved width is always the longest path plus its terminator
	longest := 0
	for _, p := range js.Paths {
		longest = max(longest, len(p))
	}
	if js.Width < 1 || js.Width > longest+1 {
		return nil, fmt.Errorf("path width %d does not fit %d paths of at most %d bytes", js.Width, len(js.Paths), longest)
	}
	table, err := dataset.NewPathTable(js.Paths, js.Width)
	if err != nil {
		return nil, err
	}
	return &dataset.Split{
		Paths:         table,
		ClassIDs:      js.ClassIDs,
		SuperclassIDs: js.SuperclassIDs,
	}, nil
}

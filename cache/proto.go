package cache

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tsawler/vision-index/vision/dataset"
)

// Protobuf field numbers. Equivalent .proto:
//
//	message Index {
//	  string base_dir = 1;
//	  repeated string class_names = 2;
//	  repeated int32 class_to_superclass = 3;
//	  Split train = 4;
//	  Split val = 5;
//	}
//	message Split {
//	  uint32 rows = 1;
//	  uint32 width = 2;
//	  bytes paths = 3;
//	  repeated int32 class_ids = 4;
//	  repeated int32 superclass_ids = 5;
//	}
const (
	fieldBaseDir           protowire.Number = 1
	fieldClassNames        protowire.Number = 2
	fieldClassToSuperclass protowire.Number = 3
	fieldTrain             protowire.Number = 4
	fieldVal               protowire.Number = 5

	fieldSplitRows          protowire.Number = 1
	fieldSplitWidth         protowire.Number = 2
	fieldSplitPaths         protowire.Number = 3
	fieldSplitClassIDs      protowire.Number = 4
	fieldSplitSuperclassIDs protowire.Number = 5
)

func marshalProto(idx *dataset.Index) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldBaseDir, protowire.BytesType)
	b = protowire.AppendString(b, idx.BaseDir)
	for _, name := range idx.ClassNames {
		b = protowire.AppendTag(b, fieldClassNames, protowire.BytesType)
		b = protowire.AppendString(b, name)
	}
	b = appendPackedInt32(b, fieldClassToSuperclass, idx.ClassToSuperclass)
	b = protowire.AppendTag(b, fieldTrain, protowire.BytesType)
	b = protowire.AppendBytes(b, marshalSplit(idx.Train))
	b = protowire.AppendTag(b, fieldVal, protowire.BytesType)
	b = protowire.AppendBytes(b, marshalSplit(idx.Val))
	return b
}

func marshalSplit(s *dataset.Split) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldSplitRows, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Paths.Rows))
	b = protowire.AppendTag(b, fieldSplitWidth, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Paths.Width))
	b = protowire.AppendTag(b, fieldSplitPaths, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Paths.Data)
	b = appendPackedInt32(b, fieldSplitClassIDs, s.ClassIDs)
	b = appendPackedInt32(b, fieldSplitSuperclassIDs, s.SuperclassIDs)
	return b
}

func appendPackedInt32(b []byte, num protowire.Number, values []int32) []byte {
	if len(values) == 0 {
		return b
	}
	var packed []byte
	for _, v := range values {
		packed = protowire.AppendVarint(packed, uint64(int64(v)))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// fieldVisitor handles one field and returns the number of bytes of b it consumed
type fieldVisitor func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walkFields(b []byte, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := visit(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

func unmarshalProto(b []byte) (*dataset.Index, error) {
	idx := &dataset.Index{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldBaseDir && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			idx.BaseDir = v
			return n, nil
		case num == fieldClassNames && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n >= 0 {
				idx.ClassNames = append(idx.ClassNames, v)
			}
			return n, nil
		case num == fieldClassToSuperclass:
			return consumeInt32s(typ, b, &idx.ClassToSuperclass)
		case (num == fieldTrain || num == fieldVal) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			split, err := unmarshalSplit(v)
			if err != nil {
				return 0, err
			}
			if num == fieldTrain {
				idx.Train = split
			} else {
				idx.Val = split
			}
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func unmarshalSplit(b []byte) (*dataset.Split, error) {
	s := &dataset.Split{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldSplitRows && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			s.Paths.Rows = int(v)
			return n, nil
		case num == fieldSplitWidth && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			s.Paths.Width = int(v)
			return n, nil
		case num == fieldSplitPaths && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				s.Paths.Data = append([]byte(nil), v...)
			}
			return n, nil
		case num == fieldSplitClassIDs:
			return consumeInt32s(typ, b, &s.ClassIDs)
		case num == fieldSplitSuperclassIDs:
			return consumeInt32s(typ, b, &s.SuperclassIDs)
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	if s.Paths.Data == nil {
		s.Paths.Data = []byte{}
	}
	return s, nil
}

// consumeInt32s accepts both packed and unpacked repeated int32 encodings
func consumeInt32s(typ protowire.Type, b []byte, dst *[]int32) (int, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n >= 0 {
			*dst = append(*dst, int32(v))
		}
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return 0, protowire.ParseError(m)
			}
			*dst = append(*dst, int32(v))
			packed = packed[m:]
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected wire type %d for repeated int32", typ)
	}
}

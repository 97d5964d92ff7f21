package types

// Widths: char 1, short 2, int 4, long/long long 8, pointer 8 (this
// repo targets x86-64 SysV only, so the ILP64-adjacent LP64 data model
// is not configurable). long double is sized as one 16-byte SysV
// stack/register slot; no arithmetic beyond that representation is
// performed (out of scope).
const (
	sizeBool       = 1
	sizeChar       = 1
	sizeShort      = 2
	sizeInt        = 4
	sizeLong       = 8
	sizeLongLong   = 8
	sizePointer    = 8
	sizeFloat      = 4
	sizeDouble     = 8
	sizeLongDouble = 16
)

// Size returns the size in bytes of a complete type, following
// struct/union/array layout computed by this package's own alignment
// rules (C99 6.5.3.4). void has size 0; any other incomplete type
// (including a struct/union whose body has not been seen) returns -1.
func (t *Type) Size() int64 {
	if t == nil {
		return -1
	}
	if t.Kind == Void {
		return 0
	}
	if !t.IsComplete() {
		return -1
	}
	switch t.Kind {
	case Bool:
		return sizeBool
	case Char, SChar, UChar:
		return sizeChar
	case Short, UShort:
		return sizeShort
	case Int, UInt, Enum:
		return sizeInt
	case Long, ULong:
		return sizeLong
	case LongLong, ULongLong:
		return sizeLongLong
	case Float, FloatComplex:
		if t.Kind == FloatComplex {
			return sizeFloat * 2
		}
		return sizeFloat
	case Double, DoubleComplex:
		if t.Kind == DoubleComplex {
			return sizeDouble * 2
		}
		return sizeDouble
	case LongDouble, LongDoubleComplex:
		if t.Kind == LongDoubleComplex {
			return sizeLongDouble * 2
		}
		return sizeLongDouble
	case FloatImaginary:
		return sizeFloat
	case DoubleImaginary:
		return sizeDouble
	case LongDoubleImaginary:
		return sizeLongDouble
	case Pointer:
		return sizePointer
	case Array:
		elem := t.Of.Size()
		if elem < 0 || t.Len == nil {
			return -1
		}
		return elem * *t.Len
	case Struct, Union:
		return structSize(t)
	}
	return -1
}

// Alignment returns the alignment requirement in bytes.
func (t *Type) Alignment() int64 {
	if t == nil {
		return 1
	}
	switch t.Kind {
	case Array:
		return t.Of.Alignment()
	case Struct, Union:
		return structAlign(t)
	default:
		sz := t.Size()
		if sz <= 0 {
			return 1
		}
		return sz
	}
}

// LayoutMembers assigns Offset to each member of a struct/union type
// in place, using the same alignUp rounding idiom as the rest of this
// package, generalized to full C alignment (natural alignment, no
// packing) plus bit-field packing: consecutive bit-fields share
// storage units of their declared type's width when they fit.
func LayoutMembers(t *Type) {
	if t == nil || (t.Kind != Struct && t.Kind != Union) {
		return
	}
	var offset int64
	var maxAlign int64 = 1
	var bitOffset int64 // bit cursor within the current storage unit
	var bitUnitStart int64 = -1
	var bitUnitWidth int64

	flush := func() {
		bitOffset = 0
		bitUnitStart = -1
		bitUnitWidth = 0
	}

	for i := range t.Members {
		m := &t.Members[i]
		align := m.Type.Alignment()
		if align > maxAlign {
			maxAlign = align
		}

		if t.Kind == Union {
			m.Offset = 0
			sz := m.Type.Size()
			if sz < 0 {
				sz = 0
			}
			continue
		}

		if m.BitWidth >= 0 {
			width := m.Type.Size() * 8
			if bitUnitStart < 0 || bitOffset+int64(m.BitWidth) > width {
				offset = alignUp(offset, align)
				bitUnitStart = offset
				bitUnitWidth = m.Type.Size()
				bitOffset = 0
				offset += bitUnitWidth
			}
			m.Offset = bitUnitStart
			bitOffset += int64(m.BitWidth)
			continue
		}

		flush()
		offset = alignUp(offset, align)
		m.Offset = offset
		sz := m.Type.Size()
		if m.Type.Kind == Array && m.Type.Len == nil {
			sz = 0 // flexible array member contributes no size
		}
		if sz < 0 {
			sz = 0
		}
		offset += sz
	}

	if t.Kind == Union {
		var maxSize int64
		for _, m := range t.Members {
			sz := m.Type.Size()
			if sz > maxSize {
				maxSize = sz
			}
		}
		offset = maxSize
	}

	t.structSize = alignUp(offset, maxAlign)
	t.structAlign = maxAlign
}

func alignUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

func structSize(t *Type) int64 {
	if t.structSize == 0 && len(t.Members) > 0 {
		LayoutMembers(t)
	}
	return t.structSize
}

func structAlign(t *Type) int64 {
	if t.structAlign == 0 {
		if len(t.Members) == 0 {
			return 1
		}
		LayoutMembers(t)
	}
	return t.structAlign
}

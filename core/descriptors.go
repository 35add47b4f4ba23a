package core

import (
	"fmt"
	"strings"
)

// Scalar is the set of element types a descriptor can be made of.
type Scalar interface {
	uint8 | float32 | float64
}

// ScalarType tags the element type of a descriptor set at runtime.
type ScalarType int

const (
	ScalarUnknown ScalarType = iota
	ScalarUint8
	ScalarFloat32
	ScalarFloat64
)

func (s ScalarType) String() string {
	switch s {
	case ScalarUint8:
		return "uint8"
	case ScalarFloat32:
		return "float32"
	case ScalarFloat64:
		return "float64"
	default:
		return "unknown"
	}
}

// ParseScalarType maps a name such as "uint8" or "float32" to its ScalarType.
func ParseScalarType(s string) (ScalarType, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "uint8", "byte", "uchar":
		return ScalarUint8, nil
	case "float32", "float":
		return ScalarFloat32, nil
	case "float64", "double":
		return ScalarFloat64, nil
	}
	return ScalarUnknown, fmt.Errorf("unknown scalar type %q", s)
}

// ScalarTypeOf returns the tag of the type parameter.
func ScalarTypeOf[T Scalar]() ScalarType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return ScalarUint8
	case float32:
		return ScalarFloat32
	case float64:
		return ScalarFloat64
	}
	return ScalarUnknown
}

// DescriptorKind distinguishes real-valued descriptors from bit-packed ones.
type DescriptorKind int

const (
	KindDense DescriptorKind = iota
	KindBinary
)

func (k DescriptorKind) String() string {
	if k == KindBinary {
		return "binary"
	}
	return "dense"
}

// ParseDescriptorKind maps "dense" or "binary" to its DescriptorKind.
func ParseDescriptorKind(s string) (DescriptorKind, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "dense", "scalar", "":
		return KindDense, nil
	case "binary":
		return KindBinary, nil
	}
	return KindDense, fmt.Errorf("unknown descriptor kind %q", s)
}

// Point is the image-plane position of a feature.
type Point struct {
	X, Y float32
}

// DescriptorSet is the read-only, type-erased view of one image's features.
type DescriptorSet interface {
	Len() int
	Dimension() int
	ScalarType() ScalarType
	Kind() DescriptorKind
	Positions() []Point
}

// Descriptors is a typed descriptor set: Len() rows of Dimension() scalars stored
// row-major, with one position per row.
type Descriptors[T Scalar] struct {
	kind      DescriptorKind
	dimension int
	data      []T
	positions []Point
}

// NewDescriptors wraps data and positions without copying them.
// For binary descriptors dimension counts bytes, not bits.
func NewDescriptors[T Scalar](kind DescriptorKind, dimension int, data []T, positions []Point) (*Descriptors[T], error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrDimensionMismatch, dimension)
	}
	if len(data) != dimension*len(positions) {
		return nil, fmt.Errorf("%w: %d scalars for %d positions of dimension %d",
			ErrDimensionMismatch, len(data), len(positions), dimension)
	}
	if kind == KindBinary && ScalarTypeOf[T]() != ScalarUint8 {
		return nil, fmt.Errorf("%w: binary descriptors must be uint8, got %s",
			ErrScalarMismatch, ScalarTypeOf[T]())
	}
	return &Descriptors[T]{
		kind:      kind,
		dimension: dimension,
		data:      data,
		positions: positions,
	}, nil
}

// View returns the typed form of set. It fails instead of reinterpreting memory
// when the set does not hold T elements.
func View[T Scalar](set DescriptorSet) (*Descriptors[T], error) {
	if set == nil {
		return nil, fmt.Errorf("%w: nil descriptor set", ErrScalarMismatch)
	}
	d, ok := set.(*Descriptors[T])
	if !ok {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrScalarMismatch, ScalarTypeOf[T](), set.ScalarType())
	}
	return d, nil
}

func (d *Descriptors[T]) Len() int               { return len(d.positions) }
func (d *Descriptors[T]) Dimension() int         { return d.dimension }
func (d *Descriptors[T]) ScalarType() ScalarType { return ScalarTypeOf[T]() }
func (d *Descriptors[T]) Kind() DescriptorKind   { return d.kind }
func (d *Descriptors[T]) Positions() []Point     { return d.positions }

// Data returns the row-major backing slice.
func (d *Descriptors[T]) Data() []T { return d.data }

// Row returns the i-th descriptor.
func (d *Descriptors[T]) Row(i int) []T {
	start := i * d.dimension
	return d.data[start : start+d.dimension : start+d.dimension]
}

// Position returns the position of the i-th feature.
func (d *Descriptors[T]) Position(i int) Point { return d.positions[i] }

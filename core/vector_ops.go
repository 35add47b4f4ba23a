package core

// ToFloat32 converts a descriptor to float32, reusing dst when it is large enough.
func ToFloat32[T Scalar](dst []float32, v []T) []float32 {
	if cap(dst) < len(v) {
		dst = make([]float32, len(v))
	}
	dst = dst[:len(v)]
	for i, x := range v {
		dst[i] = float32(x)
	}
	return dst
}

// ToFloat64 converts a descriptor to float64, reusing dst when it is large enough.
func ToFloat64[T Scalar](dst []float64, v []T) []float64 {
	if cap(dst) < len(v) {
		dst = make([]float64, len(v))
	}
	dst = dst[:len(v)]
	for i, x := range v {
		dst[i] = float64(x)
	}
	return dst
}

// ToFloat32Batch converts count row-major descriptors into separate float32 vectors.
func ToFloat32Batch[T Scalar](data []T, count, dimension int) [][]float32 {
	out := make([][]float32, count)
	flat := make([]float32, count*dimension)
	for i := 0; i < count; i++ {
		row := flat[i*dimension : (i+1)*dimension : (i+1)*dimension]
		out[i] = ToFloat32(row, data[i*dimension:(i+1)*dimension])
	}
	return out
}

package core

import (
	"golang.org/x/sys/cpu"
)

// SIMDSupport reports whether the CPU offers the vector instructions the
// projection tree's dot products are accelerated with.
func SIMDSupport() bool {
	return cpu.X86.HasAVX2 && cpu.X86.HasFMA || cpu.ARM64.HasASIMD
}

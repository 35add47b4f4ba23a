package core

import (
	"runtime"
	"testing"

	"golang.org/x/sys/cpu"
)

func TestSIMDSupport(t *testing.T) {
	got := SIMDSupport()
	switch runtime.GOARCH {
	case "amd64":
		if want := cpu.X86.HasAVX2 && cpu.X86.HasFMA; got != want {
			t.Errorf("SIMDSupport() = %v; want %v", got, want)
		}
	case "arm64":
		if got != cpu.ARM64.HasASIMD {
			t.Errorf("SIMDSupport() = %v; want %v", got, cpu.ARM64.HasASIMD)
		}
	}
}

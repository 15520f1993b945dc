// Package device selects the compute backend used for training.
package device

import (
	"os"
	"os/exec"
	"runtime"
)

// Kind identifies a compute backend in the form the training CLI expects.
type Kind string

// Supported backends, in preference order.
const (
	CUDA Kind = "cuda"
	MPS  Kind = "mps"
	CPU  Kind = "cpu"
)

// String returns the device selector string.
func (k Kind) String() string { return string(k) }

// Probe is one capability check. Available must be side-effect free.
type Probe struct {
	Kind      Kind
	Available func() bool
}

// DefaultProbes returns the capability checks in fixed preference order:
// NVIDIA GPU, then Apple silicon, then plain CPU. The CPU probe always
// matches so selection cannot come up empty.
func DefaultProbes() []Probe {
	return []Probe{
		{Kind: CUDA, Available: cudaAvailable},
		{Kind: MPS, Available: mpsAvailable},
		{Kind: CPU, Available: func() bool { return true }},
	}
}

// Select evaluates probes in order and returns the first available Kind.
// Falls back to CPU when no probe matches.
func Select(probes []Probe) Kind {
	for _, p := range probes {
		if p.Available != nil && p.Available() {
			return p.Kind
		}
	}
	return CPU
}

// cudaAvailable reports whether an NVIDIA driver is visible on this host,
// either through nvidia-smi on PATH or the kernel driver directory.
func cudaAvailable() bool {
	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		return true
	}
	if _, err := os.Stat("/proc/driver/nvidia"); err == nil {
		return true
	}
	return false
}

// mpsAvailable reports whether the Metal Performance Shaders backend can be
// used, which requires an Apple silicon mac.
func mpsAvailable() bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}

//go:build !amd64

package simd

// DetectedTier is always "scalar" on non-amd64 architectures.
var DetectedTier = "scalar"

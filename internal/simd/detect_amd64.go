//go:build amd64

package simd

import "golang.org/x/sys/cpu"

// DetectedTier records which vector width the running CPU supports, purely
// for diagnostics: engineapi.Open reports it in its startup log line. The
// scan itself always uses the portable scalar path (scanGeneric).
var DetectedTier string

func init() {
	switch {
	case cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW:
		DetectedTier = "avx512"
	case cpu.X86.HasAVX2:
		DetectedTier = "avx2"
	default:
		DetectedTier = "scalar"
	}
	scanImpl = scanGeneric
}

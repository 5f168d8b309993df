package metric

import (
	"sync"

	"golang.org/x/sys/cpu"
)

// Level names the SIMD tier the accelerated kernel was dispatched to.
// vek chooses the actual instruction sequence; this is recorded purely
// for diagnostics (Index.Stats) and to decide whether the accelerated
// path is worth taking at all on this architecture.
type Level string

const (
	LevelAVX2    Level = "avx2"
	LevelAVX     Level = "avx"
	LevelSSE41   Level = "sse4.1"
	LevelNEON    Level = "neon"
	LevelPortable Level = "portable"
)

type kernel struct {
	level Level
	l2sq  Func
	cosine Func
	dot   Func
}

var (
	kernelOnce sync.Once
	activeKernel kernel
)

func currentKernel() kernel {
	kernelOnce.Do(func() {
		activeKernel = detectKernel()
	})
	return activeKernel
}

// CurrentLevel exposes the detected SIMD tier for diagnostics.
func CurrentLevel() Level {
	return currentKernel().level
}

func detectKernel() kernel {
	level := detectLevel()
	if level == LevelPortable {
		return kernel{level: level, l2sq: L2SquaredPortable, cosine: CosinePortable, dot: DotAsDistancePortable}
	}
	return kernel{level: level, l2sq: l2SquaredAccelerated, cosine: cosineAccelerated, dot: dotAccelerated}
}

func detectLevel() Level {
	switch {
	case cpu.X86.HasAVX2:
		return LevelAVX2
	case cpu.X86.HasAVX:
		return LevelAVX
	case cpu.X86.HasSSE41:
		return LevelSSE41
	case cpu.ARM64.HasASIMD:
		return LevelNEON
	default:
		return LevelPortable
	}
}

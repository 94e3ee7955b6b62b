package gpu

import (
	"math"

	"github.com/gogpu/gputypes"
)

// These three combinations are the only buffer usages cost.wgsl needs: a
// small uniform the CPU writes once per dispatch, and three storage
// buffers (two read-only inputs, one read-write output).
func gputypesUniformCopyDst() gputypes.BufferUsage {
	return gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
}

func gputypesStorageCopyDst() gputypes.BufferUsage {
	return gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
}

func gputypesStorageCopySrc() gputypes.BufferUsage {
	return gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
}

func float32SliceBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		putF32(out[i*4:i*4+4], f)
	}
	return out
}

func float32FromBytes(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}

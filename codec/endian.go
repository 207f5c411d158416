package codec

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// nativeLittleEndian enables bulk copies between typed slices and the
// little-endian wire representation.
const nativeLittleEndian = !cpu.IsBigEndian

func float64Bytes(vs []float64) []byte {
	if len(vs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), len(vs)*SizeFloat64)
}

func float32Bytes(vs []float32) []byte {
	if len(vs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), len(vs)*SizeFloat32)
}

func int64Bytes(vs []int64) []byte {
	if len(vs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), len(vs)*SizeInt64)
}

func int32Bytes(vs []int32) []byte {
	if len(vs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), len(vs)*SizeInt32)
}

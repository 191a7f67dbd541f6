package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Float32ToInt16 把 [-1, 1] 的样本转为 16 位 PCM，超出范围的值被钳位。
func Float32ToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		out[i] = int16(s * math.MaxInt16)
	}
	return out
}

// Int16ToFloat32 把 16 位 PCM 转为 float32 样本。
func Int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / math.MaxInt16
	}
	return out
}

// Float32ToBytes 把样本编码为小端 s16 字节，播放设备和缓存都使用这种格式。
func Float32ToBytes(in []float32) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range Float32ToInt16(in) {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// BytesToFloat32 解码小端 s16 字节，末尾不足一个样本的字节被忽略。
func BytesToFloat32(b []byte) []float32 {
	n := len(b) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(int16(binary.LittleEndian.Uint16(b[2*i:]))) / math.MaxInt16
	}
	return out
}

// StereoToMono 把交错的双声道 s16 字节混为单声道样本，不完整的尾帧被截掉。
func StereoToMono(pcm []byte) []float32 {
	const frameSize = 4
	frames := len(pcm) / frameSize
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		off := i * frameSize
		left := int16(binary.LittleEndian.Uint16(pcm[off:]))
		right := int16(binary.LittleEndian.Uint16(pcm[off+2:]))
		out[i] = (float32(left) + float32(right)) / 2 / 32768
	}
	return out
}

// Interleave 把单声道样本复制到 channels 个声道。
func Interleave(mono []float32, channels int) []float32 {
	if channels <= 1 {
		return mono
	}
	out := make([]float32, len(mono)*channels)
	for i, s := range mono {
		for c := 0; c < channels; c++ {
			out[i*channels+c] = s
		}
	}
	return out
}

// Duration 返回单声道样本的播放时长。
func Duration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

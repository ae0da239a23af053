package audio

import (
	"encoding/binary"
	"io"
	"time"
)

const wavHeaderBytes = 44

// WriteWAV writes little-endian s16 PCM behind a canonical 44-byte WAV header.
func WriteWAV(w io.Writer, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, wavHeaderBytes)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}

// PCMDuration converts a byte count of 16 kHz mono s16 audio to wall time.
func PCMDuration(bytes int64) time.Duration {
	const bytesPerSecond = SampleRate * Channels * 2
	return time.Duration(bytes) * time.Second / bytesPerSecond
}

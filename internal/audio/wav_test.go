package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteWAVHeader(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0}
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, pcm, 16000, 1))

	out := buf.Bytes()
	require.Len(t, out, wavHeaderBytes+len(pcm))
	require.Equal(t, "RIFF", string(out[0:4]))
	require.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(out[4:8]))
	require.Equal(t, "WAVE", string(out[8:12]))
	require.Equal(t, "fmt ", string(out[12:16]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(out[20:22]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(out[22:24]))
	require.Equal(t, uint32(16000), binary.LittleEndian.Uint32(out[24:28]))
	require.Equal(t, uint32(32000), binary.LittleEndian.Uint32(out[28:32]))
	require.Equal(t, uint16(2), binary.LittleEndian.Uint16(out[32:34]))
	require.Equal(t, uint16(16), binary.LittleEndian.Uint16(out[34:36]))
	require.Equal(t, "data", string(out[36:40]))
	require.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(out[40:44]))
	require.Equal(t, pcm, out[wavHeaderBytes:])
}

func TestWriteWAVDefaultsChannels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, nil, 8000, 0))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(buf.Bytes()[22:24]))
}

func TestPCMDuration(t *testing.T) {
	require.Equal(t, time.Second, PCMDuration(32000))
	require.Equal(t, 20*time.Millisecond, PCMDuration(fragmentBytes))
	require.Equal(t, time.Duration(0), PCMDuration(0))
}

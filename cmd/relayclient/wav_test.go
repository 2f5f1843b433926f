package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testWAV(sampleRate uint32, channels uint16, frames int) []byte {
	format := pcmFormat{
		AudioFormat:   1,
		Channels:      channels,
		SampleRate:    sampleRate,
		BitsPerSample: 16,
		BlockAlign:    channels * 2,
		ByteRate:      sampleRate * uint32(channels) * 2,
	}
	samples := make([]byte, frames*int(format.BlockAlign))
	for i := range samples {
		samples[i] = byte(i)
	}
	return encodeWAV(format, samples)
}

func TestSplitWAV(t *testing.T) {
	// 2.5 seconds of 16 kHz mono
	data := testWAV(16000, 1, 40000)

	chunks, err := splitWAV(data, time.Second)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	total := 0
	for i, chunk := range chunks {
		format, samples, err := parseWAV(chunk)
		require.NoError(t, err, "chunk %d", i)
		require.Equal(t, uint32(16000), format.SampleRate)
		total += len(samples)
	}
	require.Equal(t, 80000, total)

	_, last, err := parseWAV(chunks[2])
	require.NoError(t, err)
	require.Len(t, last, 16000)
}

func TestSplitWAV_KeepsFrameBoundaries(t *testing.T) {
	// Stereo frames are four bytes; 0.3s of 10 Hz audio is three frames.
	data := testWAV(10, 2, 10)

	chunks, err := splitWAV(data, 300*time.Millisecond)
	require.NoError(t, err)
	for _, chunk := range chunks {
		_, samples, err := parseWAV(chunk)
		require.NoError(t, err)
		require.Zero(t, len(samples)%4)
	}
}

func TestParseWAV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not riff", data: []byte("OggS0000WAVE")},
		{name: "no data chunk", data: testWAV(16000, 1, 10)[:36]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseWAV(tt.data)
			require.Error(t, err)
		})
	}

	_, err := splitWAV(testWAV(16000, 1, 10), time.Nanosecond)
	require.Error(t, err)
}

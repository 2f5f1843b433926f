package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const wavHeaderSize = 44

// pcmFormat is the "fmt " chunk of a PCM WAV file
type pcmFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// parseWAV returns the format and the sample data of a RIFF/WAVE file
func parseWAV(data []byte) (pcmFormat, []byte, error) {
	var format pcmFormat
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return format, nil, errors.New("not a RIFF/WAVE file")
	}

	var haveFormat bool
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if size < 0 || body+size > len(data) {
			// Some encoders write a bogus size for a trailing data chunk.
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return format, nil, errors.New("fmt chunk too short")
			}
			if err := binary.Read(bytes.NewReader(data[body:body+16]), binary.LittleEndian, &format); err != nil {
				return format, nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return format, nil, errors.New("data chunk before fmt chunk")
			}
			if format.AudioFormat != 1 {
				return format, nil, fmt.Errorf("unsupported WAV encoding %d, want PCM", format.AudioFormat)
			}
			if format.BlockAlign == 0 {
				return format, nil, errors.New("block align is zero")
			}
			return format, data[body : body+size], nil
		}

		// Chunks are padded to an even size.
		offset = body + size + size%2
	}
	return format, nil, errors.New("no data chunk")
}

// splitWAV cuts a PCM WAV file into standalone WAV files of at most chunk
// duration each, split on sample frame boundaries.
func splitWAV(data []byte, chunk time.Duration) ([][]byte, error) {
	format, samples, err := parseWAV(data)
	if err != nil {
		return nil, err
	}

	frames := int(chunk.Seconds() * float64(format.SampleRate))
	if frames <= 0 {
		return nil, fmt.Errorf("chunk duration %s is shorter than one sample", chunk)
	}
	step := frames * int(format.BlockAlign)

	var chunks [][]byte
	for start := 0; start < len(samples); start += step {
		end := min(start+step, len(samples))
		end -= (end - start) % int(format.BlockAlign)
		if end <= start {
			break
		}
		chunks = append(chunks, encodeWAV(format, samples[start:end]))
	}
	return chunks, nil
}

func encodeWAV(format pcmFormat, samples []byte) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(samples)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, format)
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(samples)))
	buf.Write(samples)
	return buf.Bytes()
}

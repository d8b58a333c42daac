package walkie

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Tone kinds played around a transmission.
const (
	ToneStart = "start"
	ToneEnd   = "end"
)

const (
	toneSampleRate = 16000
	toneAmplitude  = 0.3
	toneFade       = 5 * time.Millisecond
)

type note struct {
	freq float64
	dur  time.Duration
}

var tones = map[string][]note{
	// Rising chirp before talking, falling chirp after.
	ToneStart: {{880, 70 * time.Millisecond}, {1320, 90 * time.Millisecond}},
	ToneEnd:   {{1320, 70 * time.Millisecond}, {660, 110 * time.Millisecond}},
}

// Tone renders a push-to-talk chirp as a 16-bit PCM mono WAV file.
func Tone(kind string) ([]byte, error) {
	notes, ok := tones[kind]
	if !ok {
		return nil, fmt.Errorf("unknown tone %q", kind)
	}
	var samples []int16
	for _, n := range notes {
		samples = append(samples, sine(n.freq, n.dur)...)
	}
	return encodeWAV(samples, toneSampleRate), nil
}

// sine renders one note with a linear fade at both ends to avoid clicks.
func sine(freq float64, dur time.Duration) []int16 {
	n := int(dur.Seconds() * toneSampleRate)
	fade := int(toneFade.Seconds() * toneSampleRate)
	out := make([]int16, n)
	for i := range out {
		gain := toneAmplitude
		if i < fade {
			gain *= float64(i) / float64(fade)
		} else if n-i < fade {
			gain *= float64(n-i) / float64(fade)
		}
		v := gain * math.Sin(2*math.Pi*freq*float64(i)/toneSampleRate)
		out[i] = int16(v * math.MaxInt16)
	}
	return out
}

func encodeWAV(samples []int16, rate int) []byte {
	const bitsPerSample, channels = 16, 1
	dataLen := len(samples) * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataLen)

	w := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	buf.WriteString("RIFF")
	w(uint32(36 + dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1)) // PCM
	w(uint16(channels))
	w(uint32(rate))
	w(uint32(rate * channels * bitsPerSample / 8))
	w(uint16(channels * bitsPerSample / 8))
	w(uint16(bitsPerSample))
	buf.WriteString("data")
	w(uint32(dataLen))
	w(samples)
	return buf.Bytes()
}

package main

import (
	"encoding/binary"
	"math"

	"github.com/quasilyte/imuse"
)

// driverStream is an io.Reader for the Ebitengine audio player.
// It produces 16-bit stereo samples and calls the driver Tick
// every samplesPerTick samples.
type driverStream struct {
	driver *imuse.Driver
	synth  *toneSynth

	samplesPerTick int
	tickRemaining  int

	onTick func()

	buf [][2]float64
}

func newDriverStream(d *imuse.Driver, synth *toneSynth, samplesPerTick int) *driverStream {
	return &driverStream{
		driver:         d,
		synth:          synth,
		samplesPerTick: samplesPerTick,
		buf:            make([][2]float64, 512),
	}
}

func (s *driverStream) Read(b []byte) (int, error) {
	const bytesPerSample = 4
	numSamples := len(b) / bytesPerSample
	written := 0

	for numSamples > 0 {
		if s.tickRemaining == 0 {
			// Tick is deferred while the players are locked;
			// the audio keeps flowing anyway.
			s.driver.Tick()
			if s.onTick != nil {
				s.onTick()
			}
			s.tickRemaining = s.samplesPerTick
		}
		n := min(numSamples, s.tickRemaining, len(s.buf))
		samples := s.buf[:n]
		s.synth.Stream(samples)
		for _, sample := range samples {
			binary.LittleEndian.PutUint16(b[written:], uint16(toInt16(sample[0])))
			binary.LittleEndian.PutUint16(b[written+2:], uint16(toInt16(sample[1])))
			written += bytesPerSample
		}
		numSamples -= n
		s.tickRemaining -= n
	}

	return written, nil
}

func toInt16(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(v * math.MaxInt16)
}

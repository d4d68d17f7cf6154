package main

import (
	"math"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/quasilyte/imuse"
)

// toneSynth renders every bound driver channel as a sine tone.
// The tone pitch depends on the channel program, its loudness
// follows the resolved channel volume.
type toneSynth struct {
	mu sync.Mutex

	sampleRate beep.SampleRate
	mixer      beep.Mixer
	voices     [imuse.NumChannels]toneVoice
}

type toneVoice struct {
	ctrl   *beep.Ctrl
	volume *effects.Volume
}

func newToneSynth(sampleRate int) *toneSynth {
	s := &toneSynth{sampleRate: beep.SampleRate(sampleRate)}
	for i := range s.voices {
		v := &s.voices[i]
		v.volume = &effects.Volume{Base: 2, Silent: true}
		v.ctrl = &beep.Ctrl{Streamer: v.volume, Paused: true}
		s.mixer.Add(v.ctrl)
	}
	return s
}

func (s *toneSynth) HandleEvent(e imuse.ChannelEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Kind {
	case imuse.EventBind:
		v := &s.voices[e.Channel]
		tone, err := generators.SineTone(s.sampleRate, programFrequency(e.Program))
		if err != nil {
			return
		}
		v.volume.Streamer = tone
		setVoiceVolume(v, e.Volume)
		v.ctrl.Paused = false
	case imuse.EventVolume:
		setVoiceVolume(&s.voices[e.Channel], e.Volume)
	case imuse.EventParam:
		if e.Param != imuse.PartParamProgram {
			return
		}
		v := &s.voices[e.Channel]
		if tone, err := generators.SineTone(s.sampleRate, programFrequency(e.Value)); err == nil {
			v.volume.Streamer = tone
		}
	case imuse.EventRelease:
		s.voices[e.Channel].ctrl.Paused = true
	case imuse.EventDigitalPause:
		for i := range s.voices {
			s.voices[i].volume.Silent = true
		}
	case imuse.EventDigitalResume:
		for i := range s.voices {
			v := &s.voices[i]
			v.volume.Silent = v.volume.Volume == math.Inf(-1)
		}
	}
}

func (s *toneSynth) Stream(samples [][2]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _ := s.mixer.Stream(samples)
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	// Every voice is a full scale tone; keep the mix away from clipping.
	for i := range samples[:n] {
		samples[i][0] /= imuse.NumChannels / 2
		samples[i][1] /= imuse.NumChannels / 2
	}
}

func setVoiceVolume(v *toneVoice, volume int) {
	if volume <= 0 {
		v.volume.Volume = math.Inf(-1)
		v.volume.Silent = true
		return
	}
	v.volume.Volume = math.Log2(float64(volume) / imuse.MaxVolume)
	v.volume.Silent = false
}

// programFrequency maps the instrument program to a note of the
// A3-A5 range, so different instruments are easy to tell apart.
func programFrequency(program int) float64 {
	return 220 * math.Pow(2, float64(program%24)/12)
}

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/quasilyte/imuse"
	"github.com/quasilyte/imuse/imusefile"
	"github.com/quasilyte/imuse/imusemidi"
)

// This simple tool loads a sound bank and lets you start and stop its cues.
// Every bound channel is rendered as a plain tone, so you can hear
// the allocator and the volume hierarchy at work.

const (
	sampleRate = 44100
	tickRate   = 60
)

func main() {
	recordPath := flag.String("record", "", "write the MIDI output to this file on exit")
	verbose := flag.Bool("v", false, "log the channel allocation details")
	flag.Usage = func() {
		fmt.Printf("usage: go run ./cmd/imuse-example [flags] path/to/bank.yml\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if len(flag.Args()) < 1 {
		panic("expected at least 1 command-line argument")
	}
	filename := flag.Args()[0]

	f, err := os.Open(filename)
	if err != nil {
		panic(fmt.Errorf("open bank file: %v", err))
	}
	bank, err := imusefile.Parse(f)
	f.Close()
	if err != nil {
		panic(fmt.Errorf("parsing bank file: %v", err))
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	var recorder *imusemidi.Recorder
	transportConfig := imusemidi.TransportConfig{Logger: logger}
	if *recordPath != "" {
		recorder = imusemidi.NewRecorder(tickRate)
		transportConfig.Send = recorder.Send
	}
	transport := imusemidi.NewTransport(transportConfig)

	synth := newToneSynth(sampleRate)
	driver := imuse.NewDriver(imuse.DriverConfig{
		Logger:    logger,
		Sequencer: newDemoSequencer(bank),
		EventHandler: func(e imuse.ChannelEvent) {
			synth.HandleEvent(e)
			transport.HandleEvent(e)
		},
	})
	if err := driver.LoadBank(bank); err != nil {
		panic(fmt.Errorf("loading bank: %v", err))
	}

	stream := newDriverStream(driver, synth, sampleRate/tickRate)
	if recorder != nil {
		stream.onTick = recorder.Advance
	}

	// Create a sound player using the Ebitengine audio context.
	audioContext := audio.NewContext(sampleRate)
	player, err := audioContext.NewPlayer(stream)
	if err != nil {
		panic(err)
	}
	player.Play()

	g := &game{
		driver:   driver,
		bank:     bank,
		filename: filename,
	}
	if err := ebiten.RunGame(g); err != nil {
		panic(err)
	}

	if recorder != nil {
		out, err := os.Create(*recordPath)
		if err != nil {
			panic(err)
		}
		defer out.Close()
		if _, err := recorder.WriteTo(out); err != nil {
			panic(fmt.Errorf("write MIDI file: %v", err))
		}
	}
}

type game struct {
	driver *imuse.Driver
	bank   *imusefile.Bank

	filename string
}

var soundKeys = []ebiten.Key{
	ebiten.Key1, ebiten.Key2, ebiten.Key3,
	ebiten.Key4, ebiten.Key5, ebiten.Key6,
	ebiten.Key7, ebiten.Key8, ebiten.Key9,
}

func (g *game) Update() error {
	for i, k := range soundKeys {
		if i >= len(g.bank.Sounds) || !inpututil.IsKeyJustPressed(k) {
			continue
		}
		id := imuse.SoundID(g.bank.Sounds[i].ID)
		if g.driver.IsPlaying(id) {
			_ = g.driver.StopSound(id)
			continue
		}
		priority := 64
		if ebiten.IsKeyPressed(ebiten.KeyShift) {
			priority = 100
		}
		if err := g.driver.StartSound(id, priority); err != nil {
			slog.Warn("start sound failed", "sound", id, "err", err)
		}
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		if midi, _ := g.driver.IsPaused(); midi {
			g.driver.Resume()
		} else {
			g.driver.Pause()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyX):
		g.driver.StopAllSounds()
	case inpututil.IsKeyJustPressed(ebiten.KeyZ):
		// Let the second sound follow the first one.
		if len(g.bank.Sounds) >= 2 {
			follower := imuse.SoundID(g.bank.Sounds[1].ID)
			leader := imuse.SoundID(g.bank.Sounds[0].ID)
			if err := g.driver.ShareParts(follower, leader); err != nil {
				slog.Warn("share parts failed", "err", err)
			}
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyUp):
		g.driver.SetMasterVolume(min(g.driver.MasterVolume()+8, imuse.MaxVolume))
	case inpututil.IsKeyJustPressed(ebiten.KeyDown):
		g.driver.SetMasterVolume(max(g.driver.MasterVolume()-8, 0))
	case inpututil.IsKeyJustPressed(ebiten.KeyM):
		g.driver.SetMusicVolume(toggleVolume(g.driver.MusicVolume()))
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		g.driver.SetSfxVolume(toggleVolume(g.driver.SfxVolume()))
	}

	return nil
}

func toggleVolume(v int) int {
	if v == 0 {
		return imuse.MaxVolume
	}
	return 0
}

func (g *game) Draw(screen *ebiten.Image) {
	var b strings.Builder
	fmt.Fprintf(&b, "Bank %s: press 1-9 to toggle a sound (hold SHIFT for a high priority)\n", g.filename)
	fmt.Fprintf(&b, "SPACE pause, X stop all, Z share 2->1, UP/DOWN master volume, M/S mute music/sfx\n\n")
	midiPaused, _ := g.driver.IsPaused()
	fmt.Fprintf(&b, "master=%d music=%d sfx=%d paused=%v\n\n",
		g.driver.MasterVolume(), g.driver.MusicVolume(), g.driver.SfxVolume(), midiPaused)

	for _, ch := range g.driver.Snapshot() {
		if ch.Sound == 0 {
			fmt.Fprintf(&b, "ch%02d  -\n", ch.ID)
			continue
		}
		fmt.Fprintf(&b, "ch%02d  sound=%d part=%d vol=%d prio=%d", ch.ID, ch.Sound, ch.Part, ch.Volume, ch.Priority)
		if ch.SharedSound != 0 {
			fmt.Fprintf(&b, " shared=%d/%d", ch.SharedSound, ch.SharedPart)
		}
		b.WriteByte('\n')
	}

	ebitenutil.DebugPrint(screen, b.String())
}

func (g *game) Layout(_, _ int) (int, int) {
	return 640, 480
}

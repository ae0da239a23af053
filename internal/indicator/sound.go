package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/rbright/voxtask/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cuePause
	cueComplete
	cueCancel
)

const (
	cueSampleRate = 16000
	cueVolume     = 0.18
	cueGap        = 22 * time.Millisecond
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

func tone(hz float64, ms int) toneSpec {
	return toneSpec{frequencyHz: hz, duration: time.Duration(ms) * time.Millisecond, volume: cueVolume}
}

// cue pairs a synthesized fallback with the config field that may override it.
type cue struct {
	pcm      []int16
	override func(config.IndicatorConfig) string
}

// Rising pairs mark capture starting or succeeding, falling pairs mark it ending
// without a result.
var cues = map[cueKind]cue{
	cueStart: {
		pcm:      synthesizeCue(tone(880, 70), tone(1175, 70)),
		override: func(c config.IndicatorConfig) string { return c.SoundStartFile },
	},
	cueStop: {
		pcm:      synthesizeCue(tone(620, 120)),
		override: func(c config.IndicatorConfig) string { return c.SoundStopFile },
	},
	cuePause: {
		pcm: synthesizeCue(tone(620, 60), tone(620, 60)),
	},
	cueComplete: {
		pcm:      synthesizeCue(tone(740, 65), tone(988, 90)),
		override: func(c config.IndicatorConfig) string { return c.SoundCompleteFile },
	},
	cueCancel: {
		pcm:      synthesizeCue(tone(480, 75), tone(360, 90)),
		override: func(c config.IndicatorConfig) string { return c.SoundCancelFile },
	},
}

// emitCue plays the configured file for kind, falling back to the synthesized tone.
func emitCue(kind cueKind, cfg config.IndicatorConfig) error {
	if path := cuePath(kind, cfg); path != "" {
		if err := playCueFile(path); err == nil {
			return nil
		}
	}

	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return playSynthCue(samples)
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	c, ok := cues[kind]
	if !ok || c.override == nil {
		return ""
	}
	return config.ExpandPath(c.override(cfg))
}

func cueSamples(kind cueKind) []int16 {
	return cues[kind].pcm
}

func playCueFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	if out, err := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path).CombinedOutput(); err != nil {
		return fmt.Errorf("play cue file %q: %w (%s)", path, err, out)
	}
	return nil
}

// pcmSource feeds a fixed sample buffer to a pulse playback stream.
type pcmSource struct {
	samples []int16
	cursor  int
}

func (s *pcmSource) read(buf []int16) (int, error) {
	if s.cursor >= len(s.samples) {
		return 0, pulse.EndOfData
	}
	n := copy(buf, s.samples[s.cursor:])
	s.cursor += n
	if s.cursor >= len(s.samples) {
		return n, pulse.EndOfData
	}
	return n, nil
}

func playSynthCue(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voxtask"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	source := &pcmSource{samples: samples}
	stream, err := client.NewPlayback(
		pulse.Int16Reader(source.read),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("voxtask cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// synthesizeCue concatenates tones separated by short silences.
func synthesizeCue(parts ...toneSpec) []int16 {
	gap := make([]int16, samplesForDuration(cueGap))
	var pcm []int16
	for i, part := range parts {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(part)...)
	}
	return pcm
}

// synthesizeTone renders a sine with a linear attack and release of at most 5ms.
func synthesizeTone(t toneSpec) []int16 {
	n := samplesForDuration(t.duration)
	if n <= 0 || t.frequencyHz <= 0 || t.volume <= 0 {
		return nil
	}

	ramp := min(max(n/10, 1), cueSampleRate/200)

	pcm := make([]int16, n)
	for i := range pcm {
		envelope := 1.0
		if edge := min(i, n-i-1); edge < ramp {
			envelope = float64(edge) / float64(ramp)
		}
		phase := 2 * math.Pi * t.frequencyHz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * t.volume * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}

package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	SampleRate = 16000
	Channels   = 1

	fragmentBytes = 640 // 20ms @ 16kHz mono s16
)

// Capture buffers 16 kHz mono s16 PCM from one selected Pulse source.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	stopCh chan struct{}

	mu      sync.Mutex
	pcm     []byte
	paused  bool
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// StartCapture opens a record stream on selected and starts buffering.
// The capture stops on its own when ctx is done.
func StartCapture(ctx context.Context, selected Device) (*Capture, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	capture := &Capture{
		device: selected,
		client: client,
		stopCh: make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(fragmentBytes),
		pulse.RecordMediaName("voxtask capture"),
	)
	if err != nil {
		_ = capture.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.stopCh:
		}
	}()

	return capture, nil
}

func (c *Capture) Device() Device {
	return c.device
}

// BytesCaptured reports PCM bytes kept so far; paused input is not counted.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// PCM returns a snapshot of the buffered samples.
func (c *Capture) PCM() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.pcm))
	copy(out, c.pcm)
	return out
}

// SetPaused drops incoming samples while paused is true.
func (c *Capture) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = paused
}

// Paused reports whether incoming samples are currently dropped.
func (c *Capture) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Stop halts the stream and waits for in-flight writes. Safe to call repeatedly.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()
	return nil
}

// onPCM receives raw Pulse frames.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as c.stopped to avoid Add/Wait races.
	c.inflight.Add(1)
	defer c.inflight.Done()

	if c.paused {
		c.mu.Unlock()
		return len(buffer), nil
	}
	c.pcm = append(c.pcm, buffer...)
	c.mu.Unlock()

	c.bytes.Add(int64(len(buffer)))
	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// Package player decodes clips and plays them on the audio device.
package player

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// countingReader wraps an io.Reader and tracks bytes read.
type countingReader struct {
	reader io.Reader
	pos    int64
	mu     sync.Mutex
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	cr.mu.Lock()
	cr.pos += int64(n)
	cr.mu.Unlock()
	return n, err
}

func (cr *countingReader) Pos() int64 {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.pos
}

// voice is the subset of *oto.Player the Player drives.
type voice interface {
	Play()
	Pause()
	IsPlaying() bool
	BufferedSize() int
	SetVolume(float64)
}

type output interface {
	NewVoice(r io.Reader) voice
}

type otoOutput struct {
	ctx *oto.Context
}

func (o otoOutput) NewVoice(r io.Reader) voice { return o.ctx.NewPlayer(r) }

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
)

// oto allows a single context per process.
func initOto() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   playbackSampleRate,
			ChannelCount: playbackChannels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return globalOtoCtx, otoInitErr
}

const defaultVolume = 0.8

// Player plays one decoded clip. It is created paused; Play always starts
// from the beginning.
type Player struct {
	out      output
	data     []byte
	duration time.Duration
	volume   float64
	poll     time.Duration

	mu      sync.Mutex
	counter *countingReader
	voice   voice
	started bool
	paused  bool
	closed  bool
	done    chan struct{}
	stopMon chan struct{}
}

// Open decodes the clip at path and prepares it for playback.
func Open(path string) (*Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	clip, err := decode(f, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	ctx, err := initOto()
	if err != nil {
		return nil, err
	}
	return newPlayer(otoOutput{ctx: ctx}, toPlayback(clip)), nil
}

func newPlayer(out output, data []byte) *Player {
	frames := int64(len(data) / playbackFrameSize)
	return &Player{
		out:      out,
		data:     data,
		duration: time.Duration(frames) * time.Second / playbackSampleRate,
		volume:   defaultVolume,
		poll:     50 * time.Millisecond,
		paused:   true,
		done:     make(chan struct{}),
	}
}

// Play starts playback from the beginning, whatever the current position.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.stopLocked()

	select {
	case <-p.done:
		p.done = make(chan struct{})
	default:
	}

	p.counter = &countingReader{reader: bytes.NewReader(p.data)}
	p.voice = p.out.NewVoice(p.counter)
	p.voice.SetVolume(p.volume)
	p.voice.Play()
	p.started = true
	p.paused = false

	p.stopMon = make(chan struct{})
	go p.monitor(p.counter, p.voice, p.done, p.stopMon)
}

// stopLocked silences the current voice and its monitor.
func (p *Player) stopLocked() {
	if p.stopMon != nil {
		close(p.stopMon)
		p.stopMon = nil
	}
	if p.voice != nil {
		p.voice.Pause()
	}
}

func (p *Player) monitor(cr *countingReader, v voice, done chan struct{}, stop <-chan struct{}) {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	total := int64(len(p.data))
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		if cr.Pos() < total || v.IsPlaying() {
			continue
		}
		p.mu.Lock()
		select {
		case <-stop:
			// replaced by a newer Play or Close
		default:
			if p.paused {
				p.mu.Unlock()
				continue
			}
			closeOnce(done)
		}
		p.mu.Unlock()
		return
	}
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Done returns a channel closed when playback reaches the end or the player
// is closed. Play after the end replaces it.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Started reports whether Play has been called.
func (p *Player) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// TogglePause toggles between play and pause. Before the first Play it starts
// playback.
func (p *Player) TogglePause() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		p.Play()
		return
	}
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.paused {
		p.voice.Play()
		p.paused = false
	} else {
		p.voice.Pause()
		p.paused = true
	}
}

// Paused reports whether playback is paused. A player that never started is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Position returns the audible position: bytes handed to the device minus
// what is still buffered there.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	cr, v := p.counter, p.voice
	p.mu.Unlock()
	if cr == nil {
		return 0
	}
	pos := cr.Pos() - int64(v.BufferedSize())
	if pos < 0 {
		pos = 0
	}
	return time.Duration(pos/playbackFrameSize) * time.Second / playbackSampleRate
}

// Duration returns the total duration of the clip.
func (p *Player) Duration() time.Duration {
	return p.duration
}

// Close stops playback. It is safe to call more than once.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.paused = true
	p.stopLocked()
	closeOnce(p.done)
}

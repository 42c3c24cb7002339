package player

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// ErrUnsupportedFormat is returned for extensions without a decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// pcm is a fully decoded clip as interleaved signed 16-bit samples.
type pcm struct {
	samples  []int16
	rate     int
	channels int
}

func (p *pcm) frames() int {
	if p.channels == 0 {
		return 0
	}
	return len(p.samples) / p.channels
}

type decodeFunc func(io.ReadSeeker) (*pcm, error)

var decoders = map[string]decodeFunc{
	".mp3":  decodeMP3,
	".wav":  decodeWAV,
	".flac": decodeFLAC,
	".ogg":  decodeOGG,
}

// decode picks a decoder by file extension and reads the whole stream.
func decode(rs io.ReadSeeker, ext string) (*pcm, error) {
	ext = strings.ToLower(ext)
	dec, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	p, err := dec(rs)
	if err != nil {
		return nil, err
	}
	if p.rate <= 0 || p.channels <= 0 {
		return nil, fmt.Errorf("decoding %s: invalid stream (rate %d, channels %d)", ext, p.rate, p.channels)
	}
	return p, nil
}

// go-mp3 always produces 16-bit little-endian stereo.
func decodeMP3(rs io.ReadSeeker) (*pcm, error) {
	dec, err := mp3.NewDecoder(rs)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}
	return &pcm{samples: samples, rate: dec.SampleRate(), channels: 2}, nil
}

func decodeWAV(rs io.ReadSeeker) (*pcm, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}
	depth := int(dec.BitDepth)
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch depth {
		case 8:
			// 8-bit WAV is unsigned
			v = (v - 128) << 8
		case 24:
			v >>= 8
		case 32:
			v >>= 16
		}
		samples[i] = clamp16(v)
	}
	return &pcm{samples: samples, rate: int(dec.SampleRate), channels: int(dec.NumChans)}, nil
}

func decodeFLAC(rs io.ReadSeeker) (*pcm, error) {
	stream, err := flac.New(rs)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bps := int(info.BitsPerSample)
	samples := make([]int16, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding FLAC frame: %w", err)
		}
		n := int(frame.Subframes[0].NSamples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				s := int(frame.Subframes[ch].Samples[i])
				switch {
				case bps > 16:
					s >>= bps - 16
				case bps < 16:
					s <<= 16 - bps
				}
				samples = append(samples, clamp16(s))
			}
		}
	}
	return &pcm{samples: samples, rate: int(info.SampleRate), channels: channels}, nil
}

func decodeOGG(rs io.ReadSeeker) (*pcm, error) {
	data, format, err := oggvorbis.ReadAll(rs)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	samples := make([]int16, len(data))
	for i, s := range data {
		samples[i] = clamp16(int(s * 32767))
	}
	return &pcm{samples: samples, rate: format.SampleRate, channels: format.Channels}, nil
}

func clamp16(v int) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int16(v)
}

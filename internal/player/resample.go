package player

const (
	playbackSampleRate     = 48000
	playbackChannels       = 2
	playbackBytesPerSample = 2
	playbackFrameSize      = playbackChannels * playbackBytesPerSample
	playbackBytesPerSec    = playbackSampleRate * playbackFrameSize
)

// toPlayback converts a clip to 48 kHz stereo s16le using linear
// interpolation. Mono is duplicated to both channels; channels past the
// second are dropped.
func toPlayback(p *pcm) []byte {
	srcFrames := int64(p.frames())
	if srcFrames == 0 {
		return nil
	}
	rate := int64(p.rate)
	outFrames := srcFrames * playbackSampleRate / rate
	if outFrames == 0 {
		outFrames = 1
	}

	out := make([]byte, outFrames*playbackFrameSize)
	for j := int64(0); j < outFrames; j++ {
		num := j * rate
		src := num / playbackSampleRate
		frac := num % playbackSampleRate
		next := min(src+1, srcFrames-1)
		for ch := 0; ch < playbackChannels; ch++ {
			a := p.sample(src, ch)
			b := p.sample(next, ch)
			v := uint16(interpolate(a, b, frac))
			off := j*playbackFrameSize + int64(ch*playbackBytesPerSample)
			out[off] = byte(v)
			out[off+1] = byte(v >> 8)
		}
	}
	return out
}

// sample returns channel ch of frame i, reusing the last channel for mono.
func (p *pcm) sample(i int64, ch int) int16 {
	if ch >= p.channels {
		ch = p.channels - 1
	}
	return p.samples[int(i)*p.channels+ch]
}

// interpolate returns a + (b-a)*frac/playbackSampleRate, rounded.
func interpolate(a, b int16, frac int64) int16 {
	if frac == 0 || a == b {
		return a
	}
	diff := int64(b) - int64(a)
	return int16(int64(a) + (diff*frac+playbackSampleRate/2)/playbackSampleRate)
}

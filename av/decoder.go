package av

import (
	"errors"
	"fmt"

	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// ErrEmptyPacket is returned by FrameDecoder.Decode for an empty packet.
var ErrEmptyPacket = errors.New("empty opus packet")

// maxDecodedBytes holds 40 ms of 48 kHz stereo int16 samples.
const maxDecodedBytes = 1920 * 2 * 2

// FrameDecoder decodes the Opus packets of one friend into mono PCM at
// SampleRate. A decoder keeps state between packets and must not be shared
// between friends.
type FrameDecoder struct {
	decoder opus.Decoder
	buf     []byte
	packets uint64
}

// NewFrameDecoder creates a decoder for one stream.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{
		decoder: opus.NewDecoder(),
		buf:     make([]byte, maxDecodedBytes),
	}
}

// Decode decodes one 20 ms packet. The returned slice is freshly allocated.
func (d *FrameDecoder) Decode(packet []byte) ([]int16, error) {
	if len(packet) == 0 {
		return nil, ErrEmptyPacket
	}

	bandwidth, stereo, err := d.decoder.Decode(packet, d.buf)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	d.packets++

	rate := uint32(bandwidth.SampleRate())
	samples := int(rate) / 50
	channels := 1
	if stereo {
		channels = 2
	}
	if samples*channels*2 > len(d.buf) {
		samples = len(d.buf) / (2 * channels)
	}

	pcm := make([]int16, samples)
	for i := range pcm {
		// left channel only for stereo streams
		off := i * channels * 2
		pcm[i] = int16(d.buf[off]) | int16(d.buf[off+1])<<8
	}

	logrus.WithFields(logrus.Fields{
		"function":    "FrameDecoder.Decode",
		"packet_size": len(packet),
		"bandwidth":   bandwidth.String(),
		"stereo":      stereo,
		"samples":     samples,
	}).Debug("Decoded audio packet")

	return resample(pcm, rate, SampleRate), nil
}

// Packets returns the number of packets decoded successfully.
func (d *FrameDecoder) Packets() uint64 { return d.packets }

// resample converts mono pcm from one rate to another by linear
// interpolation.
func resample(pcm []int16, from, to uint32) []int16 {
	if from == to || from == 0 || len(pcm) == 0 {
		return pcm
	}
	n := int(uint64(len(pcm)) * uint64(to) / uint64(from))
	out := make([]int16, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= len(pcm)-1 {
			out[i] = pcm[len(pcm)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(float64(pcm[idx])*(1-frac) + float64(pcm[idx+1])*frac)
	}
	return out
}

package av

import "math"

const (
	ringtoneAmplitude = 0.25 * math.MaxInt16
	// one ring: four notes of 250 ms, then two seconds of silence
	ringtoneNoteFrames  = 250 * SampleRate / 1000 / FrameSamples
	ringtoneNotes       = 4
	ringtonePauseFrames = 2 * SampleRate / FrameSamples
)

var ringtoneNotesHz = [ringtoneNotes]float64{659.25, 523.25, 659.25, 783.99}

// Ringtone generates the ringing sound frame by frame, so the audio worker
// never holds more than one frame of it.
type Ringtone struct {
	frame  int
	sample int
}

// NewRingtone returns a ringtone positioned at the start of a ring.
func NewRingtone() *Ringtone {
	return &Ringtone{}
}

// Next returns the next FrameSamples samples of the ringtone.
func (r *Ringtone) Next() []int16 {
	pcm := make([]int16, FrameSamples)
	note := r.frame / ringtoneNoteFrames
	if note < ringtoneNotes {
		freq := ringtoneNotesHz[note]
		for i := range pcm {
			t := float64(r.sample+i) / SampleRate
			// short fade at note edges avoids clicks
			pos := r.frame%ringtoneNoteFrames*FrameSamples + i
			env := math.Min(1, math.Min(float64(pos), float64(ringtoneNoteFrames*FrameSamples-pos))/float64(FrameSamples))
			pcm[i] = int16(ringtoneAmplitude * env * math.Sin(2*math.Pi*freq*t))
		}
	}
	r.sample += FrameSamples
	r.frame++
	if r.frame >= ringtoneNoteFrames*ringtoneNotes+ringtonePauseFrames {
		r.frame, r.sample = 0, 0
	}
	return pcm
}

// Reset rewinds the ringtone to the start of a ring.
func (r *Ringtone) Reset() {
	r.frame, r.sample = 0, 0
}

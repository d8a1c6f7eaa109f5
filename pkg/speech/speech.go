// Package speech streams PCM windows to a short-phrase speech recognizer and
// forwards recognized text to tone analysis.
package speech

import "time"

// Audio format the recognizer expects.
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
)

// Status is the recognizer's verdict for one phrase.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusNoMatch        Status = "no_match"
	StatusSilence        Status = "initial_silence_timeout"
	StatusBabble         Status = "babble_timeout"
	StatusError          Status = "error"
	StatusEndOfDictation Status = "end_of_dictation"
)

// Utterance is one recognized phrase.
type Utterance struct {
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Status     Status    `json:"status"`
	ReceivedAt time.Time `json:"received_at"`
}

// OK reports whether the utterance is usable for tone analysis.
func (u Utterance) OK() bool {
	return u.Status == StatusSuccess && u.Text != ""
}

// Recognizer turns PCM windows into utterances. SendAudio must not block
// and must not keep pcm after returning.
type Recognizer interface {
	SendAudio(pcm []byte) error
	Utterances() <-chan Utterance
	Close() error
}

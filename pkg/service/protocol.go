package service

import "github.com/haivivi/sherpa/pkg/sherpa"

// Event types sent as JSON text messages.
const (
	EventStart = "start"
	EventDone  = "done"
	EventError = "error"
)

// ZipVoiceRequest is the first message on /v1/zipvoice. PromptWAV carries
// the reference audio as a WAV file (base64 in JSON).
type ZipVoiceRequest struct {
	Text       string  `json:"text"`
	PromptText string  `json:"prompt_text,omitempty"`
	PromptWAV  []byte  `json:"prompt_wav,omitempty"`
	Speed      float32 `json:"speed,omitempty"`
	NumSteps   int     `json:"num_steps,omitempty"`
}

// Request defaults applied by the server when a field is zero.
const (
	DefaultSpeed    float32 = 1.0
	DefaultNumSteps         = 4
)

func (r *ZipVoiceRequest) applyDefaults() {
	if r.Speed == 0 {
		r.Speed = DefaultSpeed
	}
	if r.NumSteps == 0 {
		r.NumSteps = DefaultNumSteps
	}
}

// SeparateRequest is the first message on /v1/separate.
type SeparateRequest struct {
	WAV []byte `json:"wav"`
}

// Event is a JSON status message. Binary WAV messages are sent between
// start and done, one per output.
type Event struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	// Start fields.
	SampleRate int  `json:"sample_rate,omitempty"`
	Outputs    int  `json:"outputs,omitempty"`
	Cached     bool `json:"cached,omitempty"`

	// Done fields.
	DurationMS int64 `json:"duration_ms,omitempty"`
	ElapsedMS  int64 `json:"elapsed_ms,omitempty"`

	Error string `json:"error,omitempty"`
}

// toGenerate converts a decoded request into a binding request.
func (r *ZipVoiceRequest) toGenerate(prompt []float32, promptRate int) sherpa.GenerateRequest {
	return sherpa.GenerateRequest{
		Text:             r.Text,
		PromptText:       r.PromptText,
		PromptSamples:    prompt,
		PromptSampleRate: promptRate,
		Speed:            r.Speed,
		NumSteps:         r.NumSteps,
	}
}

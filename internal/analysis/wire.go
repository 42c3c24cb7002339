package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrIncomplete reports a response carrying neither the analysis arrays nor
// an error.
var ErrIncomplete = errors.New("analysis: incomplete response")

// Response is the JSON document exchanged at the upload boundary. Either the
// arrays or Error are set.
type Response struct {
	Times       []float64   `json:"times,omitempty"`
	Oscilogram  []float64   `json:"oscilogram,omitempty"`
	TimeBins    []float64   `json:"time_bins,omitempty"`
	Frequencies []float64   `json:"frequencies,omitempty"`
	Spectrogram [][]float64 `json:"spectrogram,omitempty"`
	ClipID      string      `json:"clip_id,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// AnalyzerError carries the error string reported by the upstream analyzer.
type AnalyzerError struct {
	Message string
}

func (e *AnalyzerError) Error() string {
	return "analyzer: " + e.Message
}

// NewResponse wraps a result for the wire.
func NewResponse(r *Result, clipID string) Response {
	return Response{
		Times:       r.Times,
		Oscilogram:  r.Oscilogram,
		TimeBins:    r.TimeBins,
		Frequencies: r.Frequencies,
		Spectrogram: r.Spectrogram,
		ClipID:      clipID,
	}
}

// ErrorResponse builds the failure document.
func ErrorResponse(err error) Response {
	return Response{Error: err.Error()}
}

// Result converts the response into a validated Result. A populated Error
// field is returned as *AnalyzerError; any absent array is ErrIncomplete.
func (resp Response) Result() (*Result, error) {
	if resp.Error != "" {
		return nil, &AnalyzerError{Message: resp.Error}
	}
	if missing := resp.missing(); missing != "" {
		return nil, fmt.Errorf("%w: no %s", ErrIncomplete, missing)
	}
	r := &Result{
		Times:       resp.Times,
		Oscilogram:  resp.Oscilogram,
		TimeBins:    resp.TimeBins,
		Frequencies: resp.Frequencies,
		Spectrogram: resp.Spectrogram,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// missing names the first absent array, or returns "".
func (resp Response) missing() string {
	switch {
	case resp.Times == nil:
		return "times"
	case resp.Oscilogram == nil:
		return "oscilogram"
	case resp.TimeBins == nil:
		return "time_bins"
	case resp.Frequencies == nil:
		return "frequencies"
	case resp.Spectrogram == nil:
		return "spectrogram"
	}
	return ""
}

// DecodeResponse reads one JSON response and returns the validated result
// together with the clip id, when the server assigned one.
func DecodeResponse(rd io.Reader) (*Result, string, error) {
	var resp Response
	if err := json.NewDecoder(rd).Decode(&resp); err != nil {
		return nil, "", fmt.Errorf("decoding analysis response: %w", err)
	}
	r, err := resp.Result()
	if err != nil {
		return nil, "", err
	}
	return r, resp.ClipID, nil
}

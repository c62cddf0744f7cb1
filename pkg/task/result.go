package task

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Flatten collapses a two-level destination-to-statistics mapping into
// a single level, combining the destination label and the statistic
// name with an underscore.
func Flatten(results map[string]map[string]any) map[string]any {
	flat := make(map[string]any, len(results))

	for label, stats := range results {
		for feature, value := range stats {
			flat[fmt.Sprintf("%s_%s", label, feature)] = value
		}
	}

	return flat
}

// Sink writes one shaped result document per task invocation and
// retains the written payload for optional archival.
type Sink struct {
	out     io.Writer
	now     func() time.Time
	payload []byte
}

func NewSink(out io.Writer) *Sink {
	return &Sink{out: out, now: time.Now}
}

// Write emits the final result document. The results are nested under
// label (if non-empty), then wrapped in a metadata envelope (if
// annotate), then merged with any extend keys at the top level of the
// document. Flattening, where configured, has already happened at the
// measurement: its key prefixes are task-specific.
func (s *Sink) Write(results map[string]any, label string, annotate bool, extend map[string]any) error {
	var doc map[string]any

	if label != "" {
		doc = map[string]any{label: results}
	} else {
		doc = results
	}

	if annotate {
		doc = map[string]any{
			"Measurements": doc,
			"Meta": map[string]any{
				"Time": float64(s.now().UnixNano()) / 1e9,
			},
		}
	}

	for key, value := range extend {
		doc[key] = value
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding result: %v", err)
	}

	s.payload = payload

	if _, err := s.out.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("writing result: %v", err)
	}

	return nil
}

// Payload returns the most recently written result document.
func (s *Sink) Payload() []byte {
	return s.payload
}

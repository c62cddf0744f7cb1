package parse

import (
	"time"

	"gopkg.in/yaml.v3"
)

// ExtractionError reports structured tool output that did not match
// expectations, carrying the raw output for diagnosis.
type ExtractionError struct {
	Msg    string
	Stdout string
}

func (e *ExtractionError) Error() string { return e.Msg }

type digDocument struct {
	Message struct {
		QueryTime    time.Time `yaml:"query_time"`
		ResponseTime time.Time `yaml:"response_time"`
	} `yaml:"message"`
}

// DigLatencyMs extracts the query latency in milliseconds from dig's
// +yaml output: the span between the query and response timestamps of
// the single expected message document.
func DigLatencyMs(output string) (float64, error) {
	var docs []digDocument

	if err := yaml.Unmarshal([]byte(output), &docs); err != nil {
		return 0, &ExtractionError{Msg: "unexpected output", Stdout: output}
	}

	if len(docs) != 1 {
		return 0, &ExtractionError{Msg: "unexpected output", Stdout: output}
	}

	message := docs[0].Message
	if message.QueryTime.IsZero() || message.ResponseTime.IsZero() {
		return 0, &ExtractionError{Msg: "unexpected structure", Stdout: output}
	}

	return message.ResponseTime.Sub(message.QueryTime).Seconds() * 1e3, nil
}

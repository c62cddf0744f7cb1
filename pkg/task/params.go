package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ReadParams decodes task parameters from the scheduler's stdin stream
// into v, which must already hold the task's defaults. Empty input is
// valid and leaves the defaults untouched. Unknown keys are rejected so
// that misspelled parameters surface as configuration errors rather
// than silently falling back to defaults.
func ReadParams(r io.Reader, v any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading parameters: %v", err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid parameters: %v", err)
	}

	return nil
}

// Label is a result label parameter: a string, or false/null to
// suppress the task's default label.
type Label struct {
	set  bool
	text string
}

func (l *Label) UnmarshalJSON(b []byte) error {
	switch {
	case string(b) == "null" || string(b) == "false":
		l.set = true
		l.text = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		l.set = true
		return json.Unmarshal(b, &l.text)
	}
	return fmt.Errorf("label: must be a non-empty string, false or null")
}

// ResultOptions is the result-shaping parameter block common to every
// task. Unset fields defer to the global defaults.
type ResultOptions struct {
	Flat     *bool `json:"flat"`
	Label    Label `json:"label"`
	Annotate *bool `json:"annotate"`
}

// ResultPlan is a fully resolved shaping decision: flatten, then label,
// then annotate. The order is fixed.
type ResultPlan struct {
	Flat     bool
	Label    string
	Annotate bool
}

// Plan resolves the options against the global result defaults and the
// task's own default label. An explicit false/null label parameter, or
// a global label default of false, leaves results unlabeled.
func (o ResultOptions) Plan(defFlat, defLabel, defAnnotate bool, taskLabel string) ResultPlan {
	plan := ResultPlan{
		Flat:     defFlat,
		Annotate: defAnnotate,
	}

	if defLabel {
		plan.Label = taskLabel
	}

	if o.Flat != nil {
		plan.Flat = *o.Flat
	}
	if o.Label.set {
		plan.Label = o.Label.text
	}
	if o.Annotate != nil {
		plan.Annotate = *o.Annotate
	}

	return plan
}

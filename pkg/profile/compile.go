package profile

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/papercomputeco/spool/pkg/classify"
	"github.com/papercomputeco/spool/pkg/logline"
)

// ErrNoEvents reports a profile with no event definitions; there is nothing
// for an analysis run to reconstruct.
var ErrNoEvents = errors.New("profile defines no events")

// Compiled is a profile with every pattern compiled and ready for a run.
type Compiled struct {
	Decoder    *logline.Decoder
	Classifier *classify.Classifier
	Trace      TraceConfig
}

// Compile validates the profile and compiles its patterns. Any invalid
// pattern or incomplete event definition fails the whole profile: a run
// must not start on a half-working configuration.
func (p *Profile) Compile() (*Compiled, error) {
	if len(p.Events) == 0 {
		return nil, ErrNoEvents
	}

	header, err := regexp.Compile(p.Log.HeaderPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling header pattern: %w", err)
	}

	decoder, err := logline.NewDecoder(header, p.Log.TimeLayout)
	if err != nil {
		return nil, err
	}

	defs := make([]classify.Definition, 0, len(p.Events))
	for i, evt := range p.Events {
		def, err := compileEvent(evt)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		defs = append(defs, def)
	}

	return &Compiled{
		Decoder:    decoder,
		Classifier: classify.NewClassifier(defs),
		Trace:      p.Trace,
	}, nil
}

func compileEvent(evt EventConfig) (classify.Definition, error) {
	if evt.Name == "" {
		return classify.Definition{}, errors.New("missing name")
	}

	// An empty pattern compiles to match-everything, which would classify
	// every decoded line as this event.
	if evt.StartRegex == "" {
		return classify.Definition{}, fmt.Errorf("missing start regex for %q", evt.Name)
	}
	if evt.EndRegex == "" {
		return classify.Definition{}, fmt.Errorf("missing end regex for %q", evt.Name)
	}

	start, err := regexp.Compile(evt.StartRegex)
	if err != nil {
		return classify.Definition{}, fmt.Errorf("compiling start regex for %q: %w", evt.Name, err)
	}

	end, err := regexp.Compile(evt.EndRegex)
	if err != nil {
		return classify.Definition{}, fmt.Errorf("compiling end regex for %q: %w", evt.Name, err)
	}

	return classify.Definition{
		Name:      evt.Name,
		Start:     start,
		End:       end,
		Threshold: time.Duration(evt.ThresholdMS) * time.Millisecond,
	}, nil
}

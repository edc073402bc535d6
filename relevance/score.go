package relevance

// Status says how a score was (or was not) produced.
type Status int

const (
	// Ok means the item was embedded, queried, and scored normally.
	Ok Status = iota
	// Failed means embedding or the vector query errored; the item should
	// not be filtered out on relevance grounds.
	Failed
	// Disabled means ranking was turned off for this run.
	Disabled
	// Unparsable means a ranking response existed but could not be decoded.
	Unparsable
)

// Numeric projections for downstream sinks that only carry a float. The
// values sit below any real score so filtered views sort them last, and each
// failure mode keeps a distinct value for debugging.
const (
	FailedScore     = -1.0
	DisabledScore   = -0.02
	UnparsableScore = -0.01
)

// Result is a tagged relevance score. Callers branch on Status; Value is
// only meaningful when Status is Ok.
type Result struct {
	Status Status
	Value  float64
	Err    error
}

// Score returns the numeric projection of the result for sinks that store a
// single float.
func (r Result) Score() float64 {
	switch r.Status {
	case Ok:
		return r.Value
	case Disabled:
		return DisabledScore
	case Unparsable:
		return UnparsableScore
	default:
		return FailedScore
	}
}

// Scored reports whether the result carries a real relevance value.
func (r Result) Scored() bool { return r.Status == Ok }

func ok(v float64) Result     { return Result{Status: Ok, Value: v} }
func failed(err error) Result { return Result{Status: Failed, Value: FailedScore, Err: err} }

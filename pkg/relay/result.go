package relay

// Outcome records what happened for a single destination during one
// dispatch. A zero Kind means the destination succeeded.
type Outcome struct {
	ChannelID string
	Lang      string
	// Posted is the number of chunks actually delivered.
	Posted int
	Kind   FailureKind
	Err    error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// DispatchResult aggregates per-destination outcomes for one event.
// Failures are values here, not control flow: one bad destination never
// hides the results of the others.
type DispatchResult struct {
	Outcomes []Outcome
}

func (r DispatchResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

func (r DispatchResult) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

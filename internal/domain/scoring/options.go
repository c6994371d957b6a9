package scoring

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithWeights sets the metric weights. Invalid weights are ignored.
func WithWeights(w Weights) Option {
	return func(r *Ranker) {
		if w.Validate() == nil {
			r.weights = w
		}
	}
}

// WithZeroSpreadPolicy sets the zero spread policy. Unknown policies are
// ignored.
func WithZeroSpreadPolicy(p ZeroSpreadPolicy) Option {
	return func(r *Ranker) {
		if _, err := ParseZeroSpreadPolicy(string(p)); err == nil {
			r.policy = p
		}
	}
}

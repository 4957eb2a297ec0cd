package stepmodel

// Adjust is a pure state transition over an instrument's dynamic config
// record. Step definitions are built by composing small Adjusts — the
// "small state monad over the instrument's dynamic-config record" spec
// §2 describes — rather than mutating a shared builder.
type Adjust[D any] func(D) D

// Then composes two Adjusts left to right: a.Then(b) applies a, then b.
func (a Adjust[D]) Then(b Adjust[D]) Adjust[D] {
	return func(d D) D { return b(a(d)) }
}

// Chain composes a sequence of Adjusts into one, applied in order.
// An empty chain is the identity.
func Chain[D any](adjusts ...Adjust[D]) Adjust[D] {
	return func(d D) D {
		for _, a := range adjusts {
			d = a(d)
		}
		return d
	}
}

// Apply runs an Adjust chain starting from base.
func Apply[D any](base D, adjusts ...Adjust[D]) D {
	return Chain(adjusts...)(base)
}

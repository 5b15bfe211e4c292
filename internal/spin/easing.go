package spin

// easeOut is the cubic ease-out driving the approach phase: fast launch,
// asymptotic crawl into the target. At t == duration it lands exactly on
// start + delta.
func easeOut(t, start, delta, duration float64) float64 {
	if duration <= 0 {
		return start + delta
	}
	p := t / duration
	if p > 1 {
		p = 1
	}
	return start + delta*(p*p*p-3*p*p+3*p)
}

// linear holds constant angular velocity for the rigged return leg.
func linear(t, start, delta, duration float64) float64 {
	if duration <= 0 {
		return start + delta
	}
	p := t / duration
	if p > 1 {
		p = 1
	}
	return start + delta*p
}

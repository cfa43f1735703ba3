package fuzzy

// Membership holds degrees of belonging to a three-bin linguistic set,
// in declaration order (weakest first). For the continuous sets the three
// degrees sum to exactly 1; the complexity fallback is the documented
// exception.
type Membership struct {
	Labels  [3]string
	Degrees [3]float64
}

// Dominant returns the label with maximum membership. Ties resolve to the
// earliest declared label.
func (m Membership) Dominant() string {
	best := 0
	for i := 1; i < 3; i++ {
		if m.Degrees[i] > m.Degrees[best] {
			best = i
		}
	}
	return m.Labels[best]
}

// triangular3 evaluates a three-bin set where the middle bin peaks at mid
// and the transitions interpolate linearly over [lo,mid] and [mid,hi].
// Inputs outside the outer breakpoints saturate to full membership in the
// outer bins. Degrees always sum to 1.
func triangular3(x, lo, mid, hi float64, labels [3]string) Membership {
	m := Membership{Labels: labels}
	switch {
	case x <= lo:
		m.Degrees[0] = 1
	case x < mid:
		t := (x - lo) / (mid - lo)
		m.Degrees[0] = 1 - t
		m.Degrees[1] = t
	case x < hi:
		t := (x - mid) / (hi - mid)
		m.Degrees[1] = 1 - t
		m.Degrees[2] = t
	default:
		m.Degrees[2] = 1
	}
	return m
}

// trapezoidal3 evaluates a three-bin set whose middle bin is flat across
// [plateauLo, plateauHi], with linear shoulders of the given width on
// either side. Degrees always sum to 1.
func trapezoidal3(x, plateauLo, plateauHi, shoulder float64, labels [3]string) Membership {
	m := Membership{Labels: labels}
	riseStart := plateauLo - shoulder
	fallEnd := plateauHi + shoulder
	switch {
	case x <= riseStart:
		m.Degrees[0] = 1
	case x < plateauLo:
		t := (x - riseStart) / shoulder
		m.Degrees[0] = 1 - t
		m.Degrees[1] = t
	case x <= plateauHi:
		m.Degrees[1] = 1
	case x < fallEnd:
		t := (x - plateauHi) / shoulder
		m.Degrees[1] = 1 - t
		m.Degrees[2] = t
	default:
		m.Degrees[2] = 1
	}
	return m
}

// SemanticMembership maps a semantic similarity in [0,1] to {low, medium,
// high} with breakpoints at 0.4/0.6/0.8.
func SemanticMembership(similarity float64) Membership {
	return triangular3(similarity, 0.4, 0.6, 0.8, [3]string{"low", "medium", "high"})
}

// KeywordMembership maps keyword match strength to {weak, moderate, strong}
// with the moderate plateau flat across 0.4–0.6.
func KeywordMembership(strength float64) Membership {
	return trapezoidal3(strength, 0.4, 0.6, 0.2, [3]string{"weak", "moderate", "strong"})
}

// FitMembership maps contextual fit to {poor, good, excellent} with
// breakpoints at 0.2/0.5/0.8.
func FitMembership(fit float64) Membership {
	return triangular3(fit, 0.2, 0.5, 0.8, [3]string{"poor", "good", "excellent"})
}

package attendance

import (
	"leavehr/internal/domain/biometric"
)

type Candidate struct {
	EmployeeID string
	Template   string
}

type Match struct {
	EmployeeID string
	Confidence float64
}

// Matcher runs 1:N identification and 1:1 verification against a threshold.
type Matcher struct {
	Comparator biometric.Comparator
	Threshold  float64
	Strategy   string
}

func NewMatcher(cmp biometric.Comparator, threshold float64, strategy string) Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if strategy != StrategyFirst {
		strategy = StrategyBest
	}
	return Matcher{Comparator: cmp, Threshold: threshold, Strategy: strategy}
}

// Identify scores candidates in order. With the best strategy the highest
// score wins and ties go to the earlier candidate; with the first strategy
// the scan stops at the first acceptable score.
func (m Matcher) Identify(captured string, candidates []Candidate) (Match, error) {
	pool := prune(captured, candidates)
	var best Match
	found := false
	for _, c := range pool {
		score := m.Comparator.Similarity(c.Template, captured)
		if !found || score > best.Confidence {
			best = Match{EmployeeID: c.EmployeeID, Confidence: score}
			found = true
		}
		if m.Strategy == StrategyFirst && score >= m.Threshold {
			return Match{EmployeeID: c.EmployeeID, Confidence: score}, nil
		}
	}
	if !found || best.Confidence < m.Threshold {
		return Match{}, &NoMatchError{Best: best.Confidence, Candidates: len(pool)}
	}
	return best, nil
}

func (m Matcher) Verify(stored, captured string) (float64, error) {
	score := m.Comparator.Similarity(stored, captured)
	if score < m.Threshold {
		return score, &LowConfidenceError{Score: score, Threshold: m.Threshold}
	}
	return score, nil
}

// prune drops synthetic templates from other device families when the
// capture is synthetic and at least one candidate shares its family.
func prune(captured string, candidates []Candidate) []Candidate {
	family := biometric.Family(captured)
	if family == "" {
		return candidates
	}
	var same []Candidate
	for _, c := range candidates {
		f := biometric.Family(c.Template)
		if f == "" || f == family {
			same = append(same, c)
		}
	}
	if len(same) == 0 {
		return candidates
	}
	return same
}

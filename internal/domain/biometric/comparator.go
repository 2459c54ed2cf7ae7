package biometric

import "fmt"

const (
	ComparatorAuto  = "auto"
	ComparatorBytes = "bytes"
)

// Comparator scores how alike two stored templates are, in [0, 1].
type Comparator interface {
	Similarity(a, b string) float64
}

// SyntheticComparator scores mock templates by device family alone.
type SyntheticComparator struct {
	SameFamily      float64
	DifferentFamily float64
}

func NewSyntheticComparator() SyntheticComparator {
	return SyntheticComparator{SameFamily: 0.65, DifferentFamily: 0.1}
}

func (c SyntheticComparator) Similarity(a, b string) float64 {
	if Family(a) != "" && Family(a) == Family(b) {
		return c.SameFamily
	}
	return c.DifferentFamily
}

// ByteComparator is the fraction of equal bytes over the shorter template.
type ByteComparator struct{}

func (ByteComparator) Similarity(a, b string) float64 {
	return byteSimilarity(Decode(a), Decode(b))
}

func byteSimilarity(a, b []byte) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	matches := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(n)
}

// AutoComparator uses the synthetic scoring when both sides are mock
// templates and byte comparison otherwise.
type AutoComparator struct {
	Synthetic SyntheticComparator
	Bytes     ByteComparator
}

func NewAutoComparator() AutoComparator {
	return AutoComparator{Synthetic: NewSyntheticComparator()}
}

func (c AutoComparator) Similarity(a, b string) float64 {
	if IsSynthetic(a) && IsSynthetic(b) {
		return c.Synthetic.Similarity(a, b)
	}
	return c.Bytes.Similarity(a, b)
}

func NewComparator(name string) (Comparator, error) {
	switch name {
	case "", ComparatorAuto:
		return NewAutoComparator(), nil
	case ComparatorBytes:
		return ByteComparator{}, nil
	default:
		return nil, fmt.Errorf("unknown comparator %q", name)
	}
}

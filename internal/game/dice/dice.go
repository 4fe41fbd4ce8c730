// Package dice provides the randomness abstraction used for role draws.
package dice

// Source is the randomness provider for shuffles and draws.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Shuffle permutes items in place with the Fisher-Yates algorithm, so every
// permutation is equally likely given a uniform src.
//
// Precondition: src must be non-nil.
// Postcondition: items holds a permutation of its original elements.
func Shuffle[T any](items []T, src Source) {
	for i := len(items) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

package lsround

// Accepts is the acceptance predicate evaluated by the coordinator each round.
//
// It reports true when every byte of first occurs at least once in second
// and at least one match was found, so an empty first is never accepted.
// The check is one-directional:
// bytes present only in second do not cause a rejection,
// and multiplicities are not compared.
func Accepts(first, second Candidate) bool {
	return accepts(first.b, second.b)
}

func accepts(first, second []byte) bool {
	matched := false
	for _, f := range first {
		found := false
		for _, s := range second {
			if f == s {
				found = true
				matched = true
			}
		}
		if !found {
			return false
		}
	}
	return matched
}

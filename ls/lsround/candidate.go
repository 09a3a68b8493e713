package lsround

import "bytes"

// Candidate is the byte string a generator produces in one round.
// The zero value is an empty candidate.
//
// A Candidate never exposes its backing array,
// so it cannot be modified after creation.
type Candidate struct {
	b []byte
}

// NewCandidate returns a Candidate holding a copy of b.
func NewCandidate(b []byte) Candidate {
	if len(b) == 0 {
		return Candidate{}
	}
	return Candidate{b: bytes.Clone(b)}
}

// CandidateFromString is a convenience for constructing a Candidate from text.
func CandidateFromString(s string) Candidate {
	return NewCandidate([]byte(s))
}

// Bytes returns a copy of the candidate's bytes.
func (c Candidate) Bytes() []byte {
	return bytes.Clone(c.b)
}

// Len returns the number of bytes in c.
func (c Candidate) Len() int {
	return len(c.b)
}

func (c Candidate) String() string {
	return string(c.b)
}

// Equal reports whether c and o hold the same bytes.
func (c Candidate) Equal(o Candidate) bool {
	return bytes.Equal(c.b, o.b)
}

package board

import "fmt"

// Step is a bare (from, to) pair in coordinate notation, as typed by a user
// or sent by a client. Legality is decided by the rules package.
type Step struct {
	From Pos `json:"from"`
	To   Pos `json:"to"`
}

// String returns the notation of the step (e.g., "e2e3").
func (s Step) String() string {
	return s.From.String() + s.To.String()
}

// SharesLine returns true if from and to are distinct and share a row or column.
func (s Step) SharesLine() bool {
	if s.From == s.To {
		return false
	}
	return s.From.Row == s.To.Row || s.From.Col == s.To.Col
}

// Direction returns the unit step from From towards To. Only meaningful when
// SharesLine is true.
func (s Step) Direction() Pos {
	return Pos{Row: sign(s.To.Row - s.From.Row), Col: sign(s.To.Col - s.From.Col)}
}

// ParseStep parses a step in notation form (e.g., "e2e3", "e2-e3").
func ParseStep(s string) (Step, error) {
	if len(s) == 5 && (s[2] == '-' || s[2] == 'x') {
		s = s[:2] + s[3:]
	}
	if len(s) != 4 {
		return Step{}, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParsePos(s[0:2])
	if err != nil {
		return Step{}, err
	}
	to, err := ParsePos(s[2:4])
	if err != nil {
		return Step{}, err
	}
	return Step{From: from, To: to}, nil
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

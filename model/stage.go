package model

import "fmt"

// StageKind distinguishes question stages from the two terminal screens.
type StageKind int

const (
	StageQuestion StageKind = iota
	StageFinal
	StageRejected
)

// Stage is a position in a funnel. Index is only meaningful for question stages
// and is zero based.
type Stage struct {
	Kind  StageKind
	Index int
}

var (
	Final    = Stage{Kind: StageFinal}
	Rejected = Stage{Kind: StageRejected}
)

// Question returns the i-th question stage.
func Question(i int) Stage {
	return Stage{Kind: StageQuestion, Index: i}
}

// IsQuestion reports whether the stage asks a question.
func (s Stage) IsQuestion() bool {
	return s.Kind == StageQuestion
}

func (s Stage) String() string {
	switch s.Kind {
	case StageQuestion:
		return fmt.Sprintf("q%d", s.Index+1)
	case StageFinal:
		return "final"
	case StageRejected:
		return "rejected"
	}
	return fmt.Sprintf("stage(%d)", int(s.Kind))
}

// ParseStage is the inverse of Stage.String.
func ParseStage(s string) (Stage, error) {
	switch s {
	case "final":
		return Final, nil
	case "rejected":
		return Rejected, nil
	}
	var n int
	if _, err := fmt.Sscanf(s, "q%d", &n); err != nil || n < 1 || fmt.Sprintf("q%d", n) != s {
		return Stage{}, fmt.Errorf("invalid stage %q", s)
	}
	return Question(n - 1), nil
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	parsed, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

package model

// Action is a parsed callback token. It is either a ChoiceAction or a
// RestartAction.
type Action interface {
	isAction()
}

// ChoiceAction picks Choice on the stage named by StageTag.
type ChoiceAction struct {
	StageTag string
	Choice   string
}

// RestartAction is the privileged token that leaves the rejected screen.
type RestartAction struct{}

func (ChoiceAction) isAction()  {}
func (RestartAction) isAction() {}

// Token renders the action back into callback data.
func (a ChoiceAction) Token() string {
	return a.StageTag + TokenSeparator + a.Choice
}

// TokenSeparator splits the stage tag from the choice tag in callback data.
const TokenSeparator = ":"

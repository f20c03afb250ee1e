package funnel

import (
	"fmt"
	"strings"

	"FunnelBot/model"
)

// Table answers content lookups for one validated funnel definition. It is
// immutable after construction and safe for concurrent use.
type Table struct {
	def        model.Funnel
	stageByTag map[string]model.Stage
	responses  map[model.Stage]map[string]string
}

// NewTable validates def and indexes it for lookups.
func NewTable(def model.Funnel) (*Table, error) {
	if err := Validate(def); err != nil {
		return nil, err
	}

	t := &Table{
		def:        def,
		stageByTag: make(map[string]model.Stage),
		responses:  make(map[model.Stage]map[string]string),
	}
	for i, q := range def.Questions {
		stage := model.Question(i)
		t.stageByTag[q.Tag] = stage
		t.responses[stage] = make(map[string]string, len(q.Choices))
		for _, c := range q.Choices {
			t.responses[stage][c.Tag] = c.Response
		}
	}
	t.stageByTag[def.Final.Tag] = model.Final
	t.responses[model.Final] = map[string]string{def.Final.Decline.Tag: def.Final.Decline.Response}

	return t, nil
}

// Name returns the funnel variant name.
func (t *Table) Name() string {
	return t.def.Name
}

// Len returns the number of question stages.
func (t *Table) Len() int {
	return len(t.def.Questions)
}

// Opening is the first screen, shown on start and on restart.
func (t *Table) Opening() model.Render {
	first := model.Question(0)
	return model.Render{
		Text:     t.def.Intro + t.PromptText(first),
		Controls: t.ControlSet(first),
	}
}

// PromptText returns the text shown when a stage becomes current.
func (t *Table) PromptText(stage model.Stage) string {
	switch stage.Kind {
	case model.StageQuestion:
		return t.def.Questions[stage.Index].Prompt
	case model.StageFinal:
		return t.def.Final.Prompt
	case model.StageRejected:
		return t.def.Rejected.Prompt
	}
	panic(fmt.Sprintf("funnel: unknown stage %v", stage))
}

// ControlSet returns the keyboard rows for a stage.
func (t *Table) ControlSet(stage model.Stage) [][]model.Control {
	switch stage.Kind {
	case model.StageQuestion:
		q := t.def.Questions[stage.Index]
		cols := q.Columns
		if cols <= 0 {
			cols = 1
		}
		var rows [][]model.Control
		for i, c := range q.Choices {
			if i%cols == 0 {
				rows = append(rows, nil)
			}
			token := model.ChoiceAction{StageTag: q.Tag, Choice: c.Tag}.Token()
			rows[len(rows)-1] = append(rows[len(rows)-1], model.Control{Label: c.Label, Token: token})
		}
		return rows
	case model.StageFinal:
		decline := model.ChoiceAction{StageTag: t.def.Final.Tag, Choice: t.def.Final.Decline.Tag}
		return [][]model.Control{
			{{Label: t.def.Final.CheckoutLabel, URL: t.def.CheckoutURL}},
			{{Label: t.def.Final.Decline.Label, Token: decline.Token()}},
		}
	case model.StageRejected:
		return [][]model.Control{
			{{Label: t.def.Rejected.RestartLabel, Token: t.def.RestartToken}},
		}
	}
	panic(fmt.Sprintf("funnel: unknown stage %v", stage))
}

// ResponseFragment returns the reply to choice on stage, and false when the
// choice is not registered there.
func (t *Table) ResponseFragment(stage model.Stage, choice string) (string, bool) {
	text, ok := t.responses[stage][choice]
	return text, ok
}

// StageForTag maps a token's stage tag to its stage.
func (t *Table) StageForTag(tag string) (model.Stage, bool) {
	stage, ok := t.stageByTag[tag]
	return stage, ok
}

// TagForStage is the inverse of StageForTag. The rejected screen has no tag.
func (t *Table) TagForStage(stage model.Stage) string {
	switch stage.Kind {
	case model.StageQuestion:
		return t.def.Questions[stage.Index].Tag
	case model.StageFinal:
		return t.def.Final.Tag
	}
	return ""
}

// Next returns the successor of a stage that accepts choices.
func (t *Table) Next(stage model.Stage) model.Stage {
	switch stage.Kind {
	case model.StageQuestion:
		if stage.Index+1 < len(t.def.Questions) {
			return model.Question(stage.Index + 1)
		}
		return model.Final
	case model.StageFinal:
		return model.Rejected
	}
	panic(fmt.Sprintf("funnel: stage %v has no successor", stage))
}

// ParseAction turns callback data into an action. The restart token is matched
// first and verbatim; everything else must be "stage:choice".
func (t *Table) ParseAction(token string) (model.Action, error) {
	if token == t.def.RestartToken {
		return model.RestartAction{}, nil
	}
	stageTag, choice, ok := strings.Cut(token, model.TokenSeparator)
	if !ok || stageTag == "" || choice == "" {
		return nil, fmt.Errorf("%w: malformed token %q", model.ErrUnknownChoice, token)
	}
	return model.ChoiceAction{StageTag: stageTag, Choice: choice}, nil
}

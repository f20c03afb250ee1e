package model

// Funnel is the static content of one funnel variant: the ordered questions,
// the call-to-action screen and the rejected screen.
type Funnel struct {
	Name         string         `yaml:"name"`
	Intro        string         `yaml:"intro"`         // prepended to the first prompt on the opening screen
	RestartToken string         `yaml:"restart_token"` // only honored on the rejected screen
	Questions    []QuestionStep `yaml:"questions"`
	Final        FinalScreen    `yaml:"final"`
	Rejected     RejectedScreen `yaml:"rejected"`

	// CheckoutURL is injected from configuration, not from the definition file.
	CheckoutURL string `yaml:"-"`
}

type QuestionStep struct {
	Tag     string   `yaml:"tag"`
	Prompt  string   `yaml:"prompt"`
	Columns int      `yaml:"columns"` // buttons per keyboard row, defaults to 1
	Choices []Choice `yaml:"choices"`
}

type Choice struct {
	Tag      string `yaml:"tag"`
	Label    string `yaml:"label"`
	Response string `yaml:"response"`
}

type FinalScreen struct {
	Tag           string `yaml:"tag"`
	Prompt        string `yaml:"prompt"`
	CheckoutLabel string `yaml:"checkout_label"`
	Decline       Choice `yaml:"decline"`
}

type RejectedScreen struct {
	Prompt       string `yaml:"prompt"`
	RestartLabel string `yaml:"restart_label"`
}

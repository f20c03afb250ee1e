package model

// Control is one inline keyboard button. Exactly one of Token and URL is set:
// token controls come back as callback queries, URL controls leave the bot.
type Control struct {
	Label string
	Token string
	URL   string
}

// IsLink reports whether the control is an outbound link.
func (c Control) IsLink() bool {
	return c.URL != ""
}

// Render is the text and keyboard to show after a transition.
type Render struct {
	Text     string
	Controls [][]Control
}

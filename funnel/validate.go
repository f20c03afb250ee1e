package funnel

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"FunnelBot/model"
)

// Telegram rejects callback_data longer than this.
const maxCallbackData = 64

// Validate checks that every control a funnel can render has content behind it.
// All problems are reported together, wrapped in model.ErrConfiguration.
func Validate(def model.Funnel) error {
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if def.Name == "" {
		fail("funnel has no name")
	}
	if len(def.Questions) == 0 {
		fail("funnel %q has no questions", def.Name)
	}

	tags := make(map[string]bool)
	tokens := make(map[string]string)
	checkTag := func(kind, tag string) {
		switch {
		case tag == "":
			fail("%s has an empty tag", kind)
		case strings.Contains(tag, model.TokenSeparator):
			fail("%s tag %q contains %q", kind, tag, model.TokenSeparator)
		}
	}
	checkToken := func(where, token string) {
		if len(token) > maxCallbackData {
			fail("%s: token %q is longer than %d bytes", where, token, maxCallbackData)
		}
		if prev, dup := tokens[token]; dup {
			fail("%s: token %q already used by %s", where, token, prev)
		}
		tokens[token] = where
	}

	for i, q := range def.Questions {
		where := fmt.Sprintf("question %d", i+1)
		checkTag(where, q.Tag)
		if tags[q.Tag] {
			fail("%s: stage tag %q is not unique", where, q.Tag)
		}
		tags[q.Tag] = true
		if strings.TrimSpace(q.Prompt) == "" {
			fail("%s: empty prompt", where)
		}
		if q.Columns < 0 {
			fail("%s: negative columns", where)
		}
		if len(q.Choices) == 0 {
			fail("%s: no choices", where)
		}
		seen := make(map[string]bool)
		for _, c := range q.Choices {
			cw := fmt.Sprintf("%s choice %q", where, c.Tag)
			checkTag(cw, c.Tag)
			if seen[c.Tag] {
				fail("%s: duplicate choice", cw)
			}
			seen[c.Tag] = true
			if c.Label == "" {
				fail("%s: empty label", cw)
			}
			if strings.TrimSpace(c.Response) == "" {
				fail("%s: no response text", cw)
			}
			checkToken(cw, q.Tag+model.TokenSeparator+c.Tag)
		}
	}

	checkTag("final screen", def.Final.Tag)
	if tags[def.Final.Tag] {
		fail("final screen: stage tag %q is not unique", def.Final.Tag)
	}
	if strings.TrimSpace(def.Final.Prompt) == "" {
		fail("final screen: empty prompt")
	}
	if def.Final.CheckoutLabel == "" {
		fail("final screen: empty checkout label")
	}
	if u, err := url.Parse(def.CheckoutURL); err != nil || u.Scheme == "" || u.Host == "" {
		fail("final screen: invalid checkout url %q", def.CheckoutURL)
	}
	checkTag("decline choice", def.Final.Decline.Tag)
	if def.Final.Decline.Label == "" {
		fail("decline choice: empty label")
	}
	checkToken("decline choice", def.Final.Tag+model.TokenSeparator+def.Final.Decline.Tag)

	if strings.TrimSpace(def.Rejected.Prompt) == "" {
		fail("rejected screen: empty prompt")
	}
	if def.Rejected.RestartLabel == "" {
		fail("rejected screen: empty restart label")
	}
	if def.RestartToken == "" {
		fail("rejected screen: empty restart token")
	} else {
		checkToken("restart", def.RestartToken)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: funnel %q: %w", model.ErrConfiguration, def.Name, errors.Join(problems...))
	}
	return nil
}

package telegram

import (
	"regexp"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Matcher decides whether a dispatch rule claims an inbound message text.
type Matcher interface {
	Match(text string) bool
}

type exactMatcher map[string]struct{}

func (m exactMatcher) Match(text string) bool {
	_, ok := m[strings.TrimSpace(text)]
	return ok
}

// Exact returns a Matcher that matches when the trimmed text equals one of
// the given values.
func Exact(values ...string) Matcher {
	m := make(exactMatcher, len(values))
	for _, v := range values {
		m[strings.TrimSpace(v)] = struct{}{}
	}
	return m
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) Match(text string) bool {
	return m.re.MatchString(text)
}

// Regex returns a Matcher backed by a compiled regular expression.
func Regex(re *regexp.Regexp) Matcher {
	return regexMatcher{re: re}
}

// TextRule binds a named matcher to a message handler. Rules are evaluated
// in registration order and the first match wins.
type TextRule struct {
	Name    string
	Match   Matcher
	Handler tele.HandlerFunc
}

// CallbackRule binds a regular expression over raw callback data to a
// handler. Used for callback families that share one handler, where an
// exact key lookup is too rigid.
type CallbackRule struct {
	Name    string
	Pattern *regexp.Regexp
	Handler tele.HandlerFunc
}

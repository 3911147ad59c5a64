package service

import "strings"

// command enumerates the recognized inbound message patterns.
type command int

const (
	cmdFreeText command = iota
	cmdYes
	cmdNo
	cmdRefresh
	cmdChangeLocation
	cmdCreate
)

// changePrefixes are the fixed command phrases; everything after the phrase
// is the raw location candidate.
var changePrefixes = []string{"change location to", "change city to"}

// refreshWords are synonyms for an on-demand forecast.
var refreshWords = map[string]struct{}{
	"refresh": {},
	"update":  {},
	"sunset":  {},
	"sundown": {},
}

// Normalize prepares inbound text for matching: '+' characters become
// spaces (URL-encoded spaces survive some transports), then the text is
// trimmed and lower-cased.
func Normalize(body string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(body, "+", " ")))
}

// parseCommand matches normalized input against the command vocabulary.
// The second return value is the argument for cmdChangeLocation (possibly
// empty) or the full input for cmdFreeText.
func parseCommand(input string) (command, string) {
	switch input {
	case "yes":
		return cmdYes, ""
	case "no":
		return cmdNo, ""
	}

	if _, ok := refreshWords[input]; ok {
		return cmdRefresh, ""
	}

	for _, prefix := range changePrefixes {
		if input == prefix {
			return cmdChangeLocation, ""
		}
		if strings.HasPrefix(input, prefix+" ") {
			return cmdChangeLocation, strings.TrimSpace(strings.TrimPrefix(input, prefix))
		}
	}

	if input == "create" || strings.HasPrefix(input, "create ") {
		return cmdCreate, ""
	}

	return cmdFreeText, input
}

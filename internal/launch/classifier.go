package launch

import (
	"regexp"
	"strings"
)

// Log markers recognized by the classifier.
const (
	markerStartingActivity = "Starting activity"
	markerMainAction       = "=android.intent.action.MAIN"
	markerHasExtras        = "(has extras)"
	markerHomeCategory     = "android.intent.category.HOME"
)

// startPattern matches the newer "START u<user> {" activity-start form.
var startPattern = regexp.MustCompile(`\bSTART u\d+ \{`)

// Candidate is a log line that looks like an activity launch.
type Candidate struct {
	Raw             string
	HasHomeCategory bool
}

// IsCandidate reports whether line records a MAIN activity start without
// extras. Intents with extras are skipped entirely: their flags and component
// cannot be matched reliably.
func IsCandidate(line string) bool {
	if !strings.Contains(line, markerStartingActivity) && !startPattern.MatchString(line) {
		return false
	}
	return strings.Contains(line, markerMainAction) && !strings.Contains(line, markerHasExtras)
}

// Classify returns the candidate derived from line, if any.
func Classify(line string) (Candidate, bool) {
	if !IsCandidate(line) {
		return Candidate{}, false
	}
	return Candidate{
		Raw:             line,
		HasHomeCategory: strings.Contains(line, markerHomeCategory),
	}, true
}

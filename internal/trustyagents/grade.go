// Package trustyagents implements the §4.5 built-in trusty agent
// taxonomy (pytest, code_reviewer, plausibility, pexpect_agent) and
// registers them against a trusty.Registry. The web_* comparative
// agents live in package visualagent since they additionally satisfy
// trusty.BeforeStateCapturer.
package trustyagents

import (
	"regexp"
	"strconv"
	"strings"
)

var letterRank = map[string]int{"F": 0, "D": 1, "C": 2, "B": 3, "A": 4}

// GradeMeetsMinimum reports whether grade is at least as good as min,
// on the A..F letter scale (A best, F worst). Exported so package
// visualagent's web_* agents share the same grading rule.
func GradeMeetsMinimum(grade, min string) bool {
	g, ok1 := letterRank[strings.ToUpper(strings.TrimSpace(grade))]
	m, ok2 := letterRank[strings.ToUpper(strings.TrimSpace(min))]
	if !ok1 || !ok2 {
		return false
	}
	return g >= m
}

func gradeMeetsMinimum(grade, min string) bool { return GradeMeetsMinimum(grade, min) }

var gradeRe = regexp.MustCompile(`(?is)GRADE:\s*([A-F])`)
var starRe = regexp.MustCompile(`(?is)STAR RATING:\s*([0-9]+(?:\.[0-9]+)?)`)

// ParseGrade extracts the letter grade from an LLM analysis response
// shaped per §4.5 ("a section labelled GRADE: ... from which the
// letter score is parsed"). Exported for package visualagent's reuse.
func ParseGrade(text string) (grade string, ok bool) {
	m := gradeRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

func parseGrade(text string) (string, bool) { return ParseGrade(text) }

// parseStars extracts the numeric star rating from an LLM analysis
// response shaped per §4.5 ("STAR RATING:").
func parseStars(text string) (stars float64, ok bool) {
	m := starRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

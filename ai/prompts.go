package ai

import (
	"fmt"
	"strings"
)

const tutorSystemPrompt = "You are a friendly math tutor inside a photo messaging app for students. " +
	"Answer clearly and at the student's level. Keep answers focused on mathematics."

// GeneratedChallenge is the JSON shape the model returns for a daily challenge.
type GeneratedChallenge struct {
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
	Answer   string   `json:"answer"`
	Hint     string   `json:"hint"`
	Topic    string   `json:"topic"`
}

// GradingResult is the JSON shape the model returns when grading a free-form answer.
type GradingResult struct {
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
}

// TutorSystem returns the system prompt shared by tutoring calls, with
// retrieved knowledge base passages appended when available.
func TutorSystem(passages []string) string {
	if len(passages) == 0 {
		return tutorSystemPrompt
	}
	var b strings.Builder
	b.WriteString(tutorSystemPrompt)
	b.WriteString("\n\nUse the following reference material when relevant:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, p)
	}
	return b.String()
}

// ExplanationPrompt asks for a grade-appropriate explanation of a concept.
func ExplanationPrompt(concept, gradeLevel string) string {
	return fmt.Sprintf("Explain the math concept %q to a %s school student. "+
		"Start with the core idea in one sentence, then walk through a short worked example.",
		concept, gradeLevel)
}

// DefinitionPrompt asks for a short dictionary style definition.
func DefinitionPrompt(term string) string {
	return fmt.Sprintf("Give a short, precise definition of the math term %q in at most three sentences.", term)
}

// ExplorePrompt asks for a deeper dive with examples and connections.
func ExplorePrompt(concept string) string {
	return fmt.Sprintf("Explore the math concept %q in depth: where it comes from, "+
		"two worked examples of increasing difficulty, and one real-world application.", concept)
}

// CaptionPrompt asks for a short fun caption for a snap.
func CaptionPrompt(description string) string {
	return fmt.Sprintf("Suggest one short, fun caption (under 80 characters) for a photo described as: %s. "+
		"Reply with only the caption text.", description)
}

// VisualPrompt asks for a textual or ASCII visual representation of a concept.
func VisualPrompt(concept string) string {
	return fmt.Sprintf("Create a simple visual representation of the math concept %q using plain text or ASCII art, "+
		"followed by a one-paragraph explanation of what the visual shows.", concept)
}

// SnapAnalysisPrompt is sent with the snap image to the vision model.
const SnapAnalysisPrompt = "This photo contains a math problem. Extract the problem, " +
	"then solve it step by step. If no math problem is visible, say so."

// ChallengeSystemPrompt instructs the model to emit a daily challenge as JSON.
const ChallengeSystemPrompt = "You generate one daily math challenge as a JSON object with keys: " +
	`"question" (string), "choices" (array of exactly 4 strings), "answer" (string, must equal one of the choices), ` +
	`"hint" (string), "topic" (string). Reply with JSON only.`

// ChallengePrompt asks for a challenge for a grade level, varied by date so
// the same request on different days yields different problems.
func ChallengePrompt(gradeLevel, date string) string {
	return fmt.Sprintf("Generate a %s school level math challenge for %s. "+
		"Make it solvable without a calculator in under two minutes.", gradeLevel, date)
}

// GradeSystemPrompt instructs the model to grade a free-form answer as JSON.
const GradeSystemPrompt = "You grade a student's answer to a math problem. Reply as a JSON object with keys: " +
	`"correct" (boolean) and "explanation" (string, one short paragraph that explains the right approach). Reply with JSON only.`

// GradePrompt presents the problem, expected answer and the student's answer.
func GradePrompt(question, expected, given string) string {
	return fmt.Sprintf("Problem: %s\nExpected answer: %s\nStudent answer: %s\n"+
		"Is the student's answer mathematically equivalent to the expected one?", question, expected, given)
}

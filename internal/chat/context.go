package chat

// Turn is a single conversation turn as passed to reasoning prompts.
type Turn struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// Fold returns the bounded context window: the most recent n exchanges
// (2n turns). Older turns are dropped, never summarized, to bound prompt
// size. The input order is preserved.
func Fold(history []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}

	maxTurns := n * 2
	if len(history) <= maxTurns {
		return history
	}

	return history[len(history)-maxTurns:]
}

// UserQuestions extracts the user-role contents from a context window,
// used by follow-up deduplication.
func UserQuestions(history []Turn) []string {
	var questions []string

	for _, turn := range history {
		if turn.Role == "user" {
			questions = append(questions, turn.Content)
		}
	}

	return questions
}

package ollama

import (
	"fmt"
	"strings"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

// buildAnswerPrompt joins passage texts, in retrieval order, into one
// context block under a fixed instruction: answer only from the context,
// admit not knowing, keep it to three sentences. Empty passages produce an
// empty context block, which is legal if unhelpful input for the model.
func buildAnswerPrompt(question string, passages []domain.ScoredPassage) string {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}

	return fmt.Sprintf(`You are an assistant that answers questions. Using the following retrieved information, answer the user question. If you don't know the answer, say that you don't know. Use up to three sentences, keeping the answer concise.
Question: %s
Context: %s
Answer:
`, question, strings.Join(texts, "\n\n"))
}

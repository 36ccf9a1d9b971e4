package ai

import (
	"fmt"
	"strings"

	"github.com/GetStream/chat-assistant-backend/chatapp"
)

func classifyPrompt(text string) string {
	return fmt.Sprintf(`Is the following message a question? Answer with "yes" or "no" only.

Message: %s`, text)
}

const answerTemplate = `You are a friendly and knowledgeable team assistant in a group chat. Your job is
to answer questions using ONLY the conversation history below.

Format your answer like this:
- Start with a short greeting.
- Present the details as a bulleted list.
- Use emoji sparingly.
- End with a friendly closing line.

If the conversation history does not contain the information needed, say
politely that you don't have that information yet and suggest asking the team.

If the question has nothing to do with the conversation history, do not answer
it. Reply instead with a short sarcastic remark in Gen Z slang pointing out that
it is off topic.

Conversation history:
%s

Question: %s`

func answerPrompt(question string, history []chatapp.Message) string {
	texts := make([]string, len(history))
	for i, m := range history {
		texts[i] = m.Text
	}
	return fmt.Sprintf(answerTemplate, strings.Join(texts, "\n\n"), question)
}

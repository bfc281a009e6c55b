package generation

import (
	"fmt"
	"strings"

	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
)

// SourceSeparator sits between source texts in the prompt content.
const SourceSeparator = "\n\n-----\n\n"

// BuildPrompt renders the summary prompt.
func BuildPrompt(instruction, languageName string, chars int, content string) string {
	return fmt.Sprintf(`%s

**Requirements:**
- Language: %s
- Target length: approximately %d characters
- Provide a comprehensive summary that captures the main themes, plot, and key insights

**Content to summarize:**
%s

**Summary:**
`, strings.TrimSpace(instruction), languageName, chars, content)
}

// JoinSources concatenates the document's source texts in stored order.
func JoinSources(sources []jobs.SourceRecord) string {
	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		if text := strings.TrimSpace(src.Data); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, SourceSeparator)
}

package translator

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/speakswap/internal/language"
)

// BuildSystemPrompt returns the instructions for translating from
// sourceCode to targetCode.
func BuildSystemPrompt(sourceCode, targetCode string) string {
	source := language.DisplayName(sourceCode)
	target := language.DisplayName(targetCode)

	var b strings.Builder
	fmt.Fprintf(&b, "You are a translation engine. Translate the user's text from %s (%s) to %s (%s).\n\n",
		source, sourceCode, target, targetCode)
	b.WriteString("Rules:\n")
	b.WriteString("- Output ONLY the translation, nothing else\n")
	b.WriteString("- Do not add explanations, notes or quotes\n")
	b.WriteString("- Preserve the meaning, tone and punctuation of the input\n")
	b.WriteString("- Keep names, numbers and code as they are\n")
	b.WriteString("- If the text is already in the target language, return it unchanged\n")
	return b.String()
}

package usecase

import "strings"

// Prompt templates use a fixed set of {name} placeholders filled by render.
// No runtime template discovery is needed, so rendering is a plain string
// replacement.

const queryExpansionTemplate = `Generate {count} alternative phrasings of the user question below.
The rephrasings must preserve the meaning but vary wording and structure to
improve document retrieval recall.
Return ONLY a JSON array of {count} strings. No prose, no markdown.

Question:
{question}`

const answerTemplate = `Answer the user question using only the context below.
If the context is insufficient, say so directly.

Question:
{question}

Context:
{context}
`

const noRelevantInformation = "No relevant information was found in the indexed documents for this question."

func render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

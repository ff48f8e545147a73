package summarizer

import (
	"fmt"
	"strings"
)

// Prompt templates, keyed by version. Templates contain a {context}
// placeholder replaced with the joined thread documents. Older versions are
// kept around so a run can be pinned to a known-good prompt.
var prompts = map[string]string{
	"v11": `You are the editor of a weekly AI newsletter. Below is a collection of
posts gathered from AI practitioners and researchers over the past week.

{context}

Write a newsletter summarizing the most significant developments. Group
related items, keep every claim traceable to the source posts, and skip
anything promotional. Use Markdown. Start with a single bolded title line.`,

	"v12": `You are the editor of a weekly AI newsletter called "AITrendSpot Weekly".
Below is a collection of post threads gathered from a curated list of AI
practitioners and researchers over the past week.

{context}

Write the newsletter in Markdown:
- Start with a single bolded, catchy title line.
- Then 4-7 sections, each covering one significant development or trend.
- Each section gets an emoji-prefixed heading, a 2-4 sentence summary, and
  links to the relevant source URLs when present in the posts.
- Close with a one-paragraph outlook.
Only use information present in the posts. Skip promotional content and
giveaways. Do not invent links.`,
}

// DefaultPromptVersion is used when the config does not pin one.
const DefaultPromptVersion = "v12"

// BuildPrompt renders the named template over the combined documents.
func BuildPrompt(version string, docs []string) (string, error) {
	tmpl, ok := prompts[version]
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", version)
	}
	return strings.Replace(tmpl, "{context}", strings.Join(docs, "\n\n"), 1), nil
}

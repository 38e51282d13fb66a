package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"wealth/daily/internal/catalog"
)

const blueprintSystem = `You are a personal-finance curriculum designer. Plan one short daily lesson.
Respond with a single JSON object and nothing else.`

const draftSystem = `You are a personal-finance writer producing a daily lesson for a general audience.
Be concrete, neutral and practical. Never give individualized investment advice.
Respond with a single JSON object and nothing else.`

const critiqueSystem = `You are a strict editor reviewing a personal-finance lesson for accuracy,
clarity, actionability and balance. Respond with a single JSON object and nothing else.`

const reviseSystem = `You are a personal-finance writer revising a lesson according to editorial feedback.
Keep the same JSON structure. Respond with a single JSON object and nothing else.`

const draftShape = `{
  "topic": "lesson title",
  "summary": "300-450 words of prose",
  "key_points": ["3-4 short points"],
  "practice": [{"title": "exercise name", "steps": ["step", "step"]}],
  "risk_notes": "risks, caveats and who this does not apply to",
  "sources": [{"title": "source name", "url": "https://..."}]
}`

func topicHeader(b *strings.Builder, c catalog.Candidate) {
	fmt.Fprintf(b, "## Topic\n\n")
	fmt.Fprintf(b, "- Title: %s\n", c.Title)
	fmt.Fprintf(b, "- Level: %s\n", c.Level)
	fmt.Fprintf(b, "- Category: %s\n", c.Category)
	fmt.Fprintf(b, "- Difficulty: %s (%d/5)\n", catalog.DifficultyLabel(c.Difficulty), c.Difficulty)
	if len(c.Related) > 0 {
		fmt.Fprintf(b, "- Related topics: %s\n", strings.Join(c.Related, ", "))
	}
	b.WriteString("\n")
}

func blueprintPrompt(c catalog.Candidate) string {
	var b strings.Builder
	topicHeader(&b, c)
	b.WriteString("## Output\n\n")
	b.WriteString("Return a blueprint object with exactly these fields:\n\n")
	b.WriteString(`{
  "hook": "one sentence that makes the reader care",
  "core_concept": "the idea in two sentences",
  "why_it_matters": "consequence for everyday finances",
  "key_insights": ["three insights"],
  "actionable_practice": ["three exercises"],
  "shadow_side": "when this idea fails or is misused",
  "references": ["two or three reputable references"]
}`)
	b.WriteString("\n")
	return b.String()
}

func draftPrompt(c catalog.Candidate, bp Blueprint) string {
	var b strings.Builder
	topicHeader(&b, c)
	b.WriteString("## Blueprint\n\n")
	b.WriteString(mustJSON(bp))
	b.WriteString("\n\n## Output\n\n")
	b.WriteString("Write the lesson from the blueprint. Use three or four key points and three practice items.\n")
	b.WriteString("Return an object shaped like:\n\n")
	b.WriteString(draftShape)
	b.WriteString("\n")
	return b.String()
}

func critiquePrompt(c catalog.Candidate, d Draft) string {
	var b strings.Builder
	topicHeader(&b, c)
	b.WriteString("## Draft\n\n")
	b.WriteString(mustJSON(d))
	b.WriteString("\n\n## Output\n\n")
	b.WriteString("Score the draft from 0 to 10 and explain what should change.\n")
	b.WriteString(`Return {"critique": "specific feedback", "score": 0}`)
	b.WriteString("\n")
	return b.String()
}

func revisePrompt(c catalog.Candidate, d Draft, cr Critique) string {
	var b strings.Builder
	topicHeader(&b, c)
	b.WriteString("## Original draft\n\n")
	b.WriteString(mustJSON(d))
	fmt.Fprintf(&b, "\n\n## Critique (score %.1f/10)\n\n%s\n\n", cr.Score, cr.Critique)
	b.WriteString("## Output\n\n")
	b.WriteString("Return the full revised lesson with the same fields:\n\n")
	b.WriteString(draftShape)
	b.WriteString("\n")
	return b.String()
}

func mustJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

package prompt

import (
	"strings"

	"article-rag-be/internal/entity"
)

// GroundedBuilder builds the system prompt that pins answers to one article
type GroundedBuilder struct {
	article *entity.Article
}

// NewGroundedBuilder creates a new grounded prompt builder
func NewGroundedBuilder(article *entity.Article) *GroundedBuilder {
	return &GroundedBuilder{article: article}
}

// Build returns the system prompt. The full article content is embedded
// without chunking or length budget.
func (b *GroundedBuilder) Build() string {
	var prompt strings.Builder

	b.writeTask(&prompt)
	b.writeReferenceMaterial(&prompt)
	b.writeExample(&prompt)
	b.writeGuidelines(&prompt)

	return prompt.String()
}

func (b *GroundedBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString("Your job is to help the user with questions about a news article. Answer directly and concisely.\n")
	prompt.WriteString("</task>\n\n")
}

func (b *GroundedBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	if b.article == nil {
		return
	}

	prompt.WriteString("<reference_material>\n")
	if b.article.Title != "" {
		prompt.WriteString("Title: ")
		prompt.WriteString(b.article.Title)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString(b.article.Content)
	prompt.WriteString("\n</reference_material>\n\n")
}

func (b *GroundedBuilder) writeExample(prompt *strings.Builder) {
	prompt.WriteString("<example>\n")
	prompt.WriteString("Question: How is climate change affecting Colombia?\n")
	prompt.WriteString("Answer: Rising sea levels are affecting coastal communities on the Colombian Caribbean.\n")
	prompt.WriteString("</example>\n\n")
}

func (b *GroundedBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("1. Base your answer strictly on the reference material above\n")
	prompt.WriteString("2. If the material doesn't contain what's being asked, say so honestly\n")
	prompt.WriteString("</guidelines>\n\n")
	prompt.WriteString("Based on the context above, answer the user's latest question.")
}

package models

import (
	"encoding/json"
	"strings"
)

// ADFNode is one node of an Atlassian Document Format tree
type ADFNode struct {
	Type    string    `json:"type"`
	Version int       `json:"version,omitempty"`
	Text    *string   `json:"text,omitempty"`
	Content []ADFNode `json:"content,omitempty"`
}

// NewParagraphDocument wraps plain text in a single-paragraph ADF document.
func NewParagraphDocument(text string) ADFNode {
	return ADFNode{
		Type:    "doc",
		Version: 1,
		Content: []ADFNode{
			{
				Type: "paragraph",
				Content: []ADFNode{
					{Type: "text", Text: &text},
				},
			},
		},
	}
}

// DescriptionText extracts the first text run of the first paragraph.
// An absent or null description yields "", anything without that path
// yields ComplexDescription.
func DescriptionText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", `""`, "{}", "[]":
		return ""
	}

	var doc ADFNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ComplexDescription
	}

	if len(doc.Content) == 0 || len(doc.Content[0].Content) == 0 {
		return ComplexDescription
	}

	text := doc.Content[0].Content[0].Text
	if text == nil {
		return ComplexDescription
	}
	return *text
}

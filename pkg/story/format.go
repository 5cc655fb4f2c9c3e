package story

import (
	"fmt"
	"strings"

	"github.com/shouni/go-ehon-kit/pkg/domain"
)

// Format は domain.Story を story_details.txt の正準形式に書き出します。
// Parse(Format(s)) == s が成り立つように、解析器と同じ契約に従うのだ。
func Format(s *domain.Story) string {
	var sb strings.Builder

	sb.WriteString(s.Title)
	sb.WriteString("\n\n=== METADATA ===\n")
	sb.WriteString(fmt.Sprintf("Summary: %s\n", s.Meta.Summary))
	sb.WriteString(fmt.Sprintf("Themes: %s\n", strings.Join(s.Meta.Themes, ", ")))
	sb.WriteString(fmt.Sprintf("Target Age: %s\n", s.Meta.TargetAge))
	sb.WriteString(fmt.Sprintf("Educational Elements: %s\n", strings.Join(s.Meta.Educational, ", ")))

	sb.WriteString("\n=== CHARACTERS ===\n")
	for _, c := range s.Characters {
		sb.WriteString(fmt.Sprintf("Character: %s\n", c.Name))
		sb.WriteString(fmt.Sprintf("Appearance: %s\n", c.Appearance))
		sb.WriteString(fmt.Sprintf("Personality: %s\n", c.Personality))
		sb.WriteString(fmt.Sprintf("Role: %s\n", c.Role))
		sb.WriteString(fmt.Sprintf("Expressions: %s\n", c.Expressions))
		sb.WriteString(fmt.Sprintf("Relationships: %s\n", c.Relationships))
		sb.WriteString("\n")
	}

	sb.WriteString("=== PAGES ===\n")
	for _, p := range s.Pages {
		sb.WriteString(fmt.Sprintf("Page %d:\n", p.Number))
		for _, line := range p.Lines {
			sb.WriteString(fmt.Sprintf("Text: %s\n", line))
		}
		sb.WriteString(fmt.Sprintf("Scene: %s\n", p.Scene))
		sb.WriteString(fmt.Sprintf("Mood: %s\n", p.Mood))
		sb.WriteString(fmt.Sprintf("Characters: %s\n", strings.Join(p.Characters, ", ")))
		sb.WriteString("\n")
	}

	return sb.String()
}

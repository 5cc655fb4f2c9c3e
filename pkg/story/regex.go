package story

import "regexp"

var (
	// SectionRegex は "=== METADATA ===" 形式のセクション見出し行をキャプチャします。
	SectionRegex = regexp.MustCompile(`^===\s*([A-Z]+)\s*===$`)

	// PageRegex は "Page 3:" 形式のページ見出し行をキャプチャします。
	PageRegex = regexp.MustCompile(`^Page\s+(\d+)\s*:$`)

	// CharacterRegex は "Character: 名前" 形式のキャラクター見出し行をキャプチャします。
	CharacterRegex = regexp.MustCompile(`^Character:\s*(.+)$`)

	// FieldRegex は "Key: value" 形式のフィールド行をキャプチャします。
	FieldRegex = regexp.MustCompile(`^([A-Za-z ]+):\s*(.*)$`)
)

package story

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shouni/go-ehon-kit/pkg/domain"
)

// story_details.txt の固定セクション見出し。画像生成とレイアウトの両工程が
// この契約に依存するため、決定論的に解析できる形式だけを受け付けます。
const (
	sectionMetadata   = "METADATA"
	sectionCharacters = "CHARACTERS"
	sectionPages      = "PAGES"
)

// フィールドキー（小文字化して比較するのだ）
const (
	fieldSummary       = "summary"
	fieldThemes        = "themes"
	fieldTargetAge     = "target age"
	fieldEducational   = "educational elements"
	fieldAppearance    = "appearance"
	fieldPersonality   = "personality"
	fieldRole          = "role"
	fieldExpressions   = "expressions"
	fieldRelationships = "relationships"
	fieldText          = "text"
	fieldScene         = "scene"
	fieldMood          = "mood"
	fieldCharacters    = "characters"
)

// Parse は story_details.txt の内容を解析して domain.Story を返します。
// 形式違反は guessing せず *domain.MalformedStoryError で即座に失敗させるのだ。
func Parse(path string, input string) (*domain.Story, error) {
	s := &domain.Story{}
	var (
		section     string
		currentChar *domain.Character
		currentPage *domain.Page
	)

	flushChar := func() {
		if currentChar != nil {
			s.Characters = append(s.Characters, *currentChar)
			currentChar = nil
		}
	}
	flushPage := func() {
		if currentPage != nil {
			s.Pages = append(s.Pages, *currentPage)
			currentPage = nil
		}
	}

	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := SectionRegex.FindStringSubmatch(trimmed); m != nil {
			flushChar()
			flushPage()
			section = m[1]
			continue
		}

		// セクション前の最初の非空行がタイトルなのだ
		if section == "" {
			if s.Title == "" {
				s.Title = trimmed
				continue
			}
			return nil, malformed(path, fmt.Sprintf("セクション外に予期しない行があります: %q", trimmed))
		}

		switch section {
		case sectionMetadata:
			if err := parseMetadataLine(s, trimmed); err != nil {
				return nil, malformed(path, err.Error())
			}

		case sectionCharacters:
			if m := CharacterRegex.FindStringSubmatch(trimmed); m != nil {
				flushChar()
				currentChar = &domain.Character{Name: strings.TrimSpace(m[1])}
				continue
			}
			if currentChar == nil {
				return nil, malformed(path, fmt.Sprintf("CHARACTERS セクションに 'Character:' より前の行があります: %q", trimmed))
			}
			parseCharacterLine(currentChar, trimmed)

		case sectionPages:
			if m := PageRegex.FindStringSubmatch(trimmed); m != nil {
				flushPage()
				num, err := strconv.Atoi(m[1])
				if err != nil || num < 1 {
					return nil, malformed(path, fmt.Sprintf("不正なページ番号です: %q", trimmed))
				}
				currentPage = &domain.Page{Number: num}
				continue
			}
			if currentPage == nil {
				return nil, malformed(path, fmt.Sprintf("PAGES セクションに 'Page N:' より前の行があります: %q", trimmed))
			}
			parsePageLine(currentPage, trimmed)

		default:
			return nil, malformed(path, fmt.Sprintf("未知のセクションです: %q", section))
		}
	}
	flushChar()
	flushPage()

	if err := Validate(s); err != nil {
		return nil, malformed(path, err.Error())
	}
	return s, nil
}

// LoadFile はローカルの story_details.txt を読み込んで解析するのだ。
// ステージ検出器がページ数を数えるための読み取り専用の入り口でもあります。
func LoadFile(path string) (*domain.Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ストーリーファイルの読み込みに失敗しました: %w", err)
	}
	return Parse(path, string(data))
}

// Validate は構造上の契約（タイトル、ページの連番、本文の存在）を検査します。
func Validate(s *domain.Story) error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("タイトル行がありません")
	}
	if len(s.Pages) == 0 {
		return fmt.Errorf("PAGES セクションに有効なページがありません")
	}
	for i, p := range s.Pages {
		if p.Number != i+1 {
			return fmt.Errorf("ページ番号が連番ではありません（%d 番目に Page %d）", i+1, p.Number)
		}
		if len(p.Lines) == 0 {
			return fmt.Errorf("Page %d に本文（Text:）がありません", p.Number)
		}
	}
	return nil
}

func parseMetadataLine(s *domain.Story, line string) error {
	m := FieldRegex.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("METADATA セクションに解析できない行があります: %q", line)
	}
	key, val := strings.ToLower(strings.TrimSpace(m[1])), strings.TrimSpace(m[2])
	switch key {
	case fieldSummary:
		s.Meta.Summary = val
	case fieldThemes:
		s.Meta.Themes = splitList(val)
	case fieldTargetAge:
		s.Meta.TargetAge = val
	case fieldEducational:
		s.Meta.Educational = splitList(val)
	}
	return nil
}

func parseCharacterLine(c *domain.Character, line string) {
	m := FieldRegex.FindStringSubmatch(line)
	if m == nil {
		return
	}
	key, val := strings.ToLower(strings.TrimSpace(m[1])), strings.TrimSpace(m[2])
	switch key {
	case fieldAppearance:
		c.Appearance = val
	case fieldPersonality:
		c.Personality = val
	case fieldRole:
		c.Role = val
	case fieldExpressions:
		c.Expressions = val
	case fieldRelationships:
		c.Relationships = val
	}
}

func parsePageLine(p *domain.Page, line string) {
	m := FieldRegex.FindStringSubmatch(line)
	if m == nil {
		return
	}
	key, val := strings.ToLower(strings.TrimSpace(m[1])), strings.TrimSpace(m[2])
	switch key {
	case fieldText:
		if val != "" {
			p.Lines = append(p.Lines, val)
		}
	case fieldScene:
		p.Scene = val
	case fieldMood:
		p.Mood = val
	case fieldCharacters:
		p.Characters = splitList(val)
	}
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func malformed(path, reason string) error {
	return &domain.MalformedStoryError{Path: path, Reason: reason}
}

package graph

import (
	"regexp"
	"strings"
	"unicode"
)

var tableDelimRe = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$`)

func isTableRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && strings.Contains(trimmed, "|")
}

func endsSentence(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

// sentenceSplitter accumulates sentence fragments across lines.
type sentenceSplitter struct {
	sentences []string
	current   strings.Builder
}

func (s *sentenceSplitter) flush() {
	if s.current.Len() == 0 {
		return
	}
	if sentence := strings.TrimSpace(s.current.String()); sentence != "" {
		s.sentences = append(s.sentences, sentence)
	}
	s.current.Reset()
}

func (s *sentenceSplitter) addLine(line string) {
	for _, part := range splitLineIntoSentences(line) {
		if s.current.Len() > 0 {
			s.current.WriteString(" ")
		}
		s.current.WriteString(part)
		if endsSentence(part) {
			s.flush()
		}
	}
}

// splitIntoSentences splits text into sentences. Sentences may span lines,
// blank lines always end a sentence, a markdown table (header row followed
// by a delimiter row) is kept as one sentence and numeric listings such as
// "1. First" do not end a sentence.
func splitIntoSentences(text string) []string {
	lines := strings.Split(text, "\n")
	s := &sentenceSplitter{}
	inTable := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !inTable && isTableRow(line) && i+1 < len(lines) && tableDelimRe.MatchString(strings.TrimSpace(lines[i+1])) {
			s.flush()
			inTable = true
			s.current.WriteString(line)
			continue
		}

		if !inTable && isTableRow(line) {
			s.flush()
			s.sentences = append(s.sentences, trimmed)
			continue
		}

		if inTable {
			if trimmed != "" && isTableRow(line) {
				s.current.WriteString("\n")
				s.current.WriteString(line)
				continue
			}
			inTable = false
			s.flush()
			if trimmed != "" {
				s.addLine(trimmed)
			}
			continue
		}

		if trimmed == "" {
			s.flush()
			continue
		}
		s.addLine(trimmed)
	}
	s.flush()

	return s.sentences
}

func splitLineIntoSentences(line string) []string {
	var sentences []string
	var current strings.Builder

	for i := 0; i < len(line); i++ {
		current.WriteByte(line[i])

		if line[i] != '.' && line[i] != '!' && line[i] != '?' {
			continue
		}
		// "3. Third" is a listing, not a sentence end
		if i > 0 && unicode.IsDigit(rune(line[i-1])) && i+1 < len(line) && line[i+1] == ' ' {
			continue
		}

		j := i + 1
		for j < len(line) && (line[j] == '.' || line[j] == '!' || line[j] == '?') {
			current.WriteByte(line[j])
			j++
		}
		for j < len(line) && (line[j] == '"' || line[j] == '\'' || line[j] == ')' ||
			line[j] == ']' || line[j] == '}') {
			current.WriteByte(line[j])
			j++
		}

		if sentence := strings.TrimSpace(current.String()); sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
		i = j - 1
	}

	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		sentences = append(sentences, remaining)
	}
	return sentences
}

package services

import (
	"strings"
	"unicode"
)

// SplitQuestions detects compound questions and returns the independent
// parts in input order. Blank-line separated paragraphs are always
// separate parts. A paragraph containing a question mark is split after
// each sentence terminator that is followed by the start of a new
// sentence. Single questions come back as a one-element slice holding
// the trimmed input.
func SplitQuestions(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var parts []string
	for _, para := range strings.Split(trimmed, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		parts = append(parts, splitParagraph(para)...)
	}

	if len(parts) <= 1 {
		return []string{trimmed}
	}
	return parts
}

// splitParagraph cuts a paragraph after each sentence terminator that
// is followed by the start of a new sentence. Paragraphs without a
// question mark are statements and are left whole, so only text that
// actually asks something fans out into parts.
func splitParagraph(para string) []string {
	if !strings.Contains(para, "?") {
		return []string{para}
	}

	var parts []string
	start := 0
	for i := 0; i < len(para); i++ {
		if !isTerminator(para[i]) {
			continue
		}
		// Absorb repeated terminators ("??", "?!", "...").
		j := i + 1
		for j < len(para) && isTerminator(para[j]) {
			j++
		}
		if j >= len(para) || startsNewSentence(para[j:]) {
			if part := strings.TrimSpace(para[start:j]); part != "" {
				parts = append(parts, part)
			}
			start = j
		}
		i = j - 1
	}
	if rest := strings.TrimSpace(para[start:]); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// startsNewSentence reports whether the text begins with whitespace
// followed by an upper-case letter or a digit.
func startsNewSentence(s string) bool {
	rest := strings.TrimLeft(s, " \t\n\r")
	if rest == s || rest == "" {
		return false
	}
	r := []rune(rest)[0]
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

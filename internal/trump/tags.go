package trump

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// foldTag makes tags comparable regardless of case and composition
func foldTag(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// FolderTags returns the tag tokens of a folder's base name: the text of
// every bracketed group plus every run of letters and digits.
//
//	"Dune [MyRip] (2021)" -> "MyRip", "Dune", "2021"
func FolderTags(folderPath string) []string {
	name := filepath.Base(filepath.Clean(folderPath))
	if name == "." || name == string(filepath.Separator) {
		return nil
	}

	var tokens []string
	seen := make(map[string]bool)
	add := func(tok string) {
		tok = strings.TrimSpace(tok)
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}

	closers := map[rune]rune{'[': ']', '(': ')', '{': '}'}
	runes := []rune(name)
	for i := 0; i < len(runes); i++ {
		closer, ok := closers[runes[i]]
		if !ok {
			continue
		}
		for j := i + 1; j < len(runes); j++ {
			if runes[j] == closer {
				add(string(runes[i+1 : j]))
				break
			}
		}
	}

	for _, word := range strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		add(word)
	}

	return tokens
}

// matchAutoReplaceTag returns the configured tag carried by the folder, if any
func matchAutoReplaceTag(folderPath string, tags []string) (string, bool) {
	if len(tags) == 0 || folderPath == "" {
		return "", false
	}

	present := make(map[string]bool)
	for _, tok := range FolderTags(folderPath) {
		present[foldTag(tok)] = true
	}

	for _, tag := range tags {
		if key := foldTag(tag); key != "" && present[key] {
			return tag, true
		}
	}
	return "", false
}

package extractor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "been": {}, "but": {}, "by": {},
	"can": {}, "for": {}, "from": {}, "has": {}, "have": {}, "he": {}, "her": {}, "his": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "its": {}, "more": {}, "not": {}, "of": {}, "on": {}, "or": {},
	"our": {}, "she": {}, "so": {}, "than": {}, "that": {}, "the": {}, "their": {}, "them": {}, "there": {},
	"these": {}, "they": {}, "this": {}, "those": {}, "to": {}, "was": {}, "we": {}, "were": {}, "what": {},
	"when": {}, "which": {}, "while": {}, "who": {}, "will": {}, "with": {}, "would": {}, "you": {},
	"also": {}, "about": {}, "after": {}, "all": {}, "any": {}, "each": {}, "many": {}, "most": {},
	"new": {}, "one": {}, "other": {}, "over": {}, "some": {}, "such": {}, "then": {}, "very": {},
	"我们": {}, "他们": {}, "这个": {}, "那个": {}, "一个": {}, "没有": {}, "可以": {}, "进行": {},
	"通过": {}, "以及": {}, "因为": {}, "所以": {}, "但是": {}, "如果": {}, "这些": {}, "那些": {},
	"已经": {}, "其中": {}, "对于": {}, "就是": {},
}

// Document is the tokenized view of one text shared by all strategies.
type Document struct {
	Text      string
	Lower     string
	Domain    string
	Tokens    []string
	Sentences [][]string
}

func newDocument(text, domainName string) *Document {
	doc := &Document{
		Text:   text,
		Lower:  strings.ToLower(text),
		Domain: domainName,
	}
	for _, sentence := range splitSentences(text) {
		tokens := tokenize(sentence)
		if len(tokens) == 0 {
			continue
		}
		doc.Sentences = append(doc.Sentences, tokens)
		doc.Tokens = append(doc.Tokens, tokens...)
	}
	return doc
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '!', '?', ';', '\n', '。', '！', '？', '；':
			return true
		}
		return false
	})
}

// tokenize lowercases Latin words, splits Han runs into bigrams and drops stopwords,
// numerals and single-rune terms.
func tokenize(text string) []string {
	var tokens []string
	var word []rune
	var han []rune

	flushWord := func() {
		if len(word) == 0 {
			return
		}
		term := strings.Trim(strings.ToLower(string(word)), "-")
		word = word[:0]
		if keepToken(term) {
			tokens = append(tokens, term)
		}
	}
	flushHan := func() {
		if len(han) == 0 {
			return
		}
		for i := 0; i+1 < len(han); i++ {
			term := string(han[i : i+2])
			if keepToken(term) {
				tokens = append(tokens, term)
			}
		}
		han = han[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || (r == '-' && len(word) > 0):
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()
	return tokens
}

func keepToken(term string) bool {
	if utf8.RuneCountInString(term) < 2 {
		return false
	}
	if isNumeric(term) {
		return false
	}
	_, stop := stopwords[term]
	return !stop
}

func isNumeric(term string) bool {
	for _, r := range term {
		if !unicode.IsDigit(r) && r != '.' && r != '-' {
			return false
		}
	}
	return true
}

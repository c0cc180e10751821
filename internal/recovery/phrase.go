package recovery

import (
	"strings"

	"github.com/tyler-smith/go-bip39/wordlists"
)

const (
	// PhraseWords is the number of words in a rendered phrase.
	PhraseWords = 24
	// dictionarySize is how many words of the BIP-39 English list are used.
	dictionarySize = 64
)

// dictionary is the fixed word list phrases are drawn from.
var dictionary = wordlists.English[:dictionarySize]

// Phrase is an ordered list of recovery words.
type Phrase []string

// String joins the words with single spaces.
func (p Phrase) String() string { return strings.Join(p, " ") }

// Dictionary returns a copy of the word list.
func Dictionary() []string { return append([]string(nil), dictionary...) }

// ToPhrase maps successive byte pairs of the exported private key text to
// words. A trailing odd byte is ignored and the result is capped at
// PhraseWords.
func ToPhrase(exportedPrivateKey string) Phrase {
	b := []byte(exportedPrivateKey)
	n := min(len(b)/2, PhraseWords)

	out := make(Phrase, 0, n)
	for i := 0; i < n; i++ {
		sum := int(b[2*i]) + int(b[2*i+1])
		out = append(out, dictionary[sum%len(dictionary)])
	}
	return out
}

package textutil

import (
	"math"
	"regexp"
	"strings"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// minTokenLen drops tokens too short to carry meaning on their own.
const minTokenLen = 3

// stopwords lists common English function words. Technical prose is saturated
// with them, so they would dominate every fingerprint and flatten the cosine
// distance between document classes.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"was": {}, "were": {}, "been": {}, "being": {}, "have": {}, "has": {},
	"had": {}, "will": {}, "would": {}, "shall": {}, "should": {},
	"can": {}, "could": {}, "may": {}, "might": {}, "must": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "with": {},
	"from": {}, "into": {}, "onto": {}, "over": {}, "under": {},
	"about": {}, "above": {}, "below": {}, "between": {}, "through": {},
	"during": {}, "before": {}, "after": {}, "when": {}, "where": {},
	"which": {}, "while": {}, "there": {}, "their": {}, "they": {},
	"them": {}, "than": {}, "then": {}, "each": {}, "all": {}, "any": {},
	"some": {}, "such": {}, "its": {}, "also": {}, "only": {}, "other": {},
	"both": {}, "more": {}, "most": {}, "very": {}, "you": {}, "your": {},
}

// Fingerprint represents a term-frequency vector for text similarity comparison.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from the provided text.
// Returns nil if the text produces no valid tokens.
func NewFingerprint(text string) *Fingerprint {
	counts := TermFrequencies(text)
	if len(counts) == 0 {
		return nil
	}
	tokens := make(map[string]float64, len(counts))
	var norm float64
	for token, count := range counts {
		weight := float64(count)
		tokens[token] = weight
		norm += weight * weight
	}
	return &Fingerprint{
		tokens: tokens,
		norm:   math.Sqrt(norm),
	}
}

// Tokenize splits text into lowercase tokens, dropping short tokens and
// stopwords. Token order follows the input text.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) < minTokenLen {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// TermFrequencies tokenizes text and counts occurrences per term. The index
// stage stores these counts as its postings.
func TermFrequencies(text string) map[string]int {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	return counts
}

// TokenCount returns the number of unique tokens in the fingerprint.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// WithIDF returns a new Fingerprint with TF-IDF weights applied.
// Each term's count is multiplied by its IDF weight. The norm is recomputed.
// Terms absent from the IDF map retain their original weight.
func (f *Fingerprint) WithIDF(idf map[string]float64) *Fingerprint {
	if f == nil || len(idf) == 0 {
		return f
	}
	weighted := make(map[string]float64, len(f.tokens))
	var norm float64
	for token, count := range f.tokens {
		w := count
		if idfVal, ok := idf[token]; ok {
			w *= idfVal
		}
		if w == 0 {
			continue
		}
		weighted[token] = w
		norm += w * w
	}
	if len(weighted) == 0 {
		return nil
	}
	return &Fingerprint{
		tokens: weighted,
		norm:   math.Sqrt(norm),
	}
}

// Corpus collects document frequency statistics for IDF computation. The
// classifier builds one over its class profiles so shared vocabulary stops
// deciding matches.
type Corpus struct {
	docCount int
	docFreq  map[string]int
}

// NewCorpus creates an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{docFreq: make(map[string]int)}
}

// Add registers a fingerprint's unique terms in the corpus.
func (c *Corpus) Add(fp *Fingerprint) {
	if c == nil || fp == nil {
		return
	}
	c.docCount++
	for token := range fp.tokens {
		c.docFreq[token]++
	}
}

// IDF computes inverse document frequency weights: log((N+1)/(1+df)) for each term.
func (c *Corpus) IDF() map[string]float64 {
	if c == nil || c.docCount == 0 {
		return nil
	}
	idf := make(map[string]float64, len(c.docFreq))
	n := float64(c.docCount)
	for term, df := range c.docFreq {
		idf[term] = math.Log((n + 1) / (1 + float64(df)))
	}
	return idf
}

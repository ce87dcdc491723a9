// Package summary builds extractive summaries with latent semantic analysis.
package summary

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"github.com/neurosnap/sentences"
	sentenceseng "github.com/neurosnap/sentences/english"
	"gonum.org/v1/gonum/mat"

	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

// Smoothing applied to term frequencies, relative to the most frequent term in a sentence.
const smoothing = 0.4

// Summary is an ordered subset of the source sentences.
type Summary struct {
	Sentences []string `json:"sentences"`
}

// String joins the sentences with single spaces.
func (s Summary) String() string {
	return strings.Join(s.Sentences, " ")
}

// Summarizer is safe for concurrent use.
type Summarizer struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func NewSummarizer() (*Summarizer, error) {
	tokenizer, err := sentenceseng.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentence tokenizer: %w", err)
	}
	return &Summarizer{tokenizer: tokenizer}, nil
}

// Summarize picks up to count sentences from text, returned in document order.
// A count of zero or less means types.DefaultSummarySentences.
func (s *Summarizer) Summarize(text string, count int) (Summary, error) {
	if count <= 0 {
		count = types.DefaultSummarySentences
	}

	sents := s.split(text)
	if len(sents) == 0 {
		return Summary{Sentences: []string{}}, nil
	}
	if len(sents) <= count {
		return Summary{Sentences: sents}, nil
	}

	dictionary, terms := buildDictionary(sents)
	if len(dictionary) == 0 {
		return Summary{Sentences: []string{}}, nil
	}

	matrix := termFrequencies(dictionary, terms)
	ranks, err := rankSentences(matrix)
	if err != nil {
		return Summary{}, err
	}

	order := make([]int, len(sents))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ranks[order[a]] > ranks[order[b]]
	})
	picked := order[:count]
	sort.Ints(picked)

	out := make([]string, 0, count)
	for _, idx := range picked {
		out = append(out, sents[idx])
	}
	return Summary{Sentences: out}, nil
}

func (s *Summarizer) split(text string) []string {
	var out []string
	for _, sent := range s.tokenizer.Tokenize(text) {
		trimmed := strings.TrimSpace(sent.Text)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// buildDictionary maps each stemmed non-stop word to a row and returns the
// stemmed terms of every sentence.
func buildDictionary(sents []string) (map[string]int, [][]string) {
	dictionary := make(map[string]int)
	terms := make([][]string, len(sents))
	for i, sent := range sents {
		for _, word := range words(sent) {
			if _, stop := stopWords[word]; stop {
				continue
			}
			stem := english.Stem(word, false)
			if stem == "" {
				continue
			}
			terms[i] = append(terms[i], stem)
			if _, ok := dictionary[stem]; !ok {
				dictionary[stem] = len(dictionary)
			}
		}
	}
	return dictionary, terms
}

func words(sentence string) []string {
	fields := strings.FieldsFunc(strings.ToLower(sentence), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func termFrequencies(dictionary map[string]int, terms [][]string) *mat.Dense {
	m := mat.NewDense(len(dictionary), len(terms), nil)
	for col, sentTerms := range terms {
		for _, term := range sentTerms {
			row := dictionary[term]
			m.Set(row, col, m.At(row, col)+1)
		}
	}

	rows, cols := m.Dims()
	for col := 0; col < cols; col++ {
		maxCount := 0.0
		for row := 0; row < rows; row++ {
			maxCount = math.Max(maxCount, m.At(row, col))
		}
		if maxCount == 0 {
			continue
		}
		for row := 0; row < rows; row++ {
			m.Set(row, col, smoothing+(1-smoothing)*m.At(row, col)/maxCount)
		}
	}
	return m
}

// rankSentences scores each column by the length of its vector in the
// singular-value-weighted topic space.
func rankSentences(m *mat.Dense) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return nil, errors.New("singular value decomposition failed")
	}
	values := svd.Values(nil)

	var v mat.Dense
	svd.VTo(&v)

	_, cols := m.Dims()
	ranks := make([]float64, cols)
	for j := 0; j < cols; j++ {
		var sum float64
		for i, sigma := range values {
			x := sigma * v.At(j, i)
			sum += x * x
		}
		ranks[j] = math.Sqrt(sum)
	}
	return ranks, nil
}

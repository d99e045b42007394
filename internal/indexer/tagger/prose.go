package tagger

import (
	"fmt"

	"github.com/jdkato/prose/v2"
)

// ProseTagger tags with prose's averaged perceptron model. Sentence
// segmentation and entity extraction are disabled: titles are single
// fragments and only the POS tags are needed. The model is decoded once
// and shared by every Tag call.
type ProseTagger struct {
	model *prose.Model
}

func NewProseTagger() (*ProseTagger, error) {
	doc, err := prose.NewDocument("warm up",
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("loading prose model: %w", err)
	}
	return &ProseTagger{model: doc.Model}, nil
}

func (t *ProseTagger) Tag(text string) ([]Token, error) {
	doc, err := prose.NewDocument(text,
		prose.UsingModel(t.model),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("tagging text: %w", err)
	}
	proseTokens := doc.Tokens()
	tokens := make([]Token, 0, len(proseTokens))
	for _, tok := range proseTokens {
		tokens = append(tokens, Token{Text: tok.Text, Tag: tok.Tag})
	}
	return tokens, nil
}

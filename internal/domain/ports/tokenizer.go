package ports

import "github.com/deckhandhq/deckhand/internal/domain/entities"

// MarkdownTokenizer parses markdown into the structural token stream the
// classifier and fallback generator consume. Tokenization never fails:
// malformed constructs degrade to paragraph tokens.
type MarkdownTokenizer interface {
	Tokenize(text string) entities.MarkdownDocument
}

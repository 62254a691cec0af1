package embedding

import "context"

// Vector is a dense embedding of a piece of text.
type Vector []float32

type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
}

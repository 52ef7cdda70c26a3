package websearch

import (
	"context"
	"errors"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/websearch/brave"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/websearch/serper"
)

// Searcher runs a web search and returns up to k organic results.
type Searcher interface {
	Search(ctx context.Context, q string, k int) ([]models.WebResult, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = errors.New("unsupported web search provider")

func NewSearcher(provider Provider, apiKey string) (Searcher, error) {
	switch provider {
	case SerperProvider:
		return serper.Search{ApiKey: apiKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

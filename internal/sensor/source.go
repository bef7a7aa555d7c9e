package sensor

import (
	"context"

	"github.com/bilal/nocturne-agent/internal/fetcher"
	"github.com/rs/zerolog/log"
)

// Getter is satisfied by *fetcher.Client.
type Getter interface {
	GetJSON(ctx context.Context, url string, out any) error
}

// Source polls the hardware monitor's JSON endpoint.
type Source struct {
	url    string
	client Getter
	parser *Parser
}

func NewSource(url string, opts fetcher.Options, parser *Parser) *Source {
	return &Source{
		url:    url,
		client: fetcher.New("sensors", opts),
		parser: parser,
	}
}

// NewSourceWithGetter is used where the transport is supplied by the caller.
func NewSourceWithGetter(url string, client Getter, parser *Parser) *Source {
	return &Source{url: url, client: client, parser: parser}
}

// Fetch returns the current metrics, or an empty map if the endpoint could
// not be read after all retries.
func (s *Source) Fetch(ctx context.Context) Metrics {
	var doc any
	if err := s.client.GetJSON(ctx, s.url, &doc); err != nil {
		log.Debug().Err(err).Str("url", s.url).Msg("hardware monitor unavailable")
		return Metrics{}
	}
	return s.parser.Parse(doc)
}

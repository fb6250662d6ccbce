// internal/source/types.go
package source

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsatrips/dodoetl/internal/record"
)

var ErrUnsupportedFeed = errors.New("feed not served by this source")

// Source pobiera surowe rekordy jednego feedu. Paginację obsługuje adapter.
type Source interface {
	Name() string
	Feeds() []record.Feed
	// Fetch returns every raw row for feed within [from, to).
	Fetch(ctx context.Context, feed record.Feed, from, to time.Time) (record.Set, error)
}

type Factory func(log zerolog.Logger, raw json.RawMessage) (Source, error)

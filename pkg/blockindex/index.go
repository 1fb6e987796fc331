package blockindex

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark/parser"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/singleflight"

	"github.com/walteh/embedls/pkg/document"
)

var ErrNoDocument = errors.New("no document")

type entry struct {
	key    string
	blocks []Block
}

// Index holds one parse per tracked document. An entry is replaced whenever
// the document's version changes; documents without a version are keyed by a
// hash of their text.
type Index struct {
	parser parser.Parser
	group  singleflight.Group

	mu      sync.RWMutex
	entries map[string]*entry
}

func NewIndex() *Index {
	return &Index{
		parser:  newBlockParser(),
		entries: make(map[string]*entry),
	}
}

// CacheKey identifies a document state.
func CacheKey(doc document.Document) string {
	if v := doc.Version(); v >= 0 {
		return "v" + strconv.FormatInt(int64(v), 10)
	}
	return "h" + document.ContentHash(doc.Text())
}

// Parse returns the blocks of doc, tokenizing at most once per document
// state even when called concurrently.
func (ix *Index) Parse(ctx context.Context, doc document.Document) ([]Block, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	uri, key := doc.URI(), CacheKey(doc)

	ix.mu.RLock()
	e, ok := ix.entries[uri]
	ix.mu.RUnlock()
	if ok && e.key == key {
		return e.blocks, nil
	}

	res, err, _ := ix.group.Do(uri+"\x00"+key, func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("parsing %s: %w", uri, err)
		}
		ix.mu.RLock()
		e, ok := ix.entries[uri]
		ix.mu.RUnlock()
		if ok && e.key == key {
			return e.blocks, nil
		}

		start := time.Now()
		blocks := tokenize(ix.parser, doc.Text())
		zerolog.Ctx(ctx).Debug().
			Str("uri", uri).
			Str("key", key).
			Int("blocks", len(blocks)).
			Dur("took", time.Since(start)).
			Msg("indexed document")

		ix.mu.Lock()
		ix.entries[uri] = &entry{key: key, blocks: blocks}
		ix.mu.Unlock()
		return blocks, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]Block), nil
}

// Cached returns the last parse of uri without blocking on a new one, or an
// empty slice if the document was never parsed.
func (ix *Index) Cached(uri string) []Block {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if e, ok := ix.entries[uri]; ok {
		return e.blocks
	}
	return []Block{}
}

// Clean drops the entry for uri.
func (ix *Index) Clean(uri string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, uri)
}

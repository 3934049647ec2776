package sigdb

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/analysis/lang/en"
	"github.com/blevesearch/bleve/mapping"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/tranvictor/abiscope/contract"
)

// Index is a local bleve index of text signatures. It answers exact
// lookups by hash, which makes it a SignatureResolver, and fuzzy searches
// by name.
type Index struct {
	index   bleve.Index
	logger  *zap.Logger
	metrics *LookupMetrics
}

func buildIndexMapping() mapping.IndexMapping {
	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName

	storedFieldMapping := bleve.NewTextFieldMapping()
	storedFieldMapping.Index = false

	defaultMapping := bleve.NewDocumentMapping()
	defaultMapping.AddFieldMappingsAt("kind", keywordFieldMapping)
	defaultMapping.AddFieldMappingsAt("hash", keywordFieldMapping)
	defaultMapping.AddFieldMappingsAt("words", textFieldMapping)
	defaultMapping.AddFieldMappingsAt("text", storedFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", defaultMapping)
	indexMapping.TypeField = "type"
	indexMapping.DefaultAnalyzer = "en"
	return indexMapping
}

// OpenIndex opens the index at path, creating it when it doesn't exist.
// An empty path keeps the index in memory.
func OpenIndex(path string, logger *zap.Logger, metrics *LookupMetrics) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	result := &Index{logger: logger, metrics: metrics}
	if path == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, err
		}
		result.index = index
		return result, nil
	}

	index, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(path, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("opening signature index %s: %w", path, err)
	}
	result.index = index
	return result, nil
}

func (i *Index) Close() error {
	return i.index.Close()
}

func documentID(s Signature) string {
	return string(s.Kind) + ":" + s.Text
}

// words splits the name of a signature into lower case words, so
// "transferFrom(address,address,uint256)" becomes "transfer from".
func words(text string) string {
	name := text
	if open := strings.Index(text, "("); open >= 0 {
		name = text[:open]
	}
	var b strings.Builder
	for j, r := range name {
		if unicode.IsUpper(r) && j > 0 {
			b.WriteRune(' ')
		}
		if r == '_' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Add indexes signatures in one batch. Signatures already present are
// overwritten.
func (i *Index) Add(signatures ...Signature) error {
	batch := i.index.NewBatch()
	for _, s := range signatures {
		if s.Text == "" {
			continue
		}
		err := batch.Index(documentID(s), map[string]interface{}{
			"kind":  string(s.Kind),
			"hash":  s.Hash,
			"words": words(s.Text),
			"text":  s.Text,
		})
		if err != nil {
			return err
		}
	}
	if batch.Size() == 0 {
		return nil
	}
	i.logger.Debug("indexing signatures", zap.Int("count", batch.Size()))
	return i.index.Batch(batch)
}

func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

func (i *Index) hits(request *bleve.SearchRequest) ([]Signature, error) {
	request.Fields = []string{"kind", "hash", "text"}
	searchResults, err := i.index.Search(request)
	if err != nil {
		return nil, err
	}
	results := []Signature{}
	for _, hit := range searchResults.Hits {
		text, _ := hit.Fields["text"].(string)
		kind, _ := hit.Fields["kind"].(string)
		hash, _ := hit.Fields["hash"].(string)
		if text == "" {
			i.logger.Debug("signature document without text", zap.String("id", hit.ID))
			continue
		}
		results = append(results, Signature{Kind: Kind(kind), Hash: hash, Text: text})
	}
	return results, nil
}

// Lookup returns every signature indexed under hash.
func (i *Index) Lookup(kind Kind, hash string) ([]Signature, error) {
	hashQuery := bleve.NewTermQuery(strings.ToLower(hash))
	hashQuery.SetField("hash")
	kindQuery := bleve.NewTermQuery(string(kind))
	kindQuery.SetField("kind")
	request := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(hashQuery, kindQuery), 20, 0, false)
	return i.hits(request)
}

// Search matches input against signature names, exact words first and
// then within one edit.
func (i *Index) Search(input string, limit int) ([]Signature, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return []Signature{}, nil
	}
	matchQuery := bleve.NewMatchPhraseQuery(input)
	matchQuery.SetField("words")
	fuzzyQuery := bleve.NewFuzzyQuery(input)
	fuzzyQuery.SetField("words")
	fuzzyQuery.Fuzziness = 1
	prefixQuery := bleve.NewPrefixQuery(input)
	prefixQuery.SetField("words")
	query := bleve.NewDisjunctionQuery(matchQuery, fuzzyQuery, prefixQuery)
	return i.hits(bleve.NewSearchRequestOptions(query, limit, 0, false))
}

func (i *Index) resolve(kind Kind, hash string, indexed int) (*contract.Interface, error) {
	sigs, err := i.Lookup(kind, hash)
	if err != nil {
		i.metrics.observe("index", kind, "error")
		return nil, err
	}
	texts := make([]string, 0, len(sigs))
	for _, s := range sigs {
		texts = append(texts, s.Text)
	}
	iface, err := interfaceFromText(kind, texts, indexed)
	if err != nil {
		i.metrics.observe("index", kind, "miss")
		return nil, err
	}
	i.metrics.observe("index", kind, "hit")
	return iface, nil
}

func (i *Index) ResolveFunction(ctx context.Context, selector [4]byte) (*contract.Interface, error) {
	return i.resolve(Function, selectorHex(selector), 0)
}

func (i *Index) ResolveEvent(ctx context.Context, topic common.Hash, indexed int) (*contract.Interface, error) {
	return i.resolve(Event, strings.ToLower(topicHex(topic)), indexed)
}

package indexer

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// fileSummaryDoc is the bleve document shape for one indexed file.
// Grounded on ObservationDocument in internal/memory/bleve_store.go.
type fileSummaryDoc struct {
	Path    string `json:"path"`
	Summary string `json:"summary"`
}

// fullTextIndex is the bleve-backed search half of the indexer, queried
// through Indexer.Search. The generator always receives the full
// codebase_summary; it does not query this index.
type fullTextIndex struct {
	index bleve.Index
}

func newFullTextIndex(path string) (*fullTextIndex, error) {
	var index bleve.Index
	if _, err := os.Stat(path); os.IsNotExist(err) {
		index, err = bleve.New(path, buildFileMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create full-text index at %s: %w", path, err)
		}
	} else {
		index, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open full-text index at %s: %w", path, err)
		}
	}
	return &fullTextIndex{index: index}, nil
}

func buildFileMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	summaryField := bleve.NewTextFieldMapping()
	summaryField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("summary", summaryField)

	pathField := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("path", pathField)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = standard.Name
	return im
}

func (f *fullTextIndex) upsert(relpath, summary string) error {
	if err := f.index.Index(relpath, fileSummaryDoc{Path: relpath, Summary: summary}); err != nil {
		return fmt.Errorf("failed to index %s: %w", relpath, err)
	}
	return nil
}

func (f *fullTextIndex) remove(relpath string) error {
	if err := f.index.Delete(relpath); err != nil {
		return fmt.Errorf("failed to remove %s from full-text index: %w", relpath, err)
	}
	return nil
}

// search returns up to limit relpaths whose summary best matches query.
func (f *fullTextIndex) search(query string, limit int) ([]string, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	result, err := f.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	paths := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		paths = append(paths, hit.ID)
	}
	return paths, nil
}

func (f *fullTextIndex) close() error {
	return f.index.Close()
}

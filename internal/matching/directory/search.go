package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	apperrors "investor-matching/internal/common/errors"
	"investor-matching/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Searcher pages through the startup index in elasticsearch and returns ids.
type Searcher struct {
	client *elasticsearch.Client
	index  string
}

func NewSearcher(client *elasticsearch.Client, index string) *Searcher {
	return &Searcher{client: client, index: index}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string `json:"_id"`
			Source struct {
				ID string `json:"id"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// CandidateIDs returns one page of startup ids, sorted by id.
func (s *Searcher) CandidateIDs(ctx context.Context, f models.CandidateFilter) ([]string, error) {
	body, err := json.Marshal(buildCandidateQuery())
	if err != nil {
		return nil, fmt.Errorf("marshal candidate query: %w", err)
	}

	from, size := f.Offset, f.Limit
	req := esapi.SearchRequest{
		Index:          []string{s.index},
		Body:           bytes.NewReader(body),
		From:           &from,
		Size:           &size,
		SourceIncludes: []string{"id"},
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, apperrors.NewDependencyError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, apperrors.NewDependencyError("elasticsearch",
			fmt.Errorf("search %s: %s: %s", s.index, res.Status(), strings.TrimSpace(string(msg))))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewDependencyError("elasticsearch", fmt.Errorf("decode search response: %w", err))
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id := h.Source.ID
		if id == "" {
			id = h.ID
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func buildCandidateQuery() map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":  []interface{}{map[string]interface{}{"id": "asc"}},
	}
}

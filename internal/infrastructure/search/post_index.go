package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/F1veStar3/postboard/internal/domain/entity"
	"github.com/F1veStar3/postboard/pkg/helpers"
)

const postsMapping = `{
  "mappings": {
    "properties": {
      "id":         {"type": "long"},
      "user_id":    {"type": "long"},
      "content":    {"type": "text"},
      "created_at": {"type": "date"}
    }
  }
}`

const requestTimeout = 3 * time.Second

// PostIndex mirrors posts into an Elasticsearch index for full-text search.
type PostIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewPostIndex(es *elasticsearch.Client, index string) *PostIndex {
	return &PostIndex{es: es, index: index}
}

// EnsureIndex creates the index with its mapping if it is missing.
func (p *PostIndex) EnsureIndex(ctx context.Context) error {
	return helpers.EnsureESIndex(ctx, p.es, p.index, postsMapping)
}

func (p *PostIndex) Index(ctx context.Context, post entity.Post) error {
	b, err := json.Marshal(post)
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req := esapi.IndexRequest{
		Index:      p.index,
		DocumentID: strconv.FormatInt(post.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	res, err := req.Do(c, p.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index post %d: %s", post.ID, res.Status())
	}
	return nil
}

// Delete removes a post document. A missing document is not an error.
func (p *PostIndex) Delete(ctx context.Context, postID int64) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req := esapi.DeleteRequest{Index: p.index, DocumentID: strconv.FormatInt(postID, 10)}
	res, err := req.Do(c, p.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete post %d: %s", postID, res.Status())
	}
	return nil
}

// Search runs a match query on content restricted to userID's posts.
func (p *PostIndex) Search(ctx context.Context, userID int64, q string, size int) ([]entity.Post, error) {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   []any{map[string]any{"match": map[string]any{"content": q}}},
				"filter": []any{map[string]any{"term": map[string]any{"user_id": userID}}},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := p.es.Search(
		p.es.Search.WithContext(c),
		p.es.Search.WithIndex(p.index),
		p.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search posts: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source entity.Post `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.Post, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

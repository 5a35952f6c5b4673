package facility

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"triage-workers/internal/common/errors"
	"triage-workers/internal/models"
)

// maxIndexFacilities bounds a single registry search.
const maxIndexFacilities = 10000

// ElasticsearchSource reads every document of a facility index. Documents use
// the registry field names (name, lat, lng, phone, ambulance_phone) and are
// returned sorted by their "position" field, then by index order.
type ElasticsearchSource struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSource(client *elasticsearch.Client, index string) *ElasticsearchSource {
	if index == "" {
		index = "facilities"
	}
	return &ElasticsearchSource{client: client, index: index}
}

func (s *ElasticsearchSource) Name() string { return "elasticsearch:" + s.index }

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Facility `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchSource) body() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"size":    maxIndexFacilities,
		"query":   map[string]interface{}{"match_all": map[string]interface{}{}},
		"_source": []string{"name", "lat", "lng", "phone", "ambulance_phone"},
		"sort": []interface{}{
			map[string]interface{}{"position": map[string]interface{}{"order": "asc", "unmapped_type": "long"}},
			"_doc",
		},
	})
}

func (s *ElasticsearchSource) Load(ctx context.Context) ([]models.Facility, error) {
	body, err := s.body()
	if err != nil {
		return nil, errors.NewRegistryLoadFailedError(s.Name(), err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, errors.NewIndexNotFoundError(s.index)
	}
	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(s.index, fmt.Errorf("status %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(s.index, err)
	}

	out := make([]models.Facility, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

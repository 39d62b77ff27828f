package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/operator"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/rs/zerolog/log"

	"vectora-backend/config"
	"vectora-backend/internal/dto"
	"vectora-backend/internal/model"
	"vectora-backend/internal/repository"
)

type elasticsearchEventRepository struct {
	esTypedClient *elasticsearch.TypedClient
	indexPrefix   string
}

func NewElasticsearchEventRepository(cfg *config.Config) (repository.EventRepository, error) {
	typedClient, err := elasticsearch.NewTypedClient(clientConfig(cfg))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Typed Elasticsearch Client in Repository")
		return nil, err
	}

	return &elasticsearchEventRepository{
		esTypedClient: typedClient,
		indexPrefix:   cfg.Elasticsearch.EventIndex,
	}, nil
}

func (r *elasticsearchEventRepository) Search(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error) {
	indexPattern := fmt.Sprintf("%s-*", r.indexPrefix)

	res, err := r.esTypedClient.Search().
		Index(indexPattern).
		Request(buildSearchRequest(req)).
		Do(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error executing Elasticsearch search via TypedClient")
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}

	events := make([]model.AnalysisEvent, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		if hit.Source_ == nil {
			continue
		}
		var event model.AnalysisEvent
		if err := json.Unmarshal(hit.Source_, &event); err != nil {
			log.Error().Err(err).Msg("Error unmarshalling Elasticsearch hit source")
			continue
		}
		events = append(events, event)
	}

	var total int64
	if res.Hits.Total != nil {
		total = res.Hits.Total.Value
	}
	response := &dto.EventSearchResponse{
		Events:     events,
		TotalCount: total,
		Page:       req.Page,
		Size:       req.Size,
	}

	log.Debug().Int64("total_hits", response.TotalCount).Int("returned_hits", len(response.Events)).Msg("Elasticsearch search successful")
	return response, nil
}

func buildSearchRequest(req dto.EventSearchRequest) *search.Request {
	startTimeStr := req.StartTime.Format(time.RFC3339)
	endTimeStr := req.EndTime.Format(time.RFC3339)

	filters := []types.Query{{
		Range: map[string]types.RangeQuery{
			"@timestamp": types.DateRangeQuery{
				Gte: &startTimeStr,
				Lte: &endTimeStr,
			},
		},
	}}

	if req.Query != "" {
		filters = append(filters, types.Query{
			QueryString: &types.QueryStringQuery{
				Query:           req.Query,
				Fields:          []string{"question", "error", "analysis"},
				DefaultOperator: &operator.And,
			},
		})
	}

	if len(req.Operators) > 0 {
		terms := make([]types.FieldValue, len(req.Operators))
		for i, op := range req.Operators {
			terms[i] = op
		}
		filters = append(filters, types.Query{
			Terms: &types.TermsQuery{
				TermsQuery: map[string]types.TermsQueryField{
					"operator.keyword": terms,
				},
			},
		})
	}

	if req.Degraded != nil {
		filters = append(filters, types.Query{
			Term: map[string]types.TermQuery{
				"degraded": {Value: *req.Degraded},
			},
		})
	}

	from := (req.Page - 1) * req.Size
	order := sortorder.Desc
	if req.SortOrder == "asc" {
		order = sortorder.Asc
	}

	size := req.Size
	return &search.Request{
		Query: &types.Query{
			Bool: &types.BoolQuery{
				Filter: filters,
			},
		},
		Size: &size,
		From: &from,
		Sort: []types.SortCombinations{
			types.SortOptions{
				SortOptions: map[string]types.FieldSort{
					"@timestamp": {Order: &order},
				},
			},
		},
	}
}

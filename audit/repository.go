// audit/repository.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	helper_util "github.com/dev-mohitbeniwal/echo-cse/util/helper"
)

type Repository interface {
	LogEvent(ctx context.Context, log AuditLog) error
	QueryLogs(ctx context.Context, from, to time.Time, originator, resourceID string) ([]AuditLog, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
	index    string
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL, index string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient, index: index}, nil
}

// LogEvent indexes an audit entry in Elasticsearch.
func (r *ElasticsearchRepository) LogEvent(ctx context.Context, log AuditLog) error {
	data, err := json.Marshal(log)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: uuid.NewString(),
		Body:       strings.NewReader(string(data)),
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}
	return nil
}

// QueryLogs searches the audit entries of a time frame, optionally filtered
// by originator and resource ID.
func (r *ElasticsearchRepository) QueryLogs(ctx context.Context, from, to time.Time, originator, resourceID string) ([]AuditLog, error) {
	must := []interface{}{
		map[string]interface{}{
			"range": map[string]interface{}{
				"timestamp": map[string]interface{}{
					"gte": helper_util.FormatTime(from),
					"lte": helper_util.FormatTime(to),
				},
			},
		},
	}
	if originator != "" {
		must = append(must, map[string]interface{}{"match": map[string]interface{}{"originator": originator}})
	}
	if resourceID != "" {
		must = append(must, map[string]interface{}{"match": map[string]interface{}{"resource_id": resourceID}})
	}
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.index),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching documents: %s", res.String())
	}

	var body struct {
		Hits struct {
			Hits []struct {
				Source AuditLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, err
	}

	logs := make([]AuditLog, len(body.Hits.Hits))
	for i, hit := range body.Hits.Hits {
		logs[i] = hit.Source
	}
	return logs, nil
}

// LogRepository writes audit entries to the application log. It serves
// nodes running without Elasticsearch and cannot be queried.
type LogRepository struct{}

func NewLogRepository() *LogRepository {
	return &LogRepository{}
}

func (r *LogRepository) LogEvent(ctx context.Context, log AuditLog) error {
	logger.Info("Audit",
		zap.String("event", log.Event),
		zap.String("originator", log.Originator),
		zap.String("operation", log.Operation),
		zap.String("resourceID", log.ResourceID),
		zap.String("resourceType", log.ResourceType),
		zap.Bool("accessGranted", log.AccessGranted),
		zap.String("detail", log.Detail))
	return nil
}

func (r *LogRepository) QueryLogs(ctx context.Context, from, to time.Time, originator, resourceID string) ([]AuditLog, error) {
	return nil, fmt.Errorf("audit log queries need Elasticsearch")
}

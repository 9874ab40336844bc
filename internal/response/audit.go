package response

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/stayops-systems/sentinel/internal/models"
)

// AuditConfig configures the OpenSearch response audit sink.
type AuditConfig struct {
	URL      string
	Username string
	Password string
	Insecure bool
	// IndexPrefix is the base index name; documents land in
	// <prefix>-YYYY.MM so old months can be retired wholesale.
	IndexPrefix string
}

// OpenSearchAudit appends response results to a dated OpenSearch index.
// The audit trail is append-only; there is no update or delete path.
type OpenSearchAudit struct {
	client *opensearch.Client
	prefix string
	now    func() time.Time
}

// NewOpenSearchAudit connects to OpenSearch and verifies the cluster is
// reachable.
func NewOpenSearchAudit(cfg AuditConfig) (*OpenSearchAudit, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()
	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	prefix := cfg.IndexPrefix
	if prefix == "" {
		prefix = "sentinel-response-audit"
	}
	return &OpenSearchAudit{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// Append indexes one response result.
func (a *OpenSearchAudit) Append(ctx context.Context, result *models.AutomatedResponseResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal response result: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: fmt.Sprintf("%s-%s", a.prefix, a.now().UTC().Format("2006.01")),
		Body:  bytes.NewReader(data),
	}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return fmt.Errorf("failed to index response result: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("opensearch rejected response result: %s", res.Status())
	}
	return nil
}

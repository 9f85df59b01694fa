package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	pdp_model "github.com/dev-mohitbeniwal/echo-cse/pdp/model"
)

// HTTPConsultant posts a ConsultationRequest to each point of access of a
// DAC until one answers.
type HTTPConsultant struct {
	client *http.Client
}

func NewHTTPConsultant(timeout time.Duration) *HTTPConsultant {
	return &HTTPConsultant{client: &http.Client{Timeout: timeout}}
}

func (c *HTTPConsultant) Consult(ctx context.Context, dac *model.Resource, request *pdp_model.AccessRequest) (bool, error) {
	payload, err := json.Marshal(pdp_model.ConsultationRequest{
		Originator: request.Originator,
		Operation:  request.Operation.String(),
		TargetID:   request.Target.ID,
		DACID:      dac.ResourceID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode consultation: %w", err)
	}

	var lastErr error
	for _, poa := range dac.DynamicAuthorizationPoA {
		granted, err := c.post(ctx, poa, payload)
		if err == nil {
			return granted, nil
		}
		logger.Debug("Point of access did not answer", zap.String("poa", poa), zap.Error(err))
		lastErr = err
	}
	return false, lastErr
}

func (c *HTTPConsultant) post(ctx context.Context, url string, payload []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("consultation returned HTTP %d", resp.StatusCode)
	}

	var verdict pdp_model.ConsultationResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return false, fmt.Errorf("failed to decode consultation verdict: %w", err)
	}
	return verdict.Granted, nil
}

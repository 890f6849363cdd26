package render

import (
	"context"
	"fmt"
	"net/http"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/qualichat/qc-backend/internal/config"
	"github.com/qualichat/qc-backend/internal/entity"
	"github.com/qualichat/qc-backend/internal/integration/common"
	"github.com/qualichat/qc-backend/pkg/httpclient"
	"go.uber.org/zap"
)

// Connector talks to the external chart rendering service. The service
// takes a chart descriptor and returns a base64-encoded image.
type Connector struct {
	config    config.RenderConnectorConfig
	connector *httpclient.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.RenderConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// RenderChart renders a chart descriptor into an image. Transient
// failures are retried; client errors (4xx) are not.
func (c *Connector) RenderChart(ctx context.Context, desc *entity.ChartDescriptor) (*entity.RenderedChart, error) {
	ctxzap.Info(ctx, "rendering chart via render service",
		zap.String("kind", string(desc.Kind)),
		zap.Int("points", len(desc.Values)),
	)

	var resp entity.RenderedChart
	err := retry.Do(
		func() error {
			return c.connector.DoRequest(ctx, http.MethodPost, c.config.RenderEndpoint, desc, &resp)
		},
		append(
			c.config.Retry.ToRetryOptions(),
			retry.Context(ctx),
			retry.RetryIf(isRetryable),
			retry.LastErrorOnly(true),
		)...,
	)
	if err != nil {
		return nil, fmt.Errorf("render chart failed: %w", err)
	}

	if resp.ImageBase64 == "" {
		return nil, fmt.Errorf("invalid render response: empty image")
	}

	ctxzap.Info(ctx, "chart rendered successfully", zap.Int("image_length", len(resp.ImageBase64)))

	return &resp, nil
}

func isRetryable(err error) bool {
	if httpErr, ok := err.(*httpclient.HTTPError); ok {
		return httpErr.StatusCode >= http.StatusInternalServerError
	}
	// Network-level errors are always worth another attempt.
	return true
}

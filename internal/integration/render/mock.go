package render

import (
	"context"
	"encoding/base64"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/qualichat/qc-backend/internal/entity"
	"go.uber.org/zap"
)

// MockConnector returns a fixed placeholder image instead of calling
// the render service. Used in local development and tests.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

// placeholderPNG is a valid 1x1 transparent PNG.
var placeholderPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

func (m *MockConnector) RenderChart(ctx context.Context, desc *entity.ChartDescriptor) (*entity.RenderedChart, error) {
	ctxzap.Info(ctx, "[MOCK] rendering chart",
		zap.String("kind", string(desc.Kind)),
		zap.Int("points", len(desc.Values)),
	)

	return &entity.RenderedChart{
		ImageBase64: base64.StdEncoding.EncodeToString(placeholderPNG),
		ContentType: "image/png",
	}, nil
}

package chat

import (
	"context"

	"github.com/qualichat/qc-backend/internal/entity"
)

// RenderConnector renders chart descriptors into images via the
// external chart service.
type RenderConnector interface {
	RenderChart(ctx context.Context, desc *entity.ChartDescriptor) (*entity.RenderedChart, error)
}

package entity

import "fmt"

// ChartKind selects the chart shape requested by the user.
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartPie     ChartKind = "pie"
	ChartLine    ChartKind = "line"
	ChartScatter ChartKind = "scatter"
)

func (k ChartKind) Validate() error {
	switch k {
	case ChartBar, ChartPie, ChartLine, ChartScatter:
		return nil
	default:
		return fmt.Errorf("unknown chart kind: %s", k)
	}
}

// ChartDescriptor is a renderer-agnostic chart request. Labels and
// Values are positionally aligned and always the same length.
type ChartDescriptor struct {
	Kind   ChartKind `json:"kind"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Title  string    `json:"title"`
}

// RenderedChart is the opaque image returned by the external chart
// rendering service. The backend never inspects the bytes.
type RenderedChart struct {
	ImageBase64 string `json:"image_base64"`
	ContentType string `json:"content_type"`
}

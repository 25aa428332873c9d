package charts

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

// Сколько последних переводов попадает на график
const maxBars = 10

// ChartGenerator генерирует графики по переводам
type ChartGenerator struct{}

// NewChartGenerator создает новый генератор графиков
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{}
}

// barColor - входящие переводы зеленые, исходящие красные
func barColor(t *model.Transfer) drawing.Color {
	switch strings.ToLower(t.Type) {
	case "deposit", "receive":
		return chart.ColorGreen
	default:
		return chart.ColorRed
	}
}

// GenerateTransferHistory создает столбчатую диаграмму последних переводов.
// transfers ожидаются отсортированными от новых к старым.
func (g *ChartGenerator) GenerateTransferHistory(transfers []model.Transfer) ([]byte, error) {
	// Нечего рисовать
	if len(transfers) == 0 {
		return nil, nil
	}
	if len(transfers) > maxBars {
		transfers = transfers[:maxBars]
	}

	// На графике слева направо от старых к новым
	bars := make([]chart.Value, 0, len(transfers))
	top := 0.0
	for i := len(transfers) - 1; i >= 0; i-- {
		t := &transfers[i]
		amount := model.FromFixedPoint(t.Amount).InexactFloat64()
		if amount > top {
			top = amount
		}
		color := barColor(t)
		bars = append(bars, chart.Value{
			Label: t.CreatedAt.Format("02.01"),
			Value: amount,
			Style: chart.Style{
				StrokeColor: color,
				FillColor:   color,
				FontSize:    12,
				FontColor:   chart.ColorBlack,
			},
		})
	}
	// Диапазон оси не может быть нулевым
	if top <= 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title: "Recent Transfers",
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    1200,
		Height:   600,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.2f", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render transfer history chart: %w", err)
	}

	return buffer.Bytes(), nil
}

package request

import (
	"context"
	"math"
	"time"
)

const (
	defaultWindowDays = 30
	maxWindowDays     = 365
	trendMonths       = 6
)

var priceBuckets = []struct {
	label string
	upTo  float64
}{
	{"0-100", 100},
	{"101-250", 250},
	{"251-500", 500},
	{"501-1000", 1000},
	{"1001-2000", 2000},
	{"2000+", math.Inf(1)},
}

// PriceComparison summarises quotes given on requests of an issue type
// posted in the last days, plus a monthly trend over the last six months.
// A positive candidate amount is rated against the average.
func (s *Service) PriceComparison(ctx context.Context, issueType string, days int, candidate float64) (*PriceComparison, error) {
	if days <= 0 {
		days = defaultWindowDays
	}
	if days > maxWindowDays || candidate < 0 {
		return nil, ErrInvalidRequest
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)
	points, err := s.quotes.PricePoints(ctx, issueType, since)
	if err != nil {
		return nil, err
	}

	out := &PriceComparison{
		IssueType: issueType,
		Since:     since,
		Count:     len(points),
		Buckets:   make([]PriceBucket, len(priceBuckets)),
	}
	for i, b := range priceBuckets {
		out.Buckets[i].Label = b.label
	}

	var sum float64
	for _, p := range points {
		sum += p.Amount
		for i, b := range priceBuckets {
			if p.Amount <= b.upTo {
				out.Buckets[i].Count++
				break
			}
		}
	}

	// The trend always spans the last six calendar months, independent of
	// the statistics window.
	months := make(map[string]*PriceTrendPoint, trendMonths)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := trendMonths - 1; i >= 0; i-- {
		key := monthStart.AddDate(0, -i, 0).Format("2006-01")
		months[key] = &PriceTrendPoint{Month: key}
		out.Trend = append(out.Trend, PriceTrendPoint{Month: key})
	}
	trendPoints, err := s.quotes.PricePoints(ctx, issueType, monthStart.AddDate(0, -(trendMonths-1), 0))
	if err != nil {
		return nil, err
	}
	for _, p := range trendPoints {
		if m, ok := months[p.CreatedAt.UTC().Format("2006-01")]; ok {
			m.Count++
			m.Average += p.Amount
		}
	}
	for i := range out.Trend {
		m := months[out.Trend[i].Month]
		if m.Count > 0 {
			out.Trend[i] = PriceTrendPoint{Month: m.Month, Count: m.Count, Average: round2(m.Average / float64(m.Count))}
		}
	}

	if n := len(points); n > 0 {
		out.Min = points[0].Amount
		out.Max = points[n-1].Amount
		out.Average = round2(sum / float64(n))
		if n%2 == 1 {
			out.Median = points[n/2].Amount
		} else {
			out.Median = round2((points[n/2-1].Amount + points[n/2].Amount) / 2)
		}
	}

	if candidate > 0 && out.Count > 0 {
		switch {
		case candidate < out.Average*0.8:
			out.Verdict = "below_average"
		case candidate > out.Average*1.2:
			out.Verdict = "above_average"
		default:
			out.Verdict = "average"
		}
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

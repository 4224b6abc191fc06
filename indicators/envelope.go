package indicators

import "math"

// Band is one point of the volatility envelope.
type Band struct {
	Middle float64 `json:"middle"`
	Upper  float64 `json:"upper"`
	Lower  float64 `json:"lower"`
	Ready  bool    `json:"ready"`
}

// Envelope computes a moving average with bands at width standard
// deviations (population) over the trailing window. The first window-1
// points are not Ready.
func Envelope(values []float64, window int, width float64) []Band {
	out := make([]Band, len(values))
	if window <= 0 || len(values) < window {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}
		ma := sum / float64(window)

		sumSq := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - ma
			sumSq += d * d
		}
		sd := math.Sqrt(sumSq / float64(window))

		out[i] = Band{
			Middle: ma,
			Upper:  ma + width*sd,
			Lower:  ma - width*sd,
			Ready:  true,
		}
	}
	return out
}

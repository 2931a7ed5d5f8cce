package filter

// ema returns the exponential moving average of values over period, seeded
// with the simple average of the first period values. ok is false when
// there are fewer than period values.
func ema(values []float64, period int) (v float64, ok bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for _, x := range values[:period] {
		sum += x
	}
	v = sum / float64(period)
	k := 2.0 / float64(period+1)
	for _, x := range values[period:] {
		v = x*k + v*(1-k)
	}
	return v, true
}

package mapstore

import "sort"

// floatLike restricts the derived-operations helpers to the float element
// types actually used for arithmetic combinators (the integer series such
// as block counts are only ever summed/windowed, never divided).
type floatLike interface{ ~float32 | ~float64 }

// AddHeight returns the elementwise sum of two equal-length height series.
func AddHeight[T floatLike](a, b []T) []T { return combine(a, b, func(x, y T) T { return x + y }) }

// SubHeight returns the elementwise difference a-b. Subtraction of series of
// different lengths is a programming error and panics, matching the source
// semantics ("subtraction of maps of different lengths is a programming
// error").
func SubHeight[T floatLike](a, b []T) []T {
	if len(a) != len(b) {
		panic("mapstore: subtract series of different lengths")
	}
	return combine(a, b, func(x, y T) T { return x - y })
}

// MulHeight returns the elementwise product of two equal-length series.
func MulHeight[T floatLike](a, b []T) []T { return combine(a, b, func(x, y T) T { return x * y }) }

// DivHeight returns the elementwise quotient a/b. Division by zero yields
// the type default (zero), not an error or NaN.
func DivHeight[T floatLike](a, b []T) []T {
	return combine(a, b, func(x, y T) T {
		if y == 0 {
			var zero T
			return zero
		}
		return x / y
	})
}

func combine[T floatLike](a, b []T, op func(x, y T) T) []T {
	if len(a) != len(b) {
		panic("mapstore: combine series of different lengths")
	}
	out := make([]T, len(a))
	for i := range a {
		out[i] = op(a[i], b[i])
	}
	return out
}

// CumulativeSum returns the running total of series.
func CumulativeSum[T floatLike](series []T) []T {
	out := make([]T, len(series))
	var sum T
	for i, v := range series {
		sum += v
		out[i] = sum
	}
	return out
}

// LastXSum returns, for each index k, the sum over [k-window+1, k]
// (inclusive), or the type default while k < window-1 (fewer than `window`
// values up to and including k).
func LastXSum[T floatLike](series []T, window int) []T {
	out := make([]T, len(series))
	var running T
	for i, v := range series {
		running += v
		if i >= window {
			running -= series[i-window]
		}
		if i >= window-1 {
			out[i] = running
		}
	}
	return out
}

// SimpleMovingAverage returns, for each index k, the mean over
// [k-window+1, k] (inclusive); positions before sufficient history yield
// the type default. This fixes the dropped-subtraction bug present in the
// reference implementation's insert_simple_average (it omitted subtracting
// the value falling out of the window).
func SimpleMovingAverage[T floatLike](series []T, window int) []T {
	out := make([]T, len(series))
	var running T
	for i, v := range series {
		running += v
		if i >= window {
			running -= series[i-window]
		}
		if i >= window-1 {
			out[i] = running / T(window)
		}
	}
	return out
}

// NetChange returns series[k] - series[k-offset]; positions before offset
// yield the type default.
func NetChange[T floatLike](series []T, offset int) []T {
	out := make([]T, len(series))
	for i := range series {
		if i >= offset {
			out[i] = series[i] - series[i-offset]
		}
	}
	return out
}

// Median returns, for each index k, the median over [k-window+1, k]
// (inclusive); positions before sufficient history yield the type default.
func Median[T floatLike](series []T, window int) []T {
	out := make([]T, len(series))
	buf := make([]T, window)
	for i := range series {
		if i < window-1 {
			continue
		}
		copy(buf, series[i-window+1:i+1])
		sort.Slice(buf, func(a, b int) bool { return buf[a] < buf[b] })
		if window%2 == 1 {
			out[i] = buf[window/2]
		} else {
			out[i] = (buf[window/2-1] + buf[window/2]) / 2
		}
	}
	return out
}

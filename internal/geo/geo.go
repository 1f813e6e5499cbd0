// Package geo provides the small set of geographic and statistical
// primitives the kernels in internal/kernel are built from: great-circle
// distance, bearing, weighted Pearson correlation, and z-scoring. These are
// hand-rolled rather than imported from a stats library — no package in the
// retrieved corpus depends on one for this kind of lightweight numeric work;
// the nearest analogue, airquality.Interpolator's inverse-distance
// weighting, hand-rolls its own haversine distance too (see DESIGN.md).
package geo

import "math"

const earthRadiusKm = 6371.0088

// Coordinate is a WGS84 lat/lon pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKm(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// BearingDegrees returns the initial compass bearing in degrees [0,360)
// from a to b.
func BearingDegrees(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	theta := math.Atan2(y, x) * 180 / math.Pi

	return math.Mod(theta+360, 360)
}

// RoundTo1Km rounds a coordinate to roughly 1km precision (~0.01 degrees),
// used as the spatial component of LocationStats and scheduler bucket keys.
func RoundTo1Km(c Coordinate) Coordinate {
	const precision = 100.0 // 1/0.01
	return Coordinate{
		Lat: math.Round(c.Lat*precision) / precision,
		Lon: math.Round(c.Lon*precision) / precision,
	}
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation of xs, floored at eps to
// avoid divide-by-zero downstream in z-scoring.
func StdDev(xs []float64, eps float64) float64 {
	if len(xs) < 2 {
		return eps
	}
	m := Mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(xs)))
	if std < eps {
		return eps
	}
	return std
}

// WeightedMean returns the weighted mean of xs with weights ws (same
// length), or 0 if the total weight is zero.
func WeightedMean(xs, ws []float64) float64 {
	var sumW, sumWX float64
	for i, x := range xs {
		sumW += ws[i]
		sumWX += ws[i] * x
	}
	if sumW == 0 {
		return 0
	}
	return sumWX / sumW
}

// WeightedStdDev returns the weighted population standard deviation of xs
// with weights ws, floored at eps.
func WeightedStdDev(xs, ws []float64, eps float64) float64 {
	if len(xs) < 2 {
		return eps
	}
	m := WeightedMean(xs, ws)
	var sumW, sumWSq float64
	for i, x := range xs {
		d := x - m
		sumW += ws[i]
		sumWSq += ws[i] * d * d
	}
	if sumW == 0 {
		return eps
	}
	std := math.Sqrt(sumWSq / sumW)
	if std < eps {
		return eps
	}
	return std
}

// ZScore returns (value-mean)/std, with std already assumed floored by the
// caller (LocationStats always stores a floored std).
func ZScore(value, mean, std float64) float64 {
	return (value - mean) / std
}

// WeightedPearson computes the weighted Pearson correlation coefficient
// between xs and ys using per-sample weights ws (all same length, weights
// need not be pre-normalized). Edge cases, per §4.4.6 of the spec:
//   - both series have zero variance: correlation is defined as 1 (perfect
//     agreement on "no signal")
//   - exactly one has zero variance: correlation is defined as -1, which
//     the caller maps to a similarity score of 0 (the variable carries no
//     usable signal — see kernel.weatherSimilarity)
func WeightedPearson(xs, ys, ws []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}

	mx := WeightedMean(xs, ws)
	my := WeightedMean(ys, ws)

	var sumW, covXY, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		dy := ys[i] - my
		sumW += ws[i]
		covXY += ws[i] * dx * dy
		varX += ws[i] * dx * dx
		varY += ws[i] * dy * dy
	}
	if sumW == 0 {
		return 0
	}

	const zeroVarEps = 1e-9
	xZero := varX < zeroVarEps
	yZero := varY < zeroVarEps
	switch {
	case xZero && yZero:
		return 1
	case xZero != yZero:
		return -1
	}

	denom := math.Sqrt(varX * varY)
	if denom == 0 {
		return 0
	}
	return covXY / denom
}

// NormalizedWeights returns ws scaled so they sum to 1. An all-zero input
// returns a uniform distribution.
func NormalizedWeights(ws []float64) []float64 {
	var sum float64
	for _, w := range ws {
		sum += w
	}
	out := make([]float64, len(ws))
	if sum == 0 {
		if len(ws) == 0 {
			return out
		}
		uniform := 1.0 / float64(len(ws))
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i, w := range ws {
		out[i] = w / sum
	}
	return out
}

// CyclicalMonthDistance returns the shortest distance in months between m
// and ref, both 1-indexed (1=January), wrapping around the 12-month cycle.
// Always in [0,6].
func CyclicalMonthDistance(m, ref int) int {
	d := m - ref
	if d < 0 {
		d = -d
	}
	if d > 6 {
		d = 12 - d
	}
	return d
}

package animation

import "math"

// Easing curves take a progress value and clamp it into [0, 1] first.

func EaseOutCubic(x float64) float64 {
	x = clamp01(x)
	return 1 - pow(1-x, 3)
}

func EaseOutQuart(x float64) float64 {
	x = clamp01(x)
	return 1 - pow(1-x, 4)
}

func EaseInOutCubic(x float64) float64 {
	x = clamp01(x)
	if x < 0.5 {
		return 4 * x * x * x
	}
	return 1 - pow(-2*x+2, 3)/2
}

// EaseOutBack overshoots slightly past 1 before settling.
func EaseOutBack(x float64) float64 {
	x = clamp01(x)
	const c1 = 1.70158
	const c3 = c1 + 1
	return 1 + c3*pow(x-1, 3) + c1*pow(x-1, 2)
}

// SmoothSin is the idle-motion primitive shared by every preset.
func SmoothSin(t, frequency, amplitude float64) float64 {
	return math.Sin(t*frequency) * amplitude
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}

// Package easing implements the classic Penner easing curves.
//
// Every curve has the signature f(t, b, c, d) where t is the elapsed time,
// b the start value, c the total change and d the duration. For t in [0, d]
// the curves satisfy f(0) == b and f(d) == b + c; outside that range the
// result is unspecified.
//
// All functions are pure and safe for concurrent use.
package easing

import "math"

// Func maps elapsed time t to a value between b and b+c over duration d.
type Func func(t, b, c, d float64) float64

// backOvershoot is the default overshoot used by the Back family (10%).
const backOvershoot = 1.70158

func Linear(t, b, c, d float64) float64 {
	return c*t/d + b
}

func InQuad(t, b, c, d float64) float64 {
	t /= d
	return c*t*t + b
}

func OutQuad(t, b, c, d float64) float64 {
	t /= d
	return -c*t*(t-2) + b
}

func InOutQuad(t, b, c, d float64) float64 {
	t /= d / 2
	if t < 1 {
		return c/2*t*t + b
	}
	t--
	return -c/2*(t*(t-2)-1) + b
}

func InCubic(t, b, c, d float64) float64 {
	t /= d
	return c*t*t*t + b
}

func OutCubic(t, b, c, d float64) float64 {
	t = t/d - 1
	return c*(t*t*t+1) + b
}

func InOutCubic(t, b, c, d float64) float64 {
	t /= d / 2
	if t < 1 {
		return c/2*t*t*t + b
	}
	t -= 2
	return c/2*(t*t*t+2) + b
}

func InQuart(t, b, c, d float64) float64 {
	t /= d
	return c*t*t*t*t + b
}

func OutQuart(t, b, c, d float64) float64 {
	t = t/d - 1
	return -c*(t*t*t*t-1) + b
}

func InOutQuart(t, b, c, d float64) float64 {
	t /= d / 2
	if t < 1 {
		return c/2*t*t*t*t + b
	}
	t -= 2
	return -c/2*(t*t*t*t-2) + b
}

func InQuint(t, b, c, d float64) float64 {
	t /= d
	return c*t*t*t*t*t + b
}

// OutQuint decelerates sharply towards the target. It is the curve used for
// brightness transitions unless configured otherwise.
func OutQuint(t, b, c, d float64) float64 {
	t = t/d - 1
	return c*(t*t*t*t*t+1) + b
}

func InOutQuint(t, b, c, d float64) float64 {
	t /= d / 2
	if t < 1 {
		return c/2*t*t*t*t*t + b
	}
	t -= 2
	return c/2*(t*t*t*t*t+2) + b
}

func InSine(t, b, c, d float64) float64 {
	return -c*math.Cos(t/d*(math.Pi/2)) + c + b
}

func OutSine(t, b, c, d float64) float64 {
	return c*math.Sin(t/d*(math.Pi/2)) + b
}

func InOutSine(t, b, c, d float64) float64 {
	return -c/2*(math.Cos(math.Pi*t/d)-1) + b
}

func InExpo(t, b, c, d float64) float64 {
	if t == 0 {
		return b
	}
	return c*math.Pow(2, 10*(t/d-1)) + b
}

func OutExpo(t, b, c, d float64) float64 {
	if t == d {
		return b + c
	}
	return c*(-math.Pow(2, -10*t/d)+1) + b
}

func InOutExpo(t, b, c, d float64) float64 {
	if t == 0 {
		return b
	}
	if t == d {
		return b + c
	}
	t /= d / 2
	if t < 1 {
		return c/2*math.Pow(2, 10*(t-1)) + b
	}
	t--
	return c/2*(-math.Pow(2, -10*t)+2) + b
}

func InCirc(t, b, c, d float64) float64 {
	t /= d
	return -c*(math.Sqrt(1-t*t)-1) + b
}

func OutCirc(t, b, c, d float64) float64 {
	t = t/d - 1
	return c*math.Sqrt(1-t*t) + b
}

func InOutCirc(t, b, c, d float64) float64 {
	t /= d / 2
	if t < 1 {
		return -c/2*(math.Sqrt(1-t*t)-1) + b
	}
	t -= 2
	return c/2*(math.Sqrt(1-t*t)+1) + b
}

// elasticShift returns amplitude and phase shift for the elastic family.
// The amplitude is always the full change c; a negative c keeps its sign and
// takes a quarter-period shift.
func elasticShift(c, p float64) (a, s float64) {
	a = c
	if a < math.Abs(c) {
		return a, p / 4
	}
	return a, p / (2 * math.Pi) * math.Asin(c/a)
}

func InElastic(t, b, c, d float64) float64 {
	if t == 0 || c == 0 {
		return b
	}
	t /= d
	if t == 1 {
		return b + c
	}
	p := d * 0.3
	a, s := elasticShift(c, p)
	t--
	return -(a * math.Pow(2, 10*t) * math.Sin((t*d-s)*(2*math.Pi)/p)) + b
}

func OutElastic(t, b, c, d float64) float64 {
	if t == 0 || c == 0 {
		return b
	}
	t /= d
	if t == 1 {
		return b + c
	}
	p := d * 0.3
	a, s := elasticShift(c, p)
	return a*math.Pow(2, -10*t)*math.Sin((t*d-s)*(2*math.Pi)/p) + c + b
}

func InOutElastic(t, b, c, d float64) float64 {
	if t == 0 || c == 0 {
		return b
	}
	t /= d / 2
	if t == 2 {
		return b + c
	}
	p := d * (0.3 * 1.5)
	a, s := elasticShift(c, p)
	if t < 1 {
		t--
		return -0.5*(a*math.Pow(2, 10*t)*math.Sin((t*d-s)*(2*math.Pi)/p)) + b
	}
	t--
	return a*math.Pow(2, -10*t)*math.Sin((t*d-s)*(2*math.Pi)/p)*0.5 + c + b
}

func InBack(t, b, c, d float64) float64 {
	s := backOvershoot
	t /= d
	return c*t*t*((s+1)*t-s) + b
}

func OutBack(t, b, c, d float64) float64 {
	s := backOvershoot
	t = t/d - 1
	return c*(t*t*((s+1)*t+s)+1) + b
}

func InOutBack(t, b, c, d float64) float64 {
	s := backOvershoot * 1.525
	t /= d / 2
	if t < 1 {
		return c/2*(t*t*((s+1)*t-s)) + b
	}
	t -= 2
	return c/2*(t*t*((s+1)*t+s)+2) + b
}

func InBounce(t, b, c, d float64) float64 {
	return c - OutBounce(d-t, 0, c, d) + b
}

func OutBounce(t, b, c, d float64) float64 {
	t /= d
	switch {
	case t < 1/2.75:
		return c*(7.5625*t*t) + b
	case t < 2/2.75:
		t -= 1.5 / 2.75
		return c*(7.5625*t*t+0.75) + b
	case t < 2.5/2.75:
		t -= 2.25 / 2.75
		return c*(7.5625*t*t+0.9375) + b
	default:
		t -= 2.625 / 2.75
		return c*(7.5625*t*t+0.984375) + b
	}
}

func InOutBounce(t, b, c, d float64) float64 {
	if t < d/2 {
		return InBounce(t*2, 0, c, d)*0.5 + b
	}
	return OutBounce(t*2-d, 0, c, d)*0.5 + c*0.5 + b
}

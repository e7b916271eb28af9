package fbank

import "math"

// spectrum computes power spectra of real frames of a fixed power-of-two
// size n. A frame is packed into an n/2 point complex transform and the
// result is split back into the n/2+1 non-negative frequency bins.
//
// A spectrum is immutable after newSpectrum; callers bring their own
// scratch buffers.
type spectrum struct {
	n   int
	rev []int     // bit-reversal permutation of the half-size transform
	twr []float64 // cos(-2*pi*j/(n/2)), j < n/4
	twi []float64
	spr []float64 // cos(-2*pi*k/n), k <= n/2
	spi []float64
}

func newSpectrum(n int) *spectrum {
	m := n / 2
	s := &spectrum{
		n:   n,
		rev: make([]int, m),
		twr: make([]float64, m/2),
		twi: make([]float64, m/2),
		spr: make([]float64, m+1),
		spi: make([]float64, m+1),
	}
	bits := 0
	for 1<<bits < m {
		bits++
	}
	for i := range s.rev {
		r := 0
		for b := 0; b < bits; b++ {
			if i&(1<<b) != 0 {
				r |= 1 << (bits - 1 - b)
			}
		}
		s.rev[i] = r
	}
	for j := range s.twr {
		a := -2 * math.Pi * float64(j) / float64(m)
		s.twr[j], s.twi[j] = math.Cos(a), math.Sin(a)
	}
	for k := range s.spr {
		a := -2 * math.Pi * float64(k) / float64(n)
		s.spr[k], s.spi[k] = math.Cos(a), math.Sin(a)
	}
	return s
}

// bins returns the number of power values produced per frame.
func (s *spectrum) bins() int { return s.n/2 + 1 }

// power writes |X[k]|^2 for k in [0, n/2] of the real frame into out.
// re and im are scratch buffers of length n/2.
func (s *spectrum) power(frame, re, im, out []float64) {
	m := s.n / 2
	for i, r := range s.rev {
		re[r] = frame[2*i]
		im[r] = frame[2*i+1]
	}

	for size := 2; size <= m; size <<= 1 {
		half := size >> 1
		step := m / size
		for start := 0; start < m; start += size {
			for k := 0; k < half; k++ {
				wr, wi := s.twr[k*step], s.twi[k*step]
				u, v := start+k, start+k+half
				xr := wr*re[v] - wi*im[v]
				xi := wr*im[v] + wi*re[v]
				re[v], im[v] = re[u]-xr, im[u]-xi
				re[u] += xr
				im[u] += xi
			}
		}
	}

	// Split the packed transform: even samples sit in the real part,
	// odd samples in the imaginary part.
	for k := 0; k <= m; k++ {
		a, b := re[k%m], im[k%m]
		c, d := re[(m-k)%m], im[(m-k)%m]
		er, ei := (a+c)/2, (b-d)/2
		or, oi := (b+d)/2, (c-a)/2
		xr := er + s.spr[k]*or - s.spi[k]*oi
		xi := ei + s.spr[k]*oi + s.spi[k]*or
		out[k] = xr*xr + xi*xi
	}
}

package feedforward

import "math"

// adam implements the Adam update rule with bias correction over one
// parameter group. Sparse groups (the embedding table) share the group's
// timestep but only touch the moments of updated indices.
type adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64

	t int
	m []float64
	v []float64
}

func newAdam(lr float64, size int) *adam {
	return &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-7,
		m:     make([]float64, size),
		v:     make([]float64, size),
	}
}

// step advances the timestep. Call once per batch, before apply.
func (a *adam) step() {
	a.t++
}

// rate returns the bias-corrected learning rate for the current timestep.
func (a *adam) rate() float64 {
	t := float64(a.t)
	return a.lr * math.Sqrt(1-math.Pow(a.beta2, t)) / (1 - math.Pow(a.beta1, t))
}

// apply updates params[offset:offset+len(grads)] in place.
func (a *adam) apply(params, grads []float64, offset int) {
	lr := a.rate()
	for i, g := range grads {
		j := offset + i
		a.m[j] = a.beta1*a.m[j] + (1-a.beta1)*g
		a.v[j] = a.beta2*a.v[j] + (1-a.beta2)*g*g
		params[j] -= lr * a.m[j] / (math.Sqrt(a.v[j]) + a.eps)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classifier

import (
	"math"
	"math/rand/v2"
)

type activation string

const (
	activationReLU    activation = "relu"
	activationSigmoid activation = "sigmoid"
)

// probEpsilon clips probabilities before taking logarithms.
const probEpsilon = 1e-7

// layerSpec describes one dense layer of the topology.
type layerSpec struct {
	Units      int
	Activation activation
	L2         float64
	Dropout    float64
}

// topology is the fixed architecture: three ReLU hidden layers and a
// sigmoid output. L2 and dropout apply to the first two hidden layers.
var topology = []layerSpec{
	{Units: 64, Activation: activationReLU, L2: 0.01, Dropout: 0.2},
	{Units: 32, Activation: activationReLU, L2: 0.01, Dropout: 0.2},
	{Units: 16, Activation: activationReLU},
	{Units: 1, Activation: activationSigmoid},
}

// dense is a fully connected layer. W is row-major with one row of In
// weights per output unit.
type dense struct {
	In, Out    int
	W, B       []float64
	Activation activation
	L2         float64
	Dropout    float64
}

func (l *dense) activate(z float64) float64 {
	if l.Activation == activationSigmoid {
		return sigmoid(z)
	}
	return math.Max(0, z)
}

// network is a feed-forward stack of dense layers with a single output.
type network struct {
	layers []*dense
}

// newNetwork builds a network with Glorot-uniform weights and zero biases.
func newNetwork(inputDim int, specs []layerSpec, rng *rand.Rand) *network {
	n := &network{}
	in := inputDim
	for _, s := range specs {
		l := &dense{
			In:         in,
			Out:        s.Units,
			W:          make([]float64, in*s.Units),
			B:          make([]float64, s.Units),
			Activation: s.Activation,
			L2:         s.L2,
			Dropout:    s.Dropout,
		}
		limit := math.Sqrt(6 / float64(in+s.Units))
		for i := range l.W {
			l.W[i] = (rng.Float64()*2 - 1) * limit
		}
		n.layers = append(n.layers, l)
		in = s.Units
	}
	return n
}

func (n *network) inputDim() int {
	return n.layers[0].In
}

// predict runs an inference forward pass; dropout is disabled.
func (n *network) predict(x []float64) float64 {
	a := x
	for _, l := range n.layers {
		next := make([]float64, l.Out)
		for o := 0; o < l.Out; o++ {
			z := l.B[o]
			row := l.W[o*l.In : (o+1)*l.In]
			for i, xi := range a {
				z += row[i] * xi
			}
			next[o] = l.activate(z)
		}
		a = next
	}
	return a[0]
}

// l2Penalty is the regularization term added to the loss.
func (n *network) l2Penalty() float64 {
	var sum float64
	for _, l := range n.layers {
		if l.L2 == 0 {
			continue
		}
		var sq float64
		for _, w := range l.W {
			sq += w * w
		}
		sum += l.L2 * sq
	}
	return sum
}

// params returns every trainable tensor in a fixed order, matching
// newGradients and the optimizer slots.
func (n *network) params() [][]float64 {
	out := make([][]float64, 0, 2*len(n.layers))
	for _, l := range n.layers {
		out = append(out, l.W, l.B)
	}
	return out
}

func (n *network) newGradients() [][]float64 {
	out := make([][]float64, 0, 2*len(n.layers))
	for _, l := range n.layers {
		out = append(out, make([]float64, len(l.W)), make([]float64, len(l.B)))
	}
	return out
}

// trainBatch runs forward and backward passes over one mini-batch with
// dropout active, applies one optimizer step and returns the mean
// cross-entropy loss and the per-sample predictions.
func (n *network) trainBatch(xs [][]float64, ys []float64, opt *adam, rng *rand.Rand) (float64, []float64) {
	loss, preds, grads := n.gradients(xs, ys, rng)
	opt.step(n.params(), grads)
	return loss, preds
}

// gradients returns the mean cross-entropy over the batch, the per-sample
// predictions and the gradient of the regularized loss for every tensor in
// params order.
func (n *network) gradients(xs [][]float64, ys []float64, rng *rand.Rand) (float64, []float64, [][]float64) {
	grads := n.newGradients()
	preds := make([]float64, len(xs))
	var loss float64

	depth := len(n.layers)
	acts := make([][]float64, depth+1)
	pre := make([][]float64, depth)
	masks := make([][]float64, depth)

	for s, x := range xs {
		acts[0] = x
		for li, l := range n.layers {
			z := make([]float64, l.Out)
			a := make([]float64, l.Out)
			var mask []float64
			if l.Dropout > 0 {
				mask = make([]float64, l.Out)
			}
			for o := 0; o < l.Out; o++ {
				v := l.B[o]
				row := l.W[o*l.In : (o+1)*l.In]
				for i, xi := range acts[li] {
					v += row[i] * xi
				}
				z[o] = v
				a[o] = l.activate(v)
				if mask != nil {
					if rng.Float64() >= l.Dropout {
						mask[o] = 1 / (1 - l.Dropout)
					}
					a[o] *= mask[o]
				}
			}
			pre[li], acts[li+1], masks[li] = z, a, mask
		}

		p := acts[depth][0]
		preds[s] = p
		loss += binaryCrossEntropy(p, ys[s])

		// Sigmoid output with cross-entropy: dL/dz = p - y.
		delta := []float64{p - ys[s]}
		for li := depth - 1; li >= 0; li-- {
			l := n.layers[li]
			gw, gb := grads[2*li], grads[2*li+1]
			in := acts[li]
			for o, d := range delta {
				if d == 0 {
					continue
				}
				row := gw[o*l.In : (o+1)*l.In]
				for i, xi := range in {
					row[i] += d * xi
				}
				gb[o] += d
			}
			if li == 0 {
				break
			}

			prev := make([]float64, l.In)
			for o, d := range delta {
				if d == 0 {
					continue
				}
				row := l.W[o*l.In : (o+1)*l.In]
				for i := range prev {
					prev[i] += row[i] * d
				}
			}
			below := n.layers[li-1]
			for i := range prev {
				if m := masks[li-1]; m != nil {
					prev[i] *= m[i]
				}
				if below.Activation == activationReLU && pre[li-1][i] <= 0 {
					prev[i] = 0
				}
			}
			delta = prev
		}
	}

	scale := 1 / float64(len(xs))
	for li, l := range n.layers {
		gw, gb := grads[2*li], grads[2*li+1]
		for i := range gw {
			gw[i] *= scale
			if l.L2 > 0 {
				gw[i] += 2 * l.L2 * l.W[i]
			}
		}
		for i := range gb {
			gb[i] *= scale
		}
	}
	return loss * scale, preds, grads
}

// adam implements the Adam optimizer with bias correction.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  [][]float64
}

func newAdam(lr float64, n *network) *adam {
	return &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-7,
		m:     n.newGradients(),
		v:     n.newGradients(),
	}
}

func (a *adam) step(params, grads [][]float64) {
	a.t++
	lrT := a.lr * math.Sqrt(1-math.Pow(a.beta2, float64(a.t))) / (1 - math.Pow(a.beta1, float64(a.t)))
	for k, p := range params {
		g, m, v := grads[k], a.m[k], a.v[k]
		for i := range p {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			p[i] -= lrT * m[i] / (math.Sqrt(v[i]) + a.eps)
		}
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func binaryCrossEntropy(p, y float64) float64 {
	p = math.Min(math.Max(p, probEpsilon), 1-probEpsilon)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

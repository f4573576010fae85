package feedforward

import (
	"log"
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const lossEpsilon = 1e-7 // clip predictions away from 0 and 1 in the loss

// Config fixes the shape and optimization settings of a Network.
type Config struct {
	VocabSize    int
	EmbeddingDim int
	HiddenUnits  int     // defaults to 6
	LearningRate float64 // defaults to 1e-3
	Seed         int64
}

// Network is a small feed-forward binary classifier over padded integer
// sequences: an embedding layer, global average pooling over timesteps
// (padding included), one ReLU hidden layer, and a sigmoid output.
type Network struct {
	cfg Config

	emb []float64 // VocabSize x EmbeddingDim, row-major
	w1  *mat.Dense
	b1  []float64
	w2  []float64
	b2  []float64 // single element

	optEmb *adam
	optW1  *adam
	optB1  *adam
	optW2  *adam
	optB2  *adam

	rng *rand.Rand
}

// NewNetwork builds a network with freshly initialized weights. The
// embedding table is uniform in [-0.05, 0.05]; dense layers use
// Glorot-uniform initialization. Initialization is deterministic given
// cfg.Seed.
func NewNetwork(cfg Config) (*Network, error) {
	if cfg.VocabSize <= 0 {
		return nil, errors.Errorf("vocab size must be positive, got %d", cfg.VocabSize)
	}
	if cfg.EmbeddingDim <= 0 {
		return nil, errors.Errorf("embedding dim must be positive, got %d", cfg.EmbeddingDim)
	}
	if cfg.HiddenUnits <= 0 {
		cfg.HiddenUnits = 6
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 1e-3
	}

	dim, hid := cfg.EmbeddingDim, cfg.HiddenUnits
	rng := rand.New(rand.NewSource(cfg.Seed))

	n := &Network{
		cfg: cfg,
		emb: make([]float64, cfg.VocabSize*dim),
		b1:  make([]float64, hid),
		w2:  make([]float64, hid),
		b2:  make([]float64, 1),
		rng: rng,
	}

	for i := range n.emb {
		n.emb[i] = rng.Float64()*0.1 - 0.05
	}

	w1 := make([]float64, hid*dim)
	limit := math.Sqrt(6 / float64(dim+hid))
	for i := range w1 {
		w1[i] = (rng.Float64()*2 - 1) * limit
	}
	n.w1 = mat.NewDense(hid, dim, w1)

	limit = math.Sqrt(6 / float64(hid+1))
	for i := range n.w2 {
		n.w2[i] = (rng.Float64()*2 - 1) * limit
	}

	n.optEmb = newAdam(cfg.LearningRate, len(n.emb))
	n.optW1 = newAdam(cfg.LearningRate, len(w1))
	n.optB1 = newAdam(cfg.LearningRate, hid)
	n.optW2 = newAdam(cfg.LearningRate, hid)
	n.optB2 = newAdam(cfg.LearningRate, 1)

	return n, nil
}

// Options controls a single call to Fit.
type Options struct {
	Epochs    int // defaults to 1
	BatchSize int // defaults to 32
	Patience  int // early stopping on validation loss; <= 0 disables
	Verbose   bool
}

// History records the per-epoch losses of a Fit call. ValLoss is empty
// when no validation partition was given.
type History struct {
	TrainLoss []float64
	ValLoss   []float64
}

// Fit trains the network with minibatch Adam, shuffling each epoch, and
// monitors loss on the validation partition after every epoch. When
// opts.Patience > 0, training stops once the validation loss has failed to
// improve for that many consecutive epochs; weights are not restored to
// the best epoch.
func (n *Network) Fit(X [][]int, y []float64, valX [][]int, valY []float64, opts Options) (History, error) {
	if len(X) != len(y) {
		return History{}, errors.Errorf("len of X (%d) != len of y (%d)", len(X), len(y))
	}
	if len(X) == 0 {
		return History{}, errors.Errorf("cannot fit on an empty dataset")
	}
	if len(valX) != len(valY) {
		return History{}, errors.Errorf("len of validation X (%d) != len of validation y (%d)", len(valX), len(valY))
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}

	var hist History
	best := math.Inf(1)
	var wait int

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		perm := n.rng.Perm(len(X))
		var batchLosses []float64
		for start := 0; start < len(perm); start += opts.BatchSize {
			end := start + opts.BatchSize
			if end > len(perm) {
				end = len(perm)
			}
			batchLosses = append(batchLosses, n.trainBatch(X, y, perm[start:end]))
		}

		trainLoss, err := stats.Mean(batchLosses)
		if err != nil {
			return hist, errors.Wrapf(err, "error averaging batch losses")
		}
		hist.TrainLoss = append(hist.TrainLoss, trainLoss)

		if len(valX) == 0 {
			if opts.Verbose {
				log.Printf("epoch %d/%d: loss %.4f", epoch+1, opts.Epochs, trainLoss)
			}
			continue
		}

		valLoss, _ := n.Evaluate(valX, valY)
		hist.ValLoss = append(hist.ValLoss, valLoss)
		if opts.Verbose {
			log.Printf("epoch %d/%d: loss %.4f, val_loss %.4f", epoch+1, opts.Epochs, trainLoss, valLoss)
		}

		if opts.Patience > 0 {
			if valLoss < best {
				best = valLoss
				wait = 0
			} else {
				wait++
				if wait >= opts.Patience {
					if opts.Verbose {
						log.Printf("early stopping at epoch %d", epoch+1)
					}
					break
				}
			}
		}
	}

	return hist, nil
}

// Evaluate returns the mean binary cross-entropy loss and the fraction of
// predictions on the correct side of 0.5 over the given partition.
func (n *Network) Evaluate(X [][]int, y []float64) (float64, float64) {
	if len(X) == 0 {
		return 0, 0
	}

	losses := make([]float64, len(X))
	var correct int
	for i, seq := range X {
		p := n.Predict(seq)
		losses[i] = bce(p, y[i])
		if (p >= 0.5) == (y[i] >= 0.5) {
			correct++
		}
	}

	loss, err := stats.Mean(losses)
	if err != nil {
		return 0, 0
	}
	return loss, float64(correct) / float64(len(X))
}

// Predict returns the predicted probability of the positive class for one
// integer sequence.
func (n *Network) Predict(seq []int) float64 {
	_, _, _, p := n.forward(seq)
	return p
}

// forward runs one sample through the network, returning the pooled
// embedding, the hidden pre-activation, the hidden activation, and the
// output probability.
func (n *Network) forward(seq []int) ([]float64, []float64, []float64, float64) {
	dim, hid := n.cfg.EmbeddingDim, n.cfg.HiddenUnits

	pooled := make([]float64, dim)
	if len(seq) > 0 {
		for _, id := range seq {
			floats.Add(pooled, n.emb[id*dim:(id+1)*dim])
		}
		floats.Scale(1/float64(len(seq)), pooled)
	}

	z1 := make([]float64, hid)
	z1v := mat.NewVecDense(hid, z1)
	z1v.MulVec(n.w1, mat.NewVecDense(dim, pooled))
	floats.Add(z1, n.b1)

	a1 := make([]float64, hid)
	for i, z := range z1 {
		if z > 0 {
			a1[i] = z
		}
	}

	p := sigmoid(floats.Dot(n.w2, a1) + n.b2[0])
	return pooled, z1, a1, p
}

// trainBatch accumulates gradients over one minibatch and applies a single
// Adam step per parameter group. It returns the mean sample loss of the
// batch, computed before the update.
func (n *Network) trainBatch(X [][]int, y []float64, idx []int) float64 {
	dim, hid := n.cfg.EmbeddingDim, n.cfg.HiddenUnits

	gEmb := make(map[int][]float64)
	gW1 := make([]float64, hid*dim)
	gB1 := make([]float64, hid)
	gW2 := make([]float64, hid)
	gB2 := make([]float64, 1)

	var total float64
	for _, i := range idx {
		seq := X[i]
		pooled, z1, a1, p := n.forward(seq)
		total += bce(p, y[i])

		dz2 := p - y[i]
		floats.AddScaled(gW2, dz2, a1)
		gB2[0] += dz2

		dz1 := make([]float64, hid)
		for j := range dz1 {
			if z1[j] > 0 {
				dz1[j] = dz2 * n.w2[j]
			}
		}
		for j, d := range dz1 {
			if d == 0 {
				continue
			}
			floats.AddScaled(gW1[j*dim:(j+1)*dim], d, pooled)
			gB1[j] += d
		}

		if len(seq) == 0 {
			continue
		}
		dpooled := make([]float64, dim)
		dv := mat.NewVecDense(dim, dpooled)
		dv.MulVec(n.w1.T(), mat.NewVecDense(hid, dz1))
		scale := 1 / float64(len(seq))
		for _, id := range seq {
			g, ok := gEmb[id]
			if !ok {
				g = make([]float64, dim)
				gEmb[id] = g
			}
			floats.AddScaled(g, scale, dpooled)
		}
	}

	inv := 1 / float64(len(idx))
	floats.Scale(inv, gW1)
	floats.Scale(inv, gB1)
	floats.Scale(inv, gW2)
	gB2[0] *= inv

	n.optW1.step()
	n.optW1.apply(n.w1.RawMatrix().Data, gW1, 0)
	n.optB1.step()
	n.optB1.apply(n.b1, gB1, 0)
	n.optW2.step()
	n.optW2.apply(n.w2, gW2, 0)
	n.optB2.step()
	n.optB2.apply(n.b2, gB2, 0)

	n.optEmb.step()
	for id, g := range gEmb {
		floats.Scale(inv, g)
		n.optEmb.apply(n.emb, g, id*dim)
	}

	return total * inv
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// bce is the binary cross-entropy of predicting p for label y, with p
// clipped away from 0 and 1.
func bce(p, y float64) float64 {
	if p < lossEpsilon {
		p = lossEpsilon
	} else if p > 1-lossEpsilon {
		p = 1 - lossEpsilon
	}
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

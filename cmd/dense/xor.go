package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/born-ml/dense/backend/cpu"
	"github.com/born-ml/dense/backend/webgpu"
	"github.com/born-ml/dense/nn"
	"github.com/born-ml/dense/tensor"
	"gonum.org/v1/gonum/mat"
)

var (
	xorInputs  = [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	xorTargets = []float64{0, 1, 1, 0}
)

// xorConfig holds the training hyperparameters.
type xorConfig struct {
	Epochs         int
	Hidden         int
	LearnRate      float64
	Regularization float64
	Momentum       float64
	Workers        int
	Batched        bool
	GPU            bool
	Constrained    bool
	Seed           int64
	LogEvery       int
}

func defaultXORConfig() xorConfig {
	return xorConfig{
		Epochs:    2000,
		Hidden:    4,
		LearnRate: 0.3,
		Momentum:  0.9,
		Workers:   4,
		Seed:      1,
		LogEvery:  500,
	}
}

// trainer drives a 2-hidden-1 network through mini-batch steps. Every epoch
// is one mini-batch holding all four XOR examples.
type trainer struct {
	cfg    xorConfig
	hidden *nn.Layer
	output *nn.Layer
	logger *slog.Logger
	gpu    *webgpu.Backend
}

func newTrainer(cfg xorConfig, logger *slog.Logger) (*trainer, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}

	t := &trainer{cfg: cfg, logger: logger}

	opts := []nn.DispatcherOption{nn.WithLogger(logger)}
	if cfg.Constrained {
		opts = append(opts, nn.WithDeviceClass(nn.Constrained))
	}
	switch {
	case cfg.GPU:
		gpu, err := webgpu.New()
		if err == nil {
			t.gpu = gpu
			opts = append(opts, nn.WithBackend(gpu))
			break
		}
		if cfg.Batched {
			return nil, err
		}
		logger.Warn("webgpu unavailable, single-example passes run on cpu", "error", err)
	case cfg.Batched:
		opts = append(opts, nn.WithBackend(cpu.New()))
	}
	d := nn.NewDispatcher(opts...)

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // G404: reproducible demo weights
	hidden, err := nn.NewLayer(2, cfg.Hidden, nn.WithRand(rng), nn.WithActivation(nn.TanH{}), nn.WithDispatcher(d))
	if err != nil {
		t.release()
		return nil, err
	}
	output, err := nn.NewLayer(cfg.Hidden, 1, nn.WithRand(rng), nn.WithDispatcher(d))
	if err != nil {
		t.release()
		return nil, err
	}
	t.hidden, t.output = hidden, output
	return t, nil
}

func (t *trainer) release() {
	if t.gpu != nil {
		t.gpu.Release()
	}
}

func column(values ...float64) *mat.Dense {
	return mat.NewDense(len(values), 1, values)
}

// learnExample runs forward, backward and accumulation for example i.
func (t *trainer) learnExample(i int) error {
	hiddenData := nn.NewLearnData(t.hidden.NumNodesIn(), t.hidden.NumNodesOut())
	outputData := nn.NewLearnData(t.output.NumNodesIn(), t.output.NumNodesOut())

	h, err := t.hidden.ForwardLearn(column(xorInputs[i]...), hiddenData)
	if err != nil {
		return err
	}
	if _, err := t.output.ForwardLearn(h, outputData); err != nil {
		return err
	}
	if err := t.output.ComputeOutputErrors(outputData, column(xorTargets[i]), nn.MeanSquaredError{}); err != nil {
		return err
	}
	if err := t.hidden.ComputeHiddenErrors(hiddenData, t.output, outputData.NodeValues); err != nil {
		return err
	}
	if err := t.output.AccumulateGradients(outputData); err != nil {
		return err
	}
	return t.hidden.AccumulateGradients(hiddenData)
}

// stepParallel spreads the mini-batch over worker goroutines that share the
// layers, waits for all of them, then applies the gradients.
func (t *trainer) stepParallel() error {
	var wg sync.WaitGroup
	errs := make([]error, t.cfg.Workers)
	for w := 0; w < t.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; i < len(xorInputs); i += t.cfg.Workers {
				if err := t.learnExample(i); err != nil {
					errs[w] = fmt.Errorf("example %d: %w", i, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	return t.apply()
}

// stepBatched runs the whole mini-batch through the batched path.
func (t *trainer) stepBatched(x, y *tensor.Tensor) error {
	hiddenData, outputData := &nn.ParallelLearnData{}, &nn.ParallelLearnData{}

	h, err := t.hidden.ForwardBatch(x, hiddenData)
	if err != nil {
		return err
	}
	if _, err := t.output.ForwardBatch(h, outputData); err != nil {
		return err
	}
	if err := t.output.ComputeOutputErrorsBatch(outputData, y, nn.MeanSquaredError{}); err != nil {
		return err
	}
	if err := t.hidden.ComputeHiddenErrorsBatch(hiddenData, t.output, outputData.NodeValues); err != nil {
		return err
	}
	if err := t.output.AccumulateGradientsBatch(outputData); err != nil {
		return err
	}
	if err := t.hidden.AccumulateGradientsBatch(hiddenData); err != nil {
		return err
	}
	return t.apply()
}

func (t *trainer) apply() error {
	if err := t.output.ApplyGradients(t.cfg.LearnRate, t.cfg.Regularization, t.cfg.Momentum); err != nil {
		return err
	}
	return t.hidden.ApplyGradients(t.cfg.LearnRate, t.cfg.Regularization, t.cfg.Momentum)
}

func (t *trainer) predict(i int) (float64, error) {
	h, err := t.hidden.Forward(column(xorInputs[i]...))
	if err != nil {
		return 0, err
	}
	a, err := t.output.Forward(h)
	if err != nil {
		return 0, err
	}
	return a.At(0, 0), nil
}

// loss returns the mean cost over the four examples.
func (t *trainer) loss() (float64, error) {
	var total float64
	for i := range xorInputs {
		p, err := t.predict(i)
		if err != nil {
			return 0, err
		}
		total += nn.MeanSquaredError{}.Cost(column(p), column(xorTargets[i]))
	}
	return total / float64(len(xorInputs)), nil
}

func (t *trainer) train() error {
	var x, y *tensor.Tensor
	if t.cfg.Batched {
		inputs := make([]*mat.Dense, len(xorInputs))
		targets := make([]*mat.Dense, len(xorTargets))
		for i := range xorInputs {
			inputs[i] = column(xorInputs[i]...)
			targets[i] = column(xorTargets[i])
		}
		var err error
		if x, err = tensor.FromMatrices(inputs...); err != nil {
			return err
		}
		if y, err = tensor.FromMatrices(targets...); err != nil {
			return err
		}
	}

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		var err error
		if t.cfg.Batched {
			err = t.stepBatched(x, y)
		} else {
			err = t.stepParallel()
		}
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}

		if t.cfg.LogEvery > 0 && epoch%t.cfg.LogEvery == 0 {
			l, err := t.loss()
			if err != nil {
				return err
			}
			t.logger.Info("training", "epoch", epoch, "loss", l)
		}
	}
	return nil
}

func runXOR(args []string, stdout, stderr io.Writer) error {
	cfg := defaultXORConfig()

	fs := flag.NewFlagSet("xor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&cfg.Epochs, "epochs", cfg.Epochs, "Number of training epochs")
	fs.IntVar(&cfg.Hidden, "hidden", cfg.Hidden, "Hidden layer size")
	fs.Float64Var(&cfg.LearnRate, "lr", cfg.LearnRate, "Learning rate")
	fs.Float64Var(&cfg.Regularization, "reg", cfg.Regularization, "L2 regularization")
	fs.Float64Var(&cfg.Momentum, "momentum", cfg.Momentum, "Momentum in [0, 1)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent workers per mini-batch")
	fs.BoolVar(&cfg.Batched, "batch", cfg.Batched, "Use the batched path")
	fs.BoolVar(&cfg.GPU, "gpu", cfg.GPU, "Use the WebGPU backend when available")
	fs.BoolVar(&cfg.Constrained, "constrained", cfg.Constrained, "Use reduced precision kernels")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for weight initialization")
	fs.IntVar(&cfg.LogEvery, "log-every", cfg.LogEvery, "Log the loss every N epochs (0 disables)")
	snapshot := fs.Bool("snapshot", false, "Print the trained layers as JSON")
	verbose := fs.Bool("v", false, "Verbose (debug) logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(stderr, *verbose)

	t, err := newTrainer(cfg, logger)
	if err != nil {
		return err
	}
	defer t.release()

	if err := t.train(); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%-4s %-4s %-8s %s\n", "x1", "x2", "target", "prediction")
	for i, in := range xorInputs {
		p, err := t.predict(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%-4g %-4g %-8g %.4f\n", in[0], in[1], xorTargets[i], p)
	}
	l, err := t.loss()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "loss: %.6f\n", l)

	if *snapshot {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode([]nn.Snapshot{t.hidden.Snapshot(), t.output.Snapshot()})
	}
	return nil
}

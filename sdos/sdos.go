// Package sdos computes the spectral density of states of a photonic
// band calculation and persists the result through package matrixio.
//
// For each sampled frequency omega and each requested reciprocal-lattice
// vector G, the density is a sum over bands of the imaginary part of a
// Lorentzian-broadened resonance weighted by the band-overlap tensor.
package sdos

import (
	"fmt"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"

	"github.com/hwz0428/mpb/matrixio"
)

// Config holds the parameters of one spectral-density run.
type Config struct {
	FreqMin float64 // lower end of the sampled frequency span
	FreqMax float64 // upper end of the sampled frequency span
	FreqNum int     // number of frequency samples, at least 2

	Eta float64 // imaginary broadening of the resonance denominator

	BandMin  int // index of the first band included in the sum
	NumBands int // number of bands included in the sum

	GMin, GMax [3]int // inclusive reciprocal-lattice index ranges

	Prefactor float64 // overall scale, typically 2*V/pi

	KPoint      [3]float64 // Bloch wavevector of the run
	KPointIndex int        // position of the k-point in the band structure

	Prefix string // output filename prefix, may be empty
	Parity string // optional parity tag appended to the filename
}

// OutputName returns the container name for the run, before suffix
// normalization: <prefix>-sdos.k<index>[.<parity>].
func (c Config) OutputName() string {
	name := fmt.Sprintf("%s-sdos.k%d", c.Prefix, c.KPointIndex)
	if c.Parity != "" {
		name += "." + c.Parity
	}
	return name
}

func (c Config) validate(numBandFreqs int) error {
	if c.FreqNum < 2 {
		return fmt.Errorf("%w: FreqNum %d: need at least 2 frequency samples",
			matrixio.ErrValidation, c.FreqNum)
	}
	if c.NumBands <= 0 {
		return fmt.Errorf("%w: NumBands %d must be positive", matrixio.ErrValidation, c.NumBands)
	}
	if c.BandMin < 0 || c.BandMin+c.NumBands > numBandFreqs {
		return fmt.Errorf("%w: bands %d..%d exceed the %d computed band frequencies",
			matrixio.ErrValidation, c.BandMin, c.BandMin+c.NumBands, numBandFreqs)
	}
	_, err := CountGVectors(c.GMin, c.GMax)
	return err
}

// Compute evaluates the spectral density of states on a FreqNum x nG
// grid, where nG counts the requested G-vectors. bandFreqs holds the
// eigenfrequencies of all computed bands; the sum runs over NumBands
// bands starting at BandMin. The contribution of band b at sampled
// frequency omega is
//
//	Prefactor * omega * Im(BtH[G,b] / (omega_b^2 - omega^2 - i*Eta))
//
// with BtH supplied by p.
func Compute(cfg Config, bandFreqs []float64, p OverlapProducer) (*sparse.DenseArray, error) {
	if err := cfg.validate(len(bandFreqs)); err != nil {
		return nil, err
	}
	nG, _ := CountGVectors(cfg.GMin, cfg.GMax)
	bth, err := p.Overlap(cfg.BandMin, cfg.NumBands, cfg.GMin, cfg.GMax)
	if err != nil {
		return nil, err
	}
	if len(bth) != nG*cfg.NumBands {
		return nil, fmt.Errorf("%w: overlap tensor holds %d elements, want %d",
			matrixio.ErrValidation, len(bth), nG*cfg.NumBands)
	}

	span := make([]float64, cfg.FreqNum)
	floats.Span(span, cfg.FreqMin, cfg.FreqMax)
	span2 := make([]float64, cfg.FreqNum)
	copy(span2, span)
	floats.Mul(span2, span)

	freqs2 := make([]float64, cfg.NumBands)
	for b := range freqs2 {
		f := bandFreqs[cfg.BandMin+b]
		freqs2[b] = f * f
	}

	dos := sparse.ZerosDense(cfg.FreqNum, nG)
	for i, w := range span {
		pref := cfg.Prefactor * w
		for g := 0; g < nG; g++ {
			var sum float64
			for b := 0; b < cfg.NumBands; b++ {
				sum += imag(bth[g*cfg.NumBands+b] / complex(freqs2[b]-span2[i], -cfg.Eta))
			}
			dos.Set(pref*sum, i, g)
		}
	}
	return dos, nil
}

// Write persists a computed spectral-density grid together with its run
// metadata. The container holds four datasets: the grid flattened to one
// axis of length FreqNum*nG, the frequency span, the G index ranges, and
// the k-point.
func Write(cfg Config, dos *sparse.DenseArray, opts ...matrixio.Option) error {
	c, err := matrixio.Create(cfg.OutputName(), opts...)
	if err != nil {
		return err
	}
	if err := writeDatasets(c, cfg, dos); err != nil {
		c.Close()
		return err
	}
	return c.Close()
}

func writeDatasets(c *matrixio.Container, cfg Config, dos *sparse.DenseArray) error {
	nG, err := CountGVectors(cfg.GMin, cfg.GMax)
	if err != nil {
		return err
	}
	if len(dos.Shape) != 2 || dos.Shape[0] != cfg.FreqNum || dos.Shape[1] != nG {
		return fmt.Errorf("%w: density grid has shape %v, want [%d %d]",
			matrixio.ErrValidation, dos.Shape, cfg.FreqNum, nG)
	}

	if err := writeDataset(c, "sdos", "remember to unfold",
		[]int{cfg.FreqNum * nG}, dos.Elements); err != nil {
		return err
	}
	if err := writeDataset(c, "freqspan", "freq_min, freq_max, freq_num",
		[]int{3}, []float64{cfg.FreqMin, cfg.FreqMax, float64(cfg.FreqNum)}); err != nil {
		return err
	}
	igspan := []float64{
		float64(cfg.GMin[0]), float64(cfg.GMax[0]),
		float64(cfg.GMin[1]), float64(cfg.GMax[1]),
		float64(cfg.GMin[2]), float64(cfg.GMax[2]),
	}
	if err := writeDataset(c, "iGspan",
		"iG1_min, iG1_max, iG2_min, iG2_max, iG3_min, iG3_max",
		[]int{6}, igspan); err != nil {
		return err
	}
	kpoint := []float64{cfg.KPoint[0], cfg.KPoint[1], cfg.KPoint[2]}
	return writeDataset(c, "kpoint", "", []int{3}, kpoint)
}

func writeDataset(c *matrixio.Container, name, description string, dims []int, values []float64) error {
	ds, err := c.CreateDataset(name, description, dims)
	if err != nil {
		return err
	}
	if err := ds.Write(dims, make([]int, len(dims)), 1, values); err != nil {
		ds.Close()
		return err
	}
	return ds.Close()
}

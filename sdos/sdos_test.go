package sdos

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hwz0428/mpb/matrixio"
)

// overlapFunc adapts a function to the OverlapProducer interface.
type overlapFunc func(bandMin, numBands int, gMin, gMax [3]int) ([]complex128, error)

func (f overlapFunc) Overlap(bandMin, numBands int, gMin, gMax [3]int) ([]complex128, error) {
	return f(bandMin, numBands, gMin, gMax)
}

func constantOverlap(val complex128) OverlapProducer {
	return overlapFunc(func(bandMin, numBands int, gMin, gMax [3]int) ([]complex128, error) {
		nG, err := CountGVectors(gMin, gMax)
		if err != nil {
			return nil, err
		}
		out := make([]complex128, nG*numBands)
		for i := range out {
			out[i] = val
		}
		return out, nil
	})
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"plain", Config{Prefix: "run", KPointIndex: 3}, "run-sdos.k3"},
		{"no prefix", Config{KPointIndex: 0}, "-sdos.k0"},
		{"with parity", Config{Prefix: "run", KPointIndex: 1, Parity: "te"}, "run-sdos.k1.te"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.OutputName(); got != tt.want {
				t.Errorf("OutputName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComputeSingleResonance(t *testing.T) {
	cfg := Config{
		FreqMin:   0.1,
		FreqMax:   0.9,
		FreqNum:   5,
		Eta:       0.01,
		BandMin:   0,
		NumBands:  1,
		GMin:      [3]int{0, 0, 0},
		GMax:      [3]int{0, 0, 0},
		Prefactor: 2.0,
	}
	bandFreqs := []float64{0.5}

	dos, err := Compute(cfg, bandFreqs, constantOverlap(1))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if diff := cmp.Diff([]int{5, 1}, dos.Shape); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}

	// A unit overlap gives Im(1/(f0^2 - w^2 - i*eta)) =
	// eta / ((f0^2 - w^2)^2 + eta^2), scaled by Prefactor*w.
	f02 := bandFreqs[0] * bandFreqs[0]
	for i := 0; i < cfg.FreqNum; i++ {
		w := cfg.FreqMin + float64(i)*(cfg.FreqMax-cfg.FreqMin)/float64(cfg.FreqNum-1)
		a := f02 - w*w
		want := cfg.Prefactor * w * cfg.Eta / (a*a + cfg.Eta*cfg.Eta)
		got := dos.Get(i, 0)
		if math.Abs(got-want) > 1e-12*math.Abs(want) {
			t.Errorf("sample %d: density = %g, want %g", i, got, want)
		}
	}
}

func TestComputeSumsBands(t *testing.T) {
	cfg := Config{
		FreqMin:   0.2,
		FreqMax:   0.8,
		FreqNum:   4,
		Eta:       0.05,
		BandMin:   1,
		NumBands:  2,
		GMin:      [3]int{0, 0, 0},
		GMax:      [3]int{1, 0, 0},
		Prefactor: 1.0,
	}
	// Band 0 is excluded by BandMin.
	bandFreqs := []float64{99.0, 0.3, 0.6}

	dos, err := Compute(cfg, bandFreqs, constantOverlap(complex(0, 1)))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	for i := 0; i < cfg.FreqNum; i++ {
		w := cfg.FreqMin + float64(i)*(cfg.FreqMax-cfg.FreqMin)/float64(cfg.FreqNum-1)
		var want float64
		for _, f := range bandFreqs[1:] {
			a := f*f - w*w
			// Im(i/(a - i*eta)) = a / (a^2 + eta^2).
			want += a / (a*a + cfg.Eta*cfg.Eta)
		}
		want *= w
		for g := 0; g < 2; g++ {
			got := dos.Get(i, g)
			if math.Abs(got-want) > 1e-12*math.Abs(want) {
				t.Errorf("sample %d, G %d: density = %g, want %g", i, g, got, want)
			}
		}
	}
}

func TestComputeValidation(t *testing.T) {
	good := Config{
		FreqMin:  0.1,
		FreqMax:  0.9,
		FreqNum:  3,
		NumBands: 1,
		GMax:     [3]int{0, 0, 0},
	}
	bandFreqs := []float64{0.5}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"too few samples", func(c *Config) { c.FreqNum = 1 }},
		{"no bands", func(c *Config) { c.NumBands = 0 }},
		{"bands beyond computed", func(c *Config) { c.NumBands = 2 }},
		{"negative first band", func(c *Config) { c.BandMin = -1 }},
		{"non-monotonic G range", func(c *Config) { c.GMin = [3]int{1, 0, 0} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := good
			tt.mutate(&cfg)
			if _, err := Compute(cfg, bandFreqs, constantOverlap(1)); !errors.Is(err, matrixio.ErrValidation) {
				t.Errorf("error %v does not wrap ErrValidation", err)
			}
		})
	}

	short := overlapFunc(func(bandMin, numBands int, gMin, gMax [3]int) ([]complex128, error) {
		return make([]complex128, 1), nil
	})
	cfg := good
	cfg.GMax = [3]int{1, 0, 0}
	if _, err := Compute(cfg, bandFreqs, short); !errors.Is(err, matrixio.ErrValidation) {
		t.Errorf("undersized overlap tensor: error %v does not wrap ErrValidation", err)
	}
}

func TestWrite(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "sdos-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	cfg := Config{
		FreqMin:     0.1,
		FreqMax:     0.5,
		FreqNum:     3,
		Eta:         0.02,
		BandMin:     0,
		NumBands:    1,
		GMin:        [3]int{-1, 0, 0},
		GMax:        [3]int{1, 0, 0},
		Prefactor:   1.5,
		KPoint:      [3]float64{0.5, 0, 0.25},
		KPointIndex: 2,
		Prefix:      filepath.Join(tmpDir, "run"),
		Parity:      "te",
	}
	bandFreqs := []float64{0.3}

	dos, err := Compute(cfg, bandFreqs, constantOverlap(1))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if err := Write(cfg, dos); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	c, err := matrixio.Open(cfg.OutputName())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	wantNames := []string{"sdos", "freqspan", "iGspan", "kpoint"}
	if diff := cmp.Diff(wantNames, c.Datasets()); diff != "" {
		t.Fatalf("dataset names mismatch (-want +got):\n%s", diff)
	}

	readAll := func(name string) ([]float64, string) {
		t.Helper()
		ds, err := c.OpenDataset(name)
		if err != nil {
			t.Fatalf("OpenDataset(%q) failed: %v", name, err)
		}
		defer ds.Close()
		vals, err := ds.ReadFloat64()
		if err != nil {
			t.Fatalf("ReadFloat64(%q) failed: %v", name, err)
		}
		desc, _ := ds.Description()
		return vals, desc
	}

	grid, desc := readAll("sdos")
	if desc != "remember to unfold" {
		t.Errorf("sdos description = %q", desc)
	}
	if diff := cmp.Diff(dos.Elements, grid); diff != "" {
		t.Errorf("stored grid mismatch (-want +got):\n%s", diff)
	}

	span, desc := readAll("freqspan")
	if desc != "freq_min, freq_max, freq_num" {
		t.Errorf("freqspan description = %q", desc)
	}
	if diff := cmp.Diff([]float64{0.1, 0.5, 3}, span); diff != "" {
		t.Errorf("freqspan mismatch (-want +got):\n%s", diff)
	}

	igspan, desc := readAll("iGspan")
	if desc != "iG1_min, iG1_max, iG2_min, iG2_max, iG3_min, iG3_max" {
		t.Errorf("iGspan description = %q", desc)
	}
	if diff := cmp.Diff([]float64{-1, 1, 0, 0, 0, 0}, igspan); diff != "" {
		t.Errorf("iGspan mismatch (-want +got):\n%s", diff)
	}

	kpoint, desc := readAll("kpoint")
	if desc != "" {
		t.Errorf("kpoint should have no description, got %q", desc)
	}
	if diff := cmp.Diff([]float64{0.5, 0, 0.25}, kpoint); diff != "" {
		t.Errorf("kpoint mismatch (-want +got):\n%s", diff)
	}
}

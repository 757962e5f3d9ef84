package matrixio

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/hwz0428/mpb/comm"
)

// TestCollectiveCreate runs a full collective session: every worker
// creates the container, the group, and the dataset through its own
// handle, then writes its disjoint slice. Randomized delays shake out
// ordering assumptions; exactly one file and one definition of each
// object must result.
func TestCollectiveCreate(t *testing.T) {
	const (
		workers = 4
		rows    = 3
		cols    = 5
	)
	path := tempContainer(t, "collective")
	groups := comm.NewLocal(workers)

	var eg errgroup.Group
	for _, g := range groups {
		g := g
		eg.Go(func() error {
			jitter := func() {
				time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
			}
			jitter()
			c, err := Create(path, WithGroup(g))
			if err != nil {
				return err
			}

			jitter()
			grp, err := c.CreateGroup("modes", "per-band fields")
			if err != nil {
				return err
			}

			jitter()
			ds, err := grp.CreateDataset("grid", "row-major", []int{workers * rows, cols})
			if err != nil {
				return err
			}

			// Each worker owns rows [rank*rows, (rank+1)*rows).
			local := make([]float64, rows*cols)
			for i := range local {
				local[i] = float64(g.Rank()*rows*cols + i)
			}
			jitter()
			if err := ds.Write([]int{rows, cols}, []int{g.Rank() * rows, 0}, 1, local); err != nil {
				return err
			}

			if err := ds.Close(); err != nil {
				return err
			}
			if err := grp.Close(); err != nil {
				return err
			}
			return c.Close()
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("collective session failed: %v", err)
	}

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	if names := c.Datasets(); len(names) != 1 || names[0] != "modes/grid" {
		t.Fatalf("Datasets() = %v, want [modes/grid]", names)
	}

	want := make([]float64, workers*rows*cols)
	for i := range want {
		want[i] = float64(i)
	}
	got := make([]float64, len(want))
	if err := c.Read("modes/grid", []int{workers * rows, cols}, workers*rows, 0, 1, got); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assembled grid mismatch (-want +got):\n%s", diff)
	}

	grp, err := c.OpenGroup("modes")
	if err != nil {
		t.Fatalf("OpenGroup failed: %v", err)
	}
	defer grp.Close()
	if desc, ok := grp.Description(); !ok || desc != "per-band fields" {
		t.Errorf("Description() = %q, %v; want %q, true", desc, ok, "per-band fields")
	}
}

// TestCollectiveBackToBack runs consecutive structural operations with
// no pauses between them, so a coordinator that raced ahead of a
// follower still reopening the previous header would deadlock or
// diverge. Every definition and every worker's rows must land.
func TestCollectiveBackToBack(t *testing.T) {
	const (
		workers  = 4
		datasets = 8
	)
	path := tempContainer(t, "backtoback")
	groups := comm.NewLocal(workers)

	var eg errgroup.Group
	for _, g := range groups {
		g := g
		eg.Go(func() error {
			c, err := Create(path, WithGroup(g))
			if err != nil {
				return err
			}
			defer c.Close()

			for d := 0; d < datasets; d++ {
				ds, err := c.CreateDataset(fmt.Sprintf("v%d", d), "", []int{workers})
				if err != nil {
					return fmt.Errorf("worker %d, dataset %d: %w", g.Rank(), d, err)
				}
				val := []float64{float64(d*workers + g.Rank())}
				if err := ds.Write([]int{1}, []int{g.Rank()}, 1, val); err != nil {
					ds.Close()
					return err
				}
				if err := ds.Close(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("collective session failed: %v", err)
	}

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()
	if names := c.Datasets(); len(names) != datasets {
		t.Fatalf("Datasets() = %v, want %d entries", names, datasets)
	}
	for d := 0; d < datasets; d++ {
		got := make([]float64, workers)
		if err := c.Read(fmt.Sprintf("v%d", d), []int{workers}, workers, 0, 1, got); err != nil {
			t.Fatalf("Read of v%d failed: %v", d, err)
		}
		want := make([]float64, workers)
		for i := range want {
			want[i] = float64(d*workers + i)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("dataset v%d mismatch (-want +got):\n%s", d, diff)
		}
	}
}

// TestCollectiveValidationIsSymmetric checks that an invalid collective
// call fails on every worker without deadlocking the group.
func TestCollectiveValidationIsSymmetric(t *testing.T) {
	const workers = 3
	path := tempContainer(t, "symmetric")
	groups := comm.NewLocal(workers)

	var eg errgroup.Group
	for _, g := range groups {
		g := g
		eg.Go(func() error {
			c, err := Create(path, WithGroup(g))
			if err != nil {
				return err
			}
			defer c.Close()

			ds, err := c.CreateDataset("v", "", []int{workers})
			if err != nil {
				return err
			}
			defer ds.Close()

			// Invalid on every worker; nobody reaches the barrier.
			if _, err := c.CreateDataset("v", "", []int{workers}); !errors.Is(err, ErrValidation) {
				return fmt.Errorf("duplicate dataset: got %v, want a validation error", err)
			}
			return ds.Write([]int{1}, []int{g.Rank()}, 1, []float64{float64(g.Rank())})
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("collective session failed: %v", err)
	}

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()
	got := make([]float64, workers)
	if err := c.Read("v", []int{workers}, workers, 0, 1, got); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if diff := cmp.Diff([]float64{0, 1, 2}, got); diff != "" {
		t.Errorf("per-rank writes mismatch (-want +got):\n%s", diff)
	}
}

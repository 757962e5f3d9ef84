// Command sdosinfo inspects spectral-density output containers,
// listing each dataset's shape and description and optionally dumping
// its values.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hwz0428/mpb/matrixio"
)

var dumpValues bool

var rootCmd = &cobra.Command{
	Use:   "sdosinfo <container> [<container>...]",
	Short: "Inspect spectral-density output containers",
	Long: `sdosinfo lists the datasets stored in one or more containers
written by the spectral-density calculation, along with their shapes
and descriptions. Container names are normalized the same way the
writer normalizes them, so "run-sdos.k1" and "run-sdos.k1.nc" refer to
the same file.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range args {
			if err := inspect(cmd, name); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().BoolVar(&dumpValues, "values", false, "print dataset values")
}

func inspect(cmd *cobra.Command, name string) error {
	c, err := matrixio.Open(name)
	if err != nil {
		return err
	}
	defer c.Close()

	cmd.Printf("%s:\n", c.Path())
	for _, dsName := range c.Datasets() {
		ds, err := c.OpenDataset(dsName)
		if err != nil {
			return err
		}
		if err := printDataset(cmd, ds); err != nil {
			ds.Close()
			return err
		}
		if err := ds.Close(); err != nil {
			return err
		}
	}
	return nil
}

func printDataset(cmd *cobra.Command, ds *matrixio.Dataset) error {
	cmd.Printf("  %s  dims=%v  elements=%d\n", ds.Name(), ds.Dims(), ds.NumElements())
	if desc, ok := ds.Description(); ok {
		cmd.Printf("    description: %q\n", desc)
	}
	if !dumpValues {
		return nil
	}
	vals, err := ds.ReadFloat64()
	if err != nil {
		return err
	}
	cmd.Printf("    values: %v\n", vals)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

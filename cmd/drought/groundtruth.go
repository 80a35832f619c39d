package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vjranagit/drought/pkg/pipeline"
	"github.com/vjranagit/drought/pkg/table"
	"github.com/vjranagit/drought/pkg/types"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	groundTruthRefresh  bool
	groundTruthCombined bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var groundTruthCmd = &cobra.Command{
	Use:   "groundtruth <samples.csv>",
	Short: "Aggregate ground-truth samples into the monthly tables",
	Long: `Reads a CSV of ground-truth samples (year, month, region_id, pai and
optionally quality_flag and timestamp columns), filters them and stores the
monthly, across-years and shot count tables. With --combined the result is
also joined with the monthly climate of the stored climate table, gap filled and
interpolated.`,
	Args: cobra.ExactArgs(1),
	RunE: runGroundTruth,
}

func init() {
	rootCmd.AddCommand(groundTruthCmd)
	groundTruthCmd.Flags().BoolVar(&groundTruthRefresh, "refresh", false, "recompute the ground-truth and combined stages even when stored")
	groundTruthCmd.Flags().BoolVar(&groundTruthCombined, "combined", false, "also build the combined table")
}

func runGroundTruth(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store)

	samples, err := readTable(args[0])
	if err != nil {
		return fmt.Errorf("failed to read samples: %w", err)
	}

	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return err
	}
	// Raster stages can only come from the store here, so a refresh is
	// limited to the stages built from samples.
	if groundTruthRefresh {
		pc.RefreshStages = append([]string{pipeline.StageCombined}, pipeline.GroundTruthStages...)
	}

	if !groundTruthCombined {
		p := pipeline.New(pc, offlineSource{}, nil, nil, store, logger)
		if err := p.GroundTruth(cmd.Context(), samples); err != nil {
			return err
		}
		logger.WithField("samples", samples.Len()).Info("Ground truth stored")
		return nil
	}

	// Without a raster source the combined table is built on the stored
	// climate table, whose regions become the catalog.
	climate, err := store.Load(cmd.Context(), pipeline.StageClimate)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", pipeline.StageClimate, err)
	}
	p := pipeline.New(pc, offlineSource{}, nil, tableCatalog{climate}, store, logger)
	combined, err := p.Combined(cmd.Context(), samples)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"rows":    combined.Len(),
		"columns": len(combined.Columns()),
	}).Info("Combined table stored")
	return nil
}

// tableCatalog lists the regions present in a stored table
type tableCatalog struct {
	t *table.Table
}

func (c tableCatalog) ListRegions(context.Context) ([]types.Region, error) {
	seen := make(map[int]bool)
	var regions []types.Region
	for i := 0; i < c.t.Len(); i++ {
		id := c.t.Row(i).Region()
		if seen[id] {
			continue
		}
		seen[id] = true
		regions = append(regions, types.Region{ID: id})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
	return regions, nil
}

var errOffline = errors.New("no raster source is configured")

// offlineSource fails every query, so stages that need fresh rasters
// report an error instead of running
type offlineSource struct{}

func (offlineSource) Query(context.Context, string, []string, types.TimeRange, *types.Geometry) (types.Series, error) {
	return types.Series{}, errOffline
}

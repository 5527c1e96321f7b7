package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/annforest"
	"github.com/hupe1980/annforest/distance"
	"github.com/hupe1980/annforest/embeddings"
	"github.com/hupe1980/annforest/persistence"
)

var (
	flagBuildTrees      int
	flagBuildLeaf       int
	flagBuildSeed       uint64
	flagBuildMetric     string
	flagBuildCompress   string
	flagBuildMaxWorkers int
)

var buildCmd = &cobra.Command{
	Use:   "build <embeddings-file> <index-file>",
	Short: "Build an index from a word embedding file",
	Args:  cobra.ExactArgs(2),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().IntVarP(&flagBuildTrees, "trees", "t", 8, "Number of trees to build")
	buildCmd.Flags().IntVarP(&flagBuildLeaf, "leaf-capacity", "l", 16, "Maximum items per leaf")
	buildCmd.Flags().Uint64VarP(&flagBuildSeed, "seed", "s", 0, "Build seed (equal seeds give identical indexes)")
	buildCmd.Flags().StringVarP(&flagBuildMetric, "metric", "m", "euclidean", "Distance metric: euclidean, angular, dot")
	buildCmd.Flags().StringVarP(&flagBuildCompress, "compression", "c", "none", "Index compression: none, lz4, zstd")
	buildCmd.Flags().IntVar(&flagBuildMaxWorkers, "max-workers", 0, "Parallel tree builders (0 = GOMAXPROCS)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	metric, err := parseMetric(flagBuildMetric)
	if err != nil {
		return err
	}

	compression, err := parseCompression(flagBuildCompress)
	if err != nil {
		return err
	}

	store, vocab, err := embeddings.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("cannot load embeddings: %w", err)
	}

	cmd.Printf("loaded %d vectors of dimension %d\n", vocab.Len(), store.Dimension())

	idx, err := annforest.Build(cmd.Context(), store,
		annforest.WithTreeCount(flagBuildTrees),
		annforest.WithLeafCapacity(flagBuildLeaf),
		annforest.WithSeed(flagBuildSeed),
		annforest.WithMetric(metric),
		annforest.WithMaxWorkers(flagBuildMaxWorkers),
		annforest.WithCompression(compression),
		annforest.WithLogger(newLogger()),
	)
	if err != nil {
		return err
	}

	if err := idx.Save(cmd.Context(), args[1]); err != nil {
		return err
	}

	cmd.Printf("wrote %s (%s)\n", args[1], idx.Stats())

	return nil
}

func parseMetric(name string) (distance.Metric, error) {
	switch name {
	case "euclidean":
		return distance.MetricEuclidean, nil
	case "angular":
		return distance.MetricAngular, nil
	case "dot":
		return distance.MetricDot, nil
	default:
		return 0, fmt.Errorf("unknown metric %q (want euclidean, angular, or dot)", name)
	}
}

func parseCompression(name string) (persistence.Compression, error) {
	switch name {
	case "none":
		return persistence.CompressionNone, nil
	case "lz4":
		return persistence.CompressionLZ4, nil
	case "zstd":
		return persistence.CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, lz4, or zstd)", name)
	}
}

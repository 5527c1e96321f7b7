package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/annforest"
	"github.com/hupe1980/annforest/embeddings"
)

var (
	flagQueryK          int
	flagQueryMultiplier int
)

var queryCmd = &cobra.Command{
	Use:   "query <index-file> <embeddings-file> <word>",
	Short: "Find the nearest neighbors of a word",
	Args:  cobra.ExactArgs(3),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&flagQueryK, "k", "k", 10, "Number of neighbors to return")
	queryCmd.Flags().IntVar(&flagQueryMultiplier, "multiplier", 1, "Leaf-visit budget as a multiple of the tree count")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	store, vocab, err := embeddings.LoadFile(args[1])
	if err != nil {
		return fmt.Errorf("cannot load embeddings: %w", err)
	}

	idx, err := annforest.Load(cmd.Context(), args[0], store,
		annforest.WithSearchMultiplier(flagQueryMultiplier),
		annforest.WithLogger(newLogger()),
	)
	if err != nil {
		return err
	}

	word := args[2]

	id, ok := vocab.ID(word)
	if !ok {
		return fmt.Errorf("word %q not in vocabulary", word)
	}

	results, err := idx.QueryByID(cmd.Context(), id, flagQueryK)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tWORD\tDISTANCE")

	for i, r := range results {
		token, _ := vocab.Token(r.ID)
		fmt.Fprintf(w, "%d\t%s\t%.4f\n", i+1, token, r.Distance)
	}

	return w.Flush()
}

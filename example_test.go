package annforest_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/annforest"
	"github.com/hupe1980/annforest/vectorstore"
)

func Example() {
	ctx := context.Background()

	store := vectorstore.NewWithDimension(2)
	for _, v := range [][]float32{{0, 0}, {1, 0}, {10, 10}} {
		if _, err := store.Append(v); err != nil {
			log.Fatal(err)
		}
	}

	idx, err := annforest.Build(ctx, store,
		annforest.WithTreeCount(4),
		annforest.WithSeed(1),
	)
	if err != nil {
		log.Fatal(err)
	}

	results, err := idx.QueryByVector(ctx, []float32{0, 0}, 2)
	if err != nil {
		log.Fatal(err)
	}

	for _, r := range results {
		fmt.Printf("id=%d distance=%.1f\n", r.ID, r.Distance)
	}
	// Output:
	// id=0 distance=0.0
	// id=1 distance=1.0
}

func ExampleIndex_QueryByID() {
	ctx := context.Background()

	store := vectorstore.NewWithDimension(2)
	for _, v := range [][]float32{{0, 0}, {1, 0}, {10, 10}} {
		if _, err := store.Append(v); err != nil {
			log.Fatal(err)
		}
	}

	idx, err := annforest.Build(ctx, store, annforest.WithSeed(1))
	if err != nil {
		log.Fatal(err)
	}

	results, err := idx.QueryByID(ctx, 0, 1)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("nearest neighbor of item 0: id=%d\n", results[0].ID)
	// Output:
	// nearest neighbor of item 0: id=1
}

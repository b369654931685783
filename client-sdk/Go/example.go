package main

/*
Example script for the eCP bench Go SDK.

Run this after the server has started (default address: http://localhost:8080).
It will:
  1. Perform a health-check.
  2. Build an index called 'demo' from random vectors.
  3. Search it with growing b.
  4. Clean up by deleting the index.

Usage:
$ go run example.go
*/

import (
	"context"
	"fmt"
	"math/rand/v2"

	"ecpbench/client-sdk/Go/client"
)

func randomVector(dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rand.Float32()
	}
	return v
}

func main() {
	ctx := context.Background()
	c := client.NewClient("http://localhost:8080")

	// 1. Health check
	ok, err := c.HealthCheck(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println("Health check:", ok)

	// 2. Build index
	vectors := make([][]float32, 2000)
	for i := range vectors {
		vectors[i] = randomVector(32)
	}
	info, err := c.CreateIndex(ctx, client.CreateIndexOptions{
		Name:    "demo",
		Metric:  "euclidean",
		Params:  &client.BuildParams{Percentage: 0.1, SC: 50, Span: 5, BatchBuild: client.Bool(true)},
		Vectors: vectors,
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("Built %s: %d points, stats %v\n", info.Name, info.Points, info.Stats)

	// 3. Search
	query := randomVector(32)
	for _, b := range []int{1, 4, 16} {
		res, err := c.Search(ctx, "demo", query, 5, b)
		if err != nil {
			panic(err)
		}
		fmt.Printf("b=%d ids=%v distances=%v\n", b, res.IDs, res.Distances)
	}

	// 4. Delete index
	if err := c.DeleteIndex(ctx, "demo"); err != nil {
		panic(err)
	}
	fmt.Println("Deleted index demo")
}

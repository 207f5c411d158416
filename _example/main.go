package main

import (
	"context"
	"fmt"
	"log"
	"net/http/httptest"
	"time"

	"github.com/hupe1980/psmatrix"
	"github.com/hupe1980/psmatrix/blobstore"
	"github.com/hupe1980/psmatrix/codec"
	"github.com/hupe1980/psmatrix/locator"
	"github.com/hupe1980/psmatrix/model"
	"github.com/hupe1980/psmatrix/partition"
	"github.com/hupe1980/psmatrix/shard"
	"github.com/hupe1980/psmatrix/testutil"
	"github.com/hupe1980/psmatrix/transport"
)

func main() {
	ctx := context.Background()

	seed := int64(4711)
	shards := 4
	rows, cols := int64(8), int64(100000)
	rowBlock, colBlock := int64(4), int64(25000)
	k := 10000

	// Shard addresses are only known once the servers listen.
	servers := make([]*shard.Server, shards)
	addrs := make([]string, shards)
	for i := range shards {
		servers[i] = shard.NewServer(shard.Options{Compression: codec.CompressionLZ4})
		ts := httptest.NewServer(servers[i])
		defer ts.Close()
		addrs[i] = ts.URL
	}

	pm, err := partition.NewGrid(1, rows, cols, rowBlock, colBlock, addrs)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("--- Load ---")
	fmt.Println("Shape:", rows, "x", cols)
	fmt.Println("Partitions:", pm.Len())

	start := time.Now()

	for i, srv := range servers {
		if err := srv.LoadMatrix(ctx, pm, addrs[i], model.ElemDouble, testutil.Cell); err != nil {
			log.Fatal(err)
		}
	}

	loc := locator.NewBlobLocator(blobstore.NewMemoryStore(), locator.BlobOptions{})
	if err := loc.Publish(ctx, pm, 1); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Seconds: %.2f\n\n", time.Since(start).Seconds())

	mc := &psmatrix.BasicMetricsCollector{}
	client := psmatrix.New(loc, transport.NewHTTP(transport.HTTPOptions{}),
		psmatrix.WithMetricsCollector(mc),
		psmatrix.WithCompression(codec.CompressionLZ4),
		psmatrix.WithTimeout(2*time.Second),
	)
	defer client.Close()

	indices := testutil.NewRNG(seed).Indices(k, cols)

	fmt.Println("--- Indexed Get ---")

	start = time.Now()

	res, err := client.IndexedGetRow(ctx, 1, 5, indices, model.ElemDouble)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Entries:", res.Len())
	fmt.Println("First:", res.Indices[0], "=", res.Doubles()[0])
	fmt.Printf("Seconds: %.8f\n\n", time.Since(start).Seconds())

	fmt.Println("--- Indexed Update ---")

	start = time.Now()

	delta := make([]float64, len(indices))
	for i := range delta {
		delta[i] = 0.5
	}
	applied, err := client.IndexedUpdate(ctx, 1, 5, indices, model.Doubles(delta), model.UpdateAdd)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Applied:", applied)
	fmt.Printf("Seconds: %.8f\n\n", time.Since(start).Seconds())

	printStats(mc.GetStats())
}

func printStats(s psmatrix.BasicMetricsStats) {
	fmt.Println("--- Stats ---")
	fmt.Printf("Partition calls: %d (errors %d, avg %s)\n", s.CallCount, s.CallErrors, time.Duration(s.CallAvgNanos))
	fmt.Printf("Bytes sent: %d, received: %d\n", s.BytesSent, s.BytesReceived)
}

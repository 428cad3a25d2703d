package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/dataexplorer/engine/internal/enginelog"
	"github.com/dataexplorer/engine/internal/fingerprint"
	"github.com/dataexplorer/engine/internal/indexwriter"
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/sniff"
	"github.com/dataexplorer/engine/internal/streamparse"
)

func main() {
	sizeMB := 500
	if len(os.Args) >= 2 {
		fmt.Sscanf(os.Args[1], "%d", &sizeMB)
	}

	fmt.Printf("Generating %d MB CSV...\n", sizeMB)
	tmpDir, _ := os.MkdirTemp("", "engine_bench")
	defer os.RemoveAll(tmpDir)

	csvPath := filepath.Join(tmpDir, "bench.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		panic(err)
	}

	w := bufio.NewWriterSize(f, 64*1024)
	w.WriteString("id,code,value,description\n")

	bytesWritten := int64(0)
	limit := int64(sizeMB) * 1024 * 1024
	rows := 0
	buf := make([]byte, 0, 1024)
	rng := rand.New(rand.NewSource(123))

	for bytesWritten < limit {
		rows++
		buf = buf[:0]
		buf = fmt.Appendf(buf, "%d,US-%d,%d,\"Description for item %d with some padding to make it longer\"\n",
			rows, rng.Intn(1000), rng.Intn(10000), rows)
		n, _ := w.Write(buf)
		bytesWritten += int64(n)
	}
	w.Flush()
	f.Close()

	fmt.Printf("Generated %d rows (%.2f MB)\n", rows, float64(bytesWritten)/1024/1024)

	fmt.Println("Starting indexing...")

	idx, err := searchindex.Open(filepath.Join(tmpDir, "search.db"))
	if err != nil {
		panic(err)
	}
	defer idx.Close()

	fileID, size, _, err := fingerprint.OfFile(csvPath)
	if err != nil {
		panic(err)
	}
	sniffed, err := sniff.Sniff(csvPath)
	if err != nil {
		panic(err)
	}

	req := indexwriter.Request{
		FileID:    fileID,
		Path:      csvPath,
		Name:      "bench.csv",
		Size:      size,
		Format:    sniffed.Format,
		Delimiter: sniffed.Delimiter,
		IndexDir:  tmpDir,
	}

	log := enginelog.New()
	start := time.Now()
	res, err := indexwriter.Write(context.Background(), idx, req, log, func(p streamparse.Progress) {})
	if err != nil {
		panic(err)
	}
	elapsed := time.Since(start)

	mbPerSec := float64(bytesWritten) / 1024 / 1024 / elapsed.Seconds()
	fmt.Printf("\n--------------------------------------------------\n")
	fmt.Printf("Records:    %d (warnings: %d)\n", res.TotalRecords, res.Warnings)
	fmt.Printf("Throughput: %.2f MB/s\n", mbPerSec)
	fmt.Printf("Time:       %v\n", elapsed)
	fmt.Printf("--------------------------------------------------\n")
}

package streamparse

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultChunkSize is the bounded read size used by Run; 32 MiB keeps peak
// memory for a single parse job well below what a multi-gigabyte source
// file would otherwise demand.
const DefaultChunkSize = 32 << 20

// DefaultProgressInterval is how often onProgress is invoked at most.
const DefaultProgressInterval = 100 * time.Millisecond

// Options configures a Run call; a zero value uses the package defaults.
type Options struct {
	ChunkSize        int
	ProgressInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	return o
}

// Run drives p over path in bounded chunks, carrying unconsumed bytes
// forward across reads. onRecord is called for every emission the parser
// produces; onProgress is throttled to at most once per Options.ProgressInterval
// plus a final call once the file is exhausted. Cancellation is checked at
// chunk boundaries, so cancel-to-return latency is bounded by the time to
// read and feed one chunk.
func Run(ctx context.Context, path string, p Parser, opts Options, onRecord func(Emission), onProgress func(Progress)) (Result, error) {
	opts = opts.withDefaults()

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("streamparse: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("streamparse: stat %s: %w", path, err)
	}
	size := info.Size()

	var (
		pending      []byte
		base         int64
		totalRead    int64
		recordsSoFar int64
	)
	start := time.Now()
	lastProgress := start
	buf := make([]byte, opts.ChunkSize)

	emit := func(e Emission) {
		recordsSoFar++
		if onRecord != nil {
			onRecord(e)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return Result{Status: StatusCancelled, Columns: p.Columns(), TotalRecords: recordsSoFar, Warnings: p.Warnings()}, nil
		default:
		}

		n, rerr := f.Read(buf)
		atEOF := rerr == io.EOF
		if n > 0 {
			pending = append(pending, buf[:n]...)
			totalRead += int64(n)
		}
		if rerr != nil && rerr != io.EOF {
			return Result{}, fmt.Errorf("streamparse: read %s: %w", path, rerr)
		}

		consumed, ferr := p.Feed(pending, base, atEOF, emit)
		if ferr != nil {
			return Result{}, fmt.Errorf("streamparse: parse %s: %w", path, ferr)
		}
		base += int64(consumed)
		pending = pending[consumed:]

		if onProgress != nil && time.Since(lastProgress) >= opts.ProgressInterval {
			onProgress(progressAt(totalRead, size, recordsSoFar, start))
			lastProgress = time.Now()
		}

		if atEOF {
			break
		}
	}

	if onProgress != nil {
		onProgress(Progress{Percent: 100, RecordsSoFar: recordsSoFar, ETA: 0})
	}

	return Result{
		Status:       StatusComplete,
		Columns:      p.Columns(),
		TotalRecords: recordsSoFar,
		Warnings:     p.Warnings(),
	}, nil
}

func progressAt(bytesRead, size int64, records int64, start time.Time) Progress {
	if size <= 0 {
		return Progress{Percent: 100, RecordsSoFar: records}
	}
	percent := float64(bytesRead) / float64(size) * 100
	elapsed := time.Since(start)
	var eta time.Duration
	if bytesRead > 0 {
		bytesPerSecond := float64(bytesRead) / elapsed.Seconds()
		if bytesPerSecond > 0 {
			remaining := size - bytesRead
			eta = time.Duration(float64(remaining)/bytesPerSecond) * time.Second
		}
	}
	return Progress{Percent: percent, RecordsSoFar: records, ETA: eta}
}

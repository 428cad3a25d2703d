// Command engineshell is a minimal embeddable host for the indexing/query
// engine: a Unix-socket, line-delimited-JSON daemon that dispatches each
// line to one internal/engineapi operation and writes back one JSON line
// per request. It exists as a smoke-test harness for engineapi and a
// reference for how a real desktop shell would drive the engine out of
// process, grounded on the teacher's Unix-socket accept-loop/semaphore/
// idle-timeout daemon (internal/server.UDSDaemon) with the request
// dispatch replaced end to end: the teacher's ad hoc CSV query actions
// become the twelve request-API calls engineapi exposes.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dataexplorer/engine/internal/config"
	"github.com/dataexplorer/engine/internal/enginerr"
	"github.com/dataexplorer/engine/internal/engineapi"
)

func main() {
	socketPath := flag.String("socket", defaultSocketPath(), "unix socket path to listen on")
	indexDir := flag.String("index-dir", "indexes", "directory holding search.db and index artifacts")
	configPath := flag.String("config", "", "optional TOML config file")
	maxConcurrency := flag.Int("max-concurrency", 50, "maximum concurrent in-flight requests")
	idleTimeout := flag.Duration("idle-timeout", 30*time.Second, "per-connection idle timeout")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "engineshell: load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *indexDir != "" {
		cfg.IndexDir = *indexDir
	}

	engine, err := engineapi.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engineshell: open engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	d := &daemon{
		engine:      engine,
		sem:         make(chan struct{}, *maxConcurrency),
		shutdown:    make(chan struct{}),
		idleTimeout: *idleTimeout,
	}
	if err := d.run(*socketPath); err != nil {
		fmt.Fprintf(os.Stderr, "engineshell: %v\n", err)
		os.Exit(1)
	}
}

func defaultSocketPath() string {
	if p := os.Getenv("ENGINESHELL_SOCKET"); p != "" {
		return p
	}
	return "/tmp/dataexplorer-engine.sock"
}

// daemon accepts connections on a Unix socket and dispatches each
// newline-delimited JSON request to the embedded engine, one goroutine per
// connection, bounded by sem.
type daemon struct {
	engine      *engineapi.Engine
	sem         chan struct{}
	shutdown    chan struct{}
	idleTimeout time.Duration
	wg          sync.WaitGroup
}

func (d *daemon) run(socketPath string) error {
	if _, err := os.Stat(socketPath); err == nil {
		os.Remove(socketPath)
	}
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("bind socket %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		d.Shutdown(listener)
	}()

	fmt.Printf("engineshell listening on %s\n", socketPath)

	for {
		select {
		case <-d.shutdown:
			d.wg.Wait()
			return nil
		default:
		}

		if ul, ok := listener.(*net.UnixListener); ok {
			_ = ul.SetDeadline(time.Now().Add(time.Second))
		}
		conn, err := listener.Accept()
		if err != nil {
			if opErr, ok := err.(*net.OpError); ok && opErr.Timeout() {
				continue
			}
			select {
			case <-d.shutdown:
				d.wg.Wait()
				return nil
			default:
				fmt.Fprintf(os.Stderr, "engineshell: accept error: %v\n", err)
				continue
			}
		}

		d.wg.Add(1)
		go d.handleConnection(conn)
	}
}

func (d *daemon) Shutdown(listener net.Listener) {
	close(d.shutdown)
	listener.Close()
}

func (d *daemon) handleConnection(conn net.Conn) {
	defer d.wg.Done()
	defer conn.Close()

	select {
	case d.sem <- struct{}{}:
		defer func() { <-d.sem }()
	case <-d.shutdown:
		return
	}

	reader := bufio.NewReader(conn)
	for {
		select {
		case <-d.shutdown:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(d.idleTimeout))
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		response := d.dispatch(line)
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		conn.Write(response)
		conn.Write([]byte("\n"))
	}
}

func errorLine(err error) []byte {
	data, _ := json.Marshal(map[string]string{"error": enginerr.Payload(err)})
	return data
}

func okLine(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return errorLine(err)
	}
	return data
}

package randprime

import (
	"bufio"
	"context"
	"fmt"
	"math/big"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/containerd/log"
	"github.com/moby/sys/reexec"
	"golang.org/x/sync/errgroup"

	"github.com/zprime137/iz/errdefs"
	"github.com/zprime137/iz/iz"
)

// workerName is the reexec initializer under which worker processes
// run the single-process search.
const workerName = "iz-randprime-worker"

func init() {
	reexec.Register(workerName, workerMain)
}

// searchParallel runs the search in opts.Workers isolated processes
// sharing one pipe. Workers publish their candidate as a decimal
// string terminated by a NUL byte; the parent takes the first
// complete candidate, terminates the rest, and reaps them. A worker
// killed mid-write leaves at most a truncated trailing record, which
// the parent never reads past the first NUL.
func searchParallel(ctx context.Context, lane iz.Lane, bitSize int, opts Options) (*big.Int, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, errdefs.System(fmt.Errorf("randprime: creating candidate pipe: %w", err))
	}
	defer r.Close()

	cmds := make([]*exec.Cmd, 0, opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		cmd := reexec.Command(workerName,
			strconv.Itoa(int(lane)),
			strconv.Itoa(bitSize),
			strconv.Itoa(opts.Rounds),
			strconv.Itoa(opts.Attempts),
		)
		cmd.Stdout = w
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			w.Close()
			terminate(cmds)
			return nil, errdefs.System(fmt.Errorf("randprime: starting worker: %w", err))
		}
		cmds = append(cmds, cmd)
	}
	// The children hold their own copies of the write end.
	w.Close()

	type result struct {
		candidate string
		err       error
	}
	resultCh := make(chan result, 1)
	go func() {
		s, err := bufio.NewReader(r).ReadString('\x00')
		resultCh <- result{candidate: s, err: err}
	}()

	select {
	case <-ctx.Done():
		terminate(cmds)
		return nil, ctx.Err()
	case res := <-resultCh:
		terminate(cmds)
		if res.err != nil {
			// EOF without a candidate means every worker died early.
			return nil, errdefs.System(fmt.Errorf("randprime: no candidate from %d workers: %w", opts.Workers, res.err))
		}
		p, ok := new(big.Int).SetString(strings.TrimSuffix(res.candidate, "\x00"), 10)
		if !ok {
			return nil, errdefs.System(fmt.Errorf("randprime: malformed candidate from worker"))
		}
		return p, nil
	}
}

// terminate kills and reaps the given workers. Kill-then-wait is the
// contract from the concurrency model: workers need not be
// interruption-safe, only prompt to exit.
func terminate(cmds []*exec.Cmd) {
	var g errgroup.Group
	for _, cmd := range cmds {
		_ = cmd.Process.Kill()
		g.Go(func() error {
			_ = cmd.Wait()
			return nil
		})
	}
	_ = g.Wait()
}

// workerMain is the entry point of a worker process. It re-derives
// its own caches, runs the single-process search, and writes the
// decimal candidate plus a NUL terminator to stdout.
func workerMain() {
	if len(os.Args) != 5 {
		fmt.Fprintf(os.Stderr, "%s: want 4 args, got %d\n", workerName, len(os.Args)-1)
		os.Exit(1)
	}
	lane, err0 := strconv.Atoi(os.Args[1])
	bitSize, err1 := strconv.Atoi(os.Args[2])
	rounds, err2 := strconv.Atoi(os.Args[3])
	attempts, err3 := strconv.Atoi(os.Args[4])
	for _, err := range []error{err0, err1, err2, err3} {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", workerName, err)
			os.Exit(1)
		}
	}

	vx, err := maxVxForBits(bitSize)
	if err != nil {
		log.L.WithError(err).Error("randprime worker: cache initialization failed")
		os.Exit(1)
	}
	p, err := searchInIZm(context.Background(), iz.Lane(lane), vx, rounds, attempts)
	if err != nil {
		log.L.WithError(err).Error("randprime worker: search failed")
		os.Exit(1)
	}

	if _, err := os.Stdout.WriteString(p.Text(10) + "\x00"); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

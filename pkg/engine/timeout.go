package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/cadscene/pkg/cad"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

type evalResult struct {
	doc    *cad.Document
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, failing once EvalTimeout has
// elapsed. Results from an evaluation that a newer call has superseded are
// discarded.
//
// On timeout the goroutine may still be running; the generation check
// discards its result when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*cad.Document, []EvalError, error) {
	return waitFor(ch, gen, mu, currentGen, EvalTimeout)
}

func waitFor(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	limit time.Duration,
) (*cad.Document, []EvalError, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.doc, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", limit)
	}
}

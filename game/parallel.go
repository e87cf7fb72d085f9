package game

import (
	"math"
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/scriptbots/components"
	"github.com/pthm-cable/scriptbots/neural"
)

// parallelThreshold is the minimum agent count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// agentSnapshot captures the per-tick state every stage reads. It is built
// once at Sense and stays valid until the first structural change of the tick.
type agentSnapshot struct {
	Entity   ecs.Entity
	ID       uint32
	X, Y     float32
	Heading  float32
	Health   float32
	Red      float32
	Green    float32
	Blue     float32
	WheelMax float32
	Shout    float32
	Genome   components.Genome

	// Share backing arrays with the Sensors component
	In  []float32
	Out []float32

	Brain neural.Brain
}

// workChunk represents a range of snapshots for a worker to process.
type workChunk struct {
	start, end int
}

// parallelState holds resources for the parallel Think stage.
type parallelState struct {
	snapshots  []agentSnapshot
	numWorkers int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState() *parallelState {
	return &parallelState{
		numWorkers: runtime.GOMAXPROCS(0),
		snapshots:  make([]agentSnapshot, 0, 512),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.thinkChunk(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// think runs every brain for the current snapshots. Each brain only touches
// its own agent's buffers, so chunks need no locking.
func (p *parallelState) think() {
	n := len(p.snapshots)
	if n == 0 {
		return
	}
	if n < parallelThreshold {
		p.thinkChunk(0, n)
		return
	}

	if !p.running {
		p.startWorkers()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	// Dispatch chunks to workers
	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	// Barrier before Act
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}

// thinkChunk ticks the brains of snapshots [i0, i1).
func (p *parallelState) thinkChunk(i0, i1 int) {
	for i := i0; i < i1; i++ {
		snap := &p.snapshots[i]
		if snap.Brain == nil {
			clear(snap.Out)
			continue
		}
		snap.Brain.Tick(snap.In, snap.Out)
		sanitizeOutputs(snap.Out)
	}
}

// sanitizeOutputs replaces non-finite values with 0 and clamps to [0, 1].
func sanitizeOutputs(out []float32) {
	for i, v := range out {
		switch {
		case math.IsNaN(float64(v)) || math.IsInf(float64(v), 0):
			out[i] = 0
		case v < 0:
			out[i] = 0
		case v > 1:
			out[i] = 1
		}
	}
}

package skeleton

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"bone-pruner/internal/mathutil"
	"bone-pruner/internal/scene"
)

// Options controls a Prune run.
type Options struct {
	// Workers bounds how many bindings are processed at once. Zero means
	// runtime.NumCPU().
	Workers int

	// Persist is called once per changed binding after its new arrays are
	// in place and before any node is destroyed.
	Persist func(b *scene.Binding) error

	// Progress, if set, is called from worker goroutines after each binding.
	Progress func(done, total int)
}

// BindingResult describes what happened to one binding.
type BindingResult struct {
	Name        string
	Mesh        string
	Changed     bool
	Skipped     bool // no root bone
	BonesBefore int
	BonesAfter  int
}

// Report is the outcome of Prune.
type Report struct {
	Bindings  []BindingResult
	Tombstone *scene.Tombstone
	BoneCount int
	Roots     []*BoneInfo // forest rebuilt from the pruned model
}

// Changed counts the bindings that were rewritten.
func (r *Report) Changed() int {
	n := 0
	for _, b := range r.Bindings {
		if b.Changed {
			n++
		}
	}
	return n
}

type pruned struct {
	bones   []scene.NodeID
	poses   []mathutil.Mat4
	weights []scene.VertexWeight
	changed bool
	err     error
}

// committed holds a binding's arrays as they were before Prune replaced them.
type committed struct {
	b       *scene.Binding
	bones   []scene.NodeID
	poses   []mathutil.Mat4
	weights []scene.VertexWeight
}

// Prune removes the bones in del from m: every binding is retargeted and
// compacted, changed bindings are committed and persisted, and only then are
// the bones' scene nodes destroyed. On any error m is left untouched: a
// Persist or Destroy failure restores every binding committed so far. Assets
// already written by Persist stay as written.
func Prune(m *scene.Model, del DeletionSet, opts Options) (*Report, error) {
	total := len(m.Bindings)
	results := make([]pruned, total)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var processed atomic.Int64
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = pruneBinding(m.Graph, m.Bindings[idx], del)
				done := processed.Add(1)
				if opts.Progress != nil {
					opts.Progress(int(done), total)
				}
			}
		}()
	}
	for i := range m.Bindings {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	var saved []committed
	rollback := func() {
		for i := len(saved) - 1; i >= 0; i-- {
			c := saved[i]
			c.b.Bones, c.b.BindPoses, c.b.Weights = c.bones, c.poses, c.weights
		}
	}

	report := &Report{Bindings: make([]BindingResult, total)}
	for i, b := range m.Bindings {
		r := results[i]
		report.Bindings[i] = BindingResult{
			Name:        b.Name,
			Mesh:        b.Mesh,
			Changed:     r.changed,
			Skipped:     b.RootBone == scene.NoNode,
			BonesBefore: len(b.Bones),
			BonesAfter:  len(b.Bones),
		}
		if !r.changed {
			continue
		}
		saved = append(saved, committed{b: b, bones: b.Bones, poses: b.BindPoses, weights: b.Weights})
		b.Bones, b.BindPoses, b.Weights = r.bones, r.poses, r.weights
		report.Bindings[i].BonesAfter = len(b.Bones)
		if opts.Persist != nil {
			if err := opts.Persist(b); err != nil {
				rollback()
				return nil, fmt.Errorf("skeleton: persist %s: %w", b.Name, err)
			}
		}
	}

	tomb, err := Destroy(m, del)
	if err != nil {
		rollback()
		return nil, err
	}
	report.Tombstone = tomb
	report.Roots = Extract(m)
	report.BoneCount = BoneCount(m, true)
	return report, nil
}

func pruneBinding(g *scene.Graph, b *scene.Binding, del DeletionSet) pruned {
	rt, err := Retarget(g, b, del)
	if err != nil {
		return pruned{err: err}
	}
	if !rt.Changed {
		return pruned{}
	}
	bones, poses, err := Compact(b.Bones, b.BindPoses, rt.Weights, rt.Removed)
	if err != nil {
		return pruned{err: fmt.Errorf("%s: %w", b.Name, err)}
	}
	return pruned{bones: bones, poses: poses, weights: rt.Weights, changed: true}
}

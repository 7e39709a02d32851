// Package pinout compiles CUE port declarations into typed signal and
// parameter maps.
//
// A declaration names every signal of a circuit block together with its
// bit width and direction, plus the block's read-only parameters (clock
// frequency, baud rate, bit depth). Model constructors validate their pin
// expectations against the declaration before a single edge is simulated,
// so width and direction mismatches fail at configuration time, not
// mid-scenario.
package pinout

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/bitbench/bitbench/internal/sim"
)

//go:embed decl.cue
var defaultDecl string

// SignalDecl is one declared pin: bit width plus direction relative to the
// circuit under test.
type SignalDecl struct {
	Width uint
	Dir   sim.Dir
}

// Block is the compiled declaration of one circuit: its parameters and its
// complete pin map.
type Block struct {
	Name    string
	Params  map[string]int64
	Signals map[string]SignalDecl
}

// LoadDefault compiles the embedded declaration set.
func LoadDefault() (map[string]Block, error) {
	return Load(defaultDecl)
}

// Load compiles CUE source into a block map. The source must define a
// top-level "blocks" struct conforming to the #Block schema.
func Load(src string) (map[string]Block, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("pinout.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("pinout: compile: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("pinout: validate: %w", err)
	}

	blocksVal := v.LookupPath(cue.ParsePath("blocks"))
	if !blocksVal.Exists() {
		return nil, fmt.Errorf("pinout: no blocks declared")
	}

	iter, err := blocksVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("pinout: %w", err)
	}

	blocks := make(map[string]Block)
	for iter.Next() {
		blk, err := parseBlock(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		blocks[blk.Name] = blk
	}
	return blocks, nil
}

func parseBlock(name string, v cue.Value) (Block, error) {
	blk := Block{
		Name:    name,
		Params:  make(map[string]int64),
		Signals: make(map[string]SignalDecl),
	}

	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if paramsVal.Exists() {
		iter, err := paramsVal.Fields()
		if err != nil {
			return Block{}, fmt.Errorf("pinout: block %s: %w", name, err)
		}
		for iter.Next() {
			val, err := iter.Value().Int64()
			if err != nil {
				return Block{}, fmt.Errorf("pinout: block %s: param %s: %w", name, iter.Label(), err)
			}
			blk.Params[iter.Label()] = val
		}
	}

	signalsVal := v.LookupPath(cue.ParsePath("signals"))
	if !signalsVal.Exists() {
		return Block{}, fmt.Errorf("pinout: block %s: no signals declared", name)
	}
	iter, err := signalsVal.Fields()
	if err != nil {
		return Block{}, fmt.Errorf("pinout: block %s: %w", name, err)
	}
	for iter.Next() {
		decl, err := parseSignal(iter.Value())
		if err != nil {
			return Block{}, fmt.Errorf("pinout: block %s: signal %s: %w", name, iter.Label(), err)
		}
		blk.Signals[iter.Label()] = decl
	}
	return blk, nil
}

func parseSignal(v cue.Value) (SignalDecl, error) {
	dirStr, err := v.LookupPath(cue.ParsePath("dir")).String()
	if err != nil {
		return SignalDecl{}, fmt.Errorf("dir: %w", err)
	}
	var dir sim.Dir
	switch dirStr {
	case "in":
		dir = sim.DirIn
	case "out":
		dir = sim.DirOut
	default:
		return SignalDecl{}, fmt.Errorf("dir: %q is not in|out", dirStr)
	}

	width, err := v.LookupPath(cue.ParsePath("width")).Int64()
	if err != nil {
		return SignalDecl{}, fmt.Errorf("width: %w", err)
	}
	if width < 1 || width > 64 {
		return SignalDecl{}, fmt.Errorf("width: %d out of range 1..64", width)
	}
	return SignalDecl{Width: uint(width), Dir: dir}, nil
}

// Param returns a named parameter or an error naming the block.
func (b Block) Param(name string) (int64, error) {
	v, ok := b.Params[name]
	if !ok {
		return 0, fmt.Errorf("pinout: block %s: no param %s", b.Name, name)
	}
	return v, nil
}

// Require checks that the block declares a signal with exactly the given
// width and direction. Model constructors call this for every pin they
// bind.
func (b Block) Require(name string, width uint, dir sim.Dir) error {
	decl, ok := b.Signals[name]
	if !ok {
		return fmt.Errorf("pinout: block %s: no signal %s", b.Name, name)
	}
	if decl.Width != width || decl.Dir != dir {
		return fmt.Errorf("pinout: block %s: signal %s declared %s[%d], model wants %s[%d]",
			b.Name, name, decl.Dir, decl.Width, dir, width)
	}
	return nil
}

// Declare creates every signal of the block in the simulator and returns
// them by name.
func (b Block) Declare(s *sim.Simulator) (map[string]*sim.Signal, error) {
	signals := make(map[string]*sim.Signal, len(b.Signals))
	for name, decl := range b.Signals {
		sig, err := s.NewSignal(name, decl.Width, decl.Dir)
		if err != nil {
			return nil, fmt.Errorf("pinout: block %s: %w", b.Name, err)
		}
		signals[name] = sig
	}
	return signals, nil
}

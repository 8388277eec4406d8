// Package assemble turns a parsed program into a complete module: it runs the
// checker and normalizer, compiles the entry procedure and packages it with
// the intrinsic imports, the diagnostic table and the heap frontier.
package assemble

import (
	"fmt"
	"log/slog"

	"github.com/tinyrange/arrayc/internal/ast"
	"github.com/tinyrange/arrayc/internal/check"
	"github.com/tinyrange/arrayc/internal/codegen"
	"github.com/tinyrange/arrayc/internal/config"
	"github.com/tinyrange/arrayc/internal/ir"
	"github.com/tinyrange/arrayc/internal/normalize"
	"github.com/tinyrange/arrayc/internal/runtime"
)

const (
	// Entrypoint names the single exported procedure.
	Entrypoint = "main"

	// FreePtr is the global cell holding the heap frontier.
	FreePtr ir.GlobalVar = "@free_ptr"

	CapacityMessage = "ArraySizeError"
	IndexMessage    = "IndexError"

	heapAlign = 8
)

// messageTable lays the diagnostics out from offset 0.
func messageTable() ([]byte, codegen.Messages) {
	data := []byte(CapacityMessage + IndexMessage)
	return data, codegen.Messages{
		Capacity: codegen.Message{Offset: 0, Length: int32(len(CapacityMessage))},
		Index:    codegen.Message{Offset: int32(len(CapacityMessage)), Length: int32(len(IndexMessage))},
	}
}

// HeapStart returns the first address available to the allocator.
func HeapStart() int64 {
	data, _ := messageTable()
	return alignUp(int64(len(data)), heapAlign)
}

func alignUp(v, align int64) int64 {
	return (v + align - 1) / align * align
}

// Assemble compiles mod under cfg. The module's expression nodes are
// annotated with their types in place. No program is returned on error.
func Assemble(mod *ast.Module, cfg config.Config) (*ir.Program, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tier := cfg.Tier()

	env, err := check.Module(mod, tier)
	if err != nil {
		return nil, err
	}
	norm, temps, err := normalize.Module(mod, env)
	if err != nil {
		return nil, err
	}

	data, messages := messageTable()
	heapStart := HeapStart()
	if tier == ast.TierArray && heapStart+codegen.HeaderSize+cfg.MaxArrayByteSize > cfg.MemoryBytes() {
		return nil, fmt.Errorf("assemble: memory of %d bytes cannot hold the data segment and one maximal array", cfg.MemoryBytes())
	}

	c, err := codegen.New(codegen.Config{
		Tier:             tier,
		MaxArrayByteSize: cfg.MaxArrayByteSize,
		Messages:         messages,
		FreePtr:          FreePtr,
	})
	if err != nil {
		return nil, err
	}
	body, err := c.CompileStmts(norm.Stmts)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	locals, err := buildLocals(env, temps, c.ScratchLocals())
	if err != nil {
		return nil, err
	}

	prog := &ir.Program{
		Entrypoint: Entrypoint,
		Imports:    runtime.Imports(),
		Memory: ir.Memory{
			Module: runtime.Module,
			Name:   runtime.MemoryName,
			Pages:  cfg.MemoryPages,
		},
		Data: []ir.DataSegment{{Offset: 0, Bytes: data}},
		Funcs: []ir.Func{{
			Name:   Entrypoint,
			Export: Entrypoint,
			Locals: locals,
			Body:   body,
		}},
	}
	if tier == ast.TierArray {
		prog.Globals = []ir.GlobalConfig{{
			Name:    FreePtr,
			Type:    ir.I32,
			Mutable: true,
			Init:    heapStart,
		}}
	}
	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	slog.Debug("assembled module",
		"lang", cfg.Lang,
		"locals", len(locals),
		"temporaries", len(temps),
		"instructions", len(ir.Lines(body)),
		"data_bytes", len(data),
		"heap_start", heapStart,
	)
	return prog, nil
}

// buildLocals orders slots as source variables by name, then temporaries in
// creation order, then compiler scratch slots.
func buildLocals(env ast.Env, temps []ast.Local, scratch []ir.Local) ([]ir.Local, error) {
	locals := make([]ir.Local, 0, len(env)+len(temps)+len(scratch))
	for _, name := range env.Names() {
		vt, err := codegen.ValType(env[name])
		if err != nil {
			return nil, fmt.Errorf("assemble: variable %s: %w", name, err)
		}
		locals = append(locals, ir.Local{Name: ir.Var(name), Type: vt})
	}
	for _, tmp := range temps {
		vt, err := codegen.ValType(tmp.Type)
		if err != nil {
			return nil, fmt.Errorf("assemble: temporary %s: %w", tmp.Name, err)
		}
		locals = append(locals, ir.Local{Name: ir.Var(tmp.Name), Type: vt})
	}
	return append(locals, scratch...), nil
}

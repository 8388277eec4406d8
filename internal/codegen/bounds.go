package codegen

import (
	"github.com/tinyrange/arrayc/internal/ir"
	"github.com/tinyrange/arrayc/internal/runtime"
)

// report writes a diagnostic and halts. It never falls through.
func (c *Compiler) report(msg Message) ir.Block {
	return ir.Block{
		ir.Int32(msg.Offset),
		ir.Int32(msg.Length),
		ir.Call(runtime.ReportError),
		ir.Trap(),
	}
}

// guard traps with msg when cond leaves a non-zero i32.
func (c *Compiler) guard(cond ir.Block, msg Message) ir.Block {
	return ir.Flatten(cond, ir.If(ir.NoResult, c.report(msg)))
}

// capacityGuards rejects a requested length that is negative, whose byte
// size exceeds the configured maximum, or that does not fit in a header.
// The size test compares against the largest permitted length so a huge
// request cannot wrap the product.
func (c *Compiler) capacityGuards(length ir.Block, width int64) ir.Block {
	maxLen := min(c.cfg.MaxArrayByteSize/width, MaxLength)
	return ir.Flatten(
		c.guard(ir.Flatten(
			length,
			ir.Int64(maxLen),
			ir.Compare(ir.I64, ir.CompareGreater),
		), c.cfg.Messages.Capacity),
		c.guard(ir.Flatten(
			length,
			ir.Int64(0),
			ir.Compare(ir.I64, ir.CompareLess),
		), c.cfg.Messages.Capacity),
	)
}

// accessGuards permits index iff 0 <= index < length, re-reading the length
// from the header on every access.
func (c *Compiler) accessGuards(arr, index ir.Block) ir.Block {
	return ir.Flatten(
		c.guard(ir.Flatten(
			index,
			ir.Int64(0),
			ir.Compare(ir.I64, ir.CompareLess),
		), c.cfg.Messages.Index),
		c.guard(ir.Flatten(
			index,
			lengthOf(arr),
			ir.Compare(ir.I64, ir.CompareGreaterOrEqual),
		), c.cfg.Messages.Index),
	)
}

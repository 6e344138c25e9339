// Package mir is the in-memory instruction representation shared by the
// lowering, optimization, register allocation and scheduling stages.
//
// An Instruction describes one logical operation rather than an
// instruction group; the scheduler later combines instructions into
// VLIW bundles. Value indices are block-local SSA temporaries until
// register allocation rewrites them to physical registers.
package mir

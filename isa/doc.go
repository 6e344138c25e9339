// Package isa models the Midgard instruction set: opcode tables, unit
// masks, bundle tags, register aliases, and the bit-exact encodings of
// the three instruction families (ALU, load/store, texture).
//
// Everything in this package is static, read-only data plus pure
// pack/unpack functions. Compilation state lives in the mir package.
package isa

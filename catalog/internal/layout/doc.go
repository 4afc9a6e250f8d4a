// Package layout computes Canonical ABI sizes, alignments and field offsets
// for WIT types as they appear in a guest's linear memory.
//
// # Layout Rules
//
//   - Primitives: size equals alignment (u8=1, u32=4, u64=8, etc.)
//   - Records and tuples: fields laid out sequentially with padding for alignment
//   - Variants, options and results: discriminant followed by largest payload
//   - Lists/Strings: (pointer, length) pair in memory, content elsewhere
//   - Handles: a 32-bit index
//
// The catalog package uses these layouts to turn WIT definitions into type
// records.
package layout

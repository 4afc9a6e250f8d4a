// Package catalog provides sources of type records for the typedb package.
//
// Type files are chosen by extension through a format registry. YAML
// (.yaml, .yml) and JSON (.json) files use the same document:
//
//	version: 1.0.0
//	types:
//	  - id: 256
//	    name: Point
//	    kind: struct
//	    extent: 8
//	    members:
//	      - {name: x, offset: 0, type: 2}
//	      - {name: y, offset: 4, type: 2}
//
// Struct members may also be given as parallel offsets, types and sizes
// arrays with a member_count, and a bare sequence of type entries is read as
// an unversioned document. Files with the .wit.json suffix hold resolved WIT
// packages and are converted with the Canonical ABI layout of a 32-bit guest.
package catalog

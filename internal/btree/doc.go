// Package btree reads the two HDF5 B-tree generations and writes the
// version 1 chunk index.
//
// Version 1 trees ("TREE") index old-style group symbol tables and
// chunked dataset storage. Group nodes point at symbol table nodes
// ("SNOD") whose names live in a local heap; chunk nodes key on the
// chunk's starting element coordinates. The writer emits a single leaf
// sized for the default node K, which covers the chunk counts this
// library produces.
//
// Version 2 trees ("BTHD"/"BTIN"/"BTLF") index chunks in newer files,
// with record types 10 (unfiltered) and 11 (filtered). Records store
// scaled chunk coordinates; readers return element coordinates so both
// generations look the same to callers. All version 2 blocks carry
// lookup3 checksums and are verified on read.
package btree

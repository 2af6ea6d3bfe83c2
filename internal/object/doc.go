// Package object reads and writes HDF5 object headers.
//
// An object header is the anchor of every group and dataset. It carries a
// sequence of header messages (dataspace, datatype, fill value, data layout,
// filter pipeline, links, attributes) that together describe the object.
//
// Two header formats exist. Version 1 headers date from the original file
// format: unsigned message counts, 8-byte alignment between messages and no
// checksums. Version 2 headers start with the "OHDR" signature, pack their
// messages without padding and end in a Jenkins lookup3 checksum; oversized
// message sets spill into "OCHK" continuation blocks. ReadHeader accepts
// both. The write path always produces version 2 headers in a single chunk.
package object

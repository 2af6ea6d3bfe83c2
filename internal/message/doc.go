// Package message decodes and encodes HDF5 object header messages.
//
// Every property of an HDF5 object lives in a header message: the
// dataspace (0x0001) gives a dataset its shape, the datatype (0x0003)
// its element encoding, the data layout (0x0008) its storage strategy,
// the filter pipeline (0x000B) its chunk codecs, and link messages
// (0x0006) stitch groups together. [Parse] dispatches on the message
// type and returns a concrete value behind the [Message] interface;
// types this package does not understand come back as [Unknown] so that
// files written by newer libraries still open.
//
// Messages that the write path produces also implement [Serializable].
// Serialization targets the formats current HDF5 tools emit for new
// files: version 2 dataspaces, version 3 fill values and attributes,
// version 2 filter pipelines, and version 3 or 4 data layouts depending
// on the chunk index in use.
package message

// Package superblock reads and writes the HDF5 superblock, the entry
// point of every file.
//
// Reading handles versions 0 through 3. The signature is searched at the
// standard offsets (0, 512, 1024, 2048) so files with user blocks still
// open. Writing always produces a version 3 superblock with a lookup3
// checksum, the form current tools emit for new files.
//
// The parsed [Superblock] fixes the file's address and length field
// widths; [Superblock.Geometry] hands those to the binary package so
// every other structure parses with the right widths.
package superblock

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/h5kit/hdf5/hdf5"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Summarize a file: superblock, objects, attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := hdf5.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fmt.Printf("file:       %s\n", f.Path())
			fmt.Printf("superblock: version %d\n", f.Version())

			groups, datasets := 0, 0
			var bytes uint64
			err = hdf5.Walk(f.Root(), func(p string, obj any, err error) error {
				if err != nil {
					fmt.Printf("  ! %s: %v\n", p, err)
					return nil
				}
				switch o := obj.(type) {
				case *hdf5.Group:
					groups++
				case *hdf5.Dataset:
					datasets++
					bytes += o.NumElements() * uint64(o.DtypeSize())
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("groups:     %d\n", groups)
			fmt.Printf("datasets:   %d (%s of element data)\n", datasets, humanize.IBytes(bytes))
			return nil
		},
	}
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls FILE [PATH]",
		Short: "List a group's children with shapes and types",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := hdf5.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			grp := f.Root()
			if len(args) == 2 && args[1] != "/" {
				if grp, err = f.OpenGroup(args[1]); err != nil {
					return err
				}
			}

			members, err := grp.Members()
			if err != nil {
				return err
			}
			for _, name := range members {
				if sub, err := grp.OpenGroup(name); err == nil {
					n, _ := sub.NumObjects()
					fmt.Printf("%-24s group    %d members\n", name+"/", n)
					continue
				}
				ds, err := grp.OpenDataset(name)
				if err != nil {
					fmt.Printf("%-24s ?        %v\n", name, err)
					continue
				}
				size := humanize.IBytes(ds.NumElements() * uint64(ds.DtypeSize()))
				fmt.Printf("%-24s dataset  %s  %s  %s\n", name, shapeString(ds.Shape()), dtypeString(ds), size)
			}
			return nil
		},
	}
}

func newChunksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chunks FILE DATASET",
		Short: "Print the chunk index of a dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := hdf5.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ds, err := f.OpenDataset(args[1])
			if err != nil {
				return err
			}
			n, err := ds.NumChunks()
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d chunks of %s elements\n", args[1], n, shapeString(ds.ChunkShape()))
			fmt.Printf("%-20s %-12s %-10s %s\n", "OFFSET", "ADDRESS", "SIZE", "MASK")
			for i := 0; i < n; i++ {
				info, err := ds.ChunkInfo(i)
				if err != nil {
					return err
				}
				fmt.Printf("%-20s 0x%-10x %-10s 0x%08x\n",
					shapeString(info.Offset), info.Address, humanize.IBytes(uint64(info.Size)), info.FilterMask)
			}
			return nil
		},
	}
}

func newDumpChunkCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "dump-chunk FILE DATASET OFFSET...",
		Short: "Write a chunk's stored bytes to stdout or a file",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := hdf5.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ds, err := f.OpenDataset(args[1])
			if err != nil {
				return err
			}
			offset := make([]uint64, len(args)-2)
			for i, a := range args[2:] {
				if offset[i], err = strconv.ParseUint(a, 10, 64); err != nil {
					return fmt.Errorf("bad offset %q: %w", a, err)
				}
			}

			mask, data, err := ds.ReadDirectChunk(offset)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "chunk %s: %s, mask 0x%08x\n",
				shapeString(offset), humanize.IBytes(uint64(len(data))), mask)

			if out != "" {
				return os.WriteFile(out, data, 0o644)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write chunk bytes to this file instead of stdout")
	return cmd
}

func shapeString(dims []uint64) string {
	if len(dims) == 0 {
		return "scalar"
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.FormatUint(d, 10)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func dtypeString(ds *hdf5.Dataset) string {
	t, err := ds.GoType()
	if err != nil {
		return fmt.Sprintf("class%d/%dB", ds.DtypeClass(), ds.DtypeSize())
	}
	return t.String()
}

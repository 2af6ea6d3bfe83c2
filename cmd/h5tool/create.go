package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/h5kit/hdf5/hdf5"
)

// manifest describes a file to build: groups by absolute path, then
// datasets with their shape, type, and filters.
type manifest struct {
	Groups   []string          `yaml:"groups"`
	Datasets []datasetManifest `yaml:"datasets"`
}

type datasetManifest struct {
	Path       string         `yaml:"path"`
	Dims       []uint64       `yaml:"dims"`
	MaxDims    []uint64       `yaml:"maxdims"`
	Chunks     []uint64       `yaml:"chunks"`
	Dtype      string         `yaml:"dtype"`
	Deflate    int            `yaml:"deflate"`
	Zstd       int            `yaml:"zstd"`
	LZ4        bool           `yaml:"lz4"`
	Shuffle    bool           `yaml:"shuffle"`
	Fletcher32 bool           `yaml:"fletcher32"`
	Attrs      map[string]any `yaml:"attrs"`
}

func newCreateCmd() *cobra.Command {
	var specPath string
	cmd := &cobra.Command{
		Use:   "create FILE --spec manifest.yaml",
		Short: "Create groups and datasets from a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(specPath)
			if err != nil {
				return err
			}
			var m manifest
			if err := yaml.Unmarshal(raw, &m); err != nil {
				return fmt.Errorf("parsing %s: %w", specPath, err)
			}
			return buildFile(args[0], &m)
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "YAML manifest describing the file")
	cmd.MarkFlagRequired("spec")
	return cmd
}

func buildFile(path string, m *manifest) error {
	f, err := hdf5.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, g := range m.Groups {
		if _, err := ensureGroup(f, g); err != nil {
			return fmt.Errorf("group %s: %w", g, err)
		}
	}

	for _, ds := range m.Datasets {
		if err := buildDataset(f, ds); err != nil {
			return fmt.Errorf("dataset %s: %w", ds.Path, err)
		}
		fmt.Printf("created %s %s %s\n", ds.Path, shapeString(ds.Dims), ds.Dtype)
	}
	return f.Close()
}

// ensureGroup creates the group at an absolute path, parents included.
func ensureGroup(f *hdf5.File, path string) (*hdf5.Group, error) {
	grp := f.Root()
	for _, name := range hdf5.SplitPath(path) {
		child, err := grp.OpenGroup(name)
		if err == nil {
			grp = child
			continue
		}
		if grp, err = grp.CreateGroup(name); err != nil {
			return nil, err
		}
	}
	return grp, nil
}

func buildDataset(f *hdf5.File, m datasetManifest) error {
	parts := hdf5.SplitPath(m.Path)
	if len(parts) == 0 {
		return fmt.Errorf("empty dataset path")
	}
	name := parts[len(parts)-1]
	grp, err := ensureGroup(f, strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return err
	}

	dt, err := parseDtype(m.Dtype)
	if err != nil {
		return err
	}

	var opts []hdf5.DatasetOption
	if m.Chunks != nil {
		opts = append(opts, hdf5.WithChunks(m.Chunks...))
	}
	if m.MaxDims != nil {
		opts = append(opts, hdf5.WithMaxDims(m.MaxDims...))
	}
	if m.Deflate > 0 {
		opts = append(opts, hdf5.WithCompression(m.Deflate))
	}
	if m.Zstd > 0 {
		opts = append(opts, hdf5.WithZstd(m.Zstd))
	}
	if m.LZ4 {
		opts = append(opts, hdf5.WithLZ4(0))
	}
	if m.Shuffle {
		opts = append(opts, hdf5.WithShuffle())
	}
	if m.Fletcher32 {
		opts = append(opts, hdf5.WithFletcher32())
	}
	for name, value := range m.Attrs {
		opts = append(opts, hdf5.WithAttribute(name, normalizeAttr(value)))
	}

	_, err = grp.CreateDatasetWithType(name, m.Dims, dt, opts...)
	return err
}

func parseDtype(s string) (*hdf5.Datatype, error) {
	if rest, ok := strings.CutPrefix(s, "string:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad string size %q", rest)
		}
		return hdf5.FixedStringType(n), nil
	}

	samples := map[string]any{
		"int8": int8(0), "int16": int16(0), "int32": int32(0), "int64": int64(0),
		"uint8": uint8(0), "uint16": uint16(0), "uint32": uint32(0), "uint64": uint64(0),
		"float32": float32(0), "float64": float64(0),
	}
	sample, ok := samples[s]
	if !ok {
		return nil, fmt.Errorf("unknown dtype %q", s)
	}
	return hdf5.TypeOf(sample)
}

// normalizeAttr maps YAML's decoded scalars onto the attribute types
// the library encodes.
func normalizeAttr(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case []any:
		out := make([]int64, 0, len(x))
		for _, e := range x {
			n, ok := e.(int)
			if !ok {
				return v
			}
			out = append(out, int64(n))
		}
		return out
	default:
		return v
	}
}

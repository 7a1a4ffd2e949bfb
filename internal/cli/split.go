package cli

import (
	"log/slog"

	"github.com/mcncl/domtools/internal/codec"
	"github.com/mcncl/domtools/internal/config"
	"github.com/mcncl/domtools/internal/fileio"
	"github.com/mcncl/domtools/internal/splitter"
)

// SplitCmd cuts a document into chunk files.
type SplitCmd struct {
	Input   string  `arg:"" help:"Input JSON file, - for stdin."`
	OutDir  string  `arg:"" help:"Directory receiving the chunk files." type:"path"`
	MaxSize float64 `help:"Maximum chunk size in MB." placeholder:"MB"`
	Field   string  `help:"Array member of an object root to split along." placeholder:"NAME"`
	Prefix  string  `help:"Chunk file name prefix." placeholder:"PREFIX"`
	Codec   string  `help:"Compress chunk files: none, zstd, s2 or lz4." placeholder:"CODEC"`
}

// Run executes the split command.
func (c *SplitCmd) Run(rt *Runtime) error {
	override := &config.Config{}
	override.Split = config.SplitConfig{MaxSizeMB: c.MaxSize, Field: c.Field, Prefix: c.Prefix, Codec: c.Codec}
	rt, err := rt.withOverrides(override)
	if err != nil {
		return err
	}

	s, err := newSplitter(rt)
	if err != nil {
		return err
	}
	data, err := fileio.ReadAll(c.Input, rt.Stdin)
	if err != nil {
		return err
	}
	chunks, err := s.Split(data)
	if err != nil {
		return err
	}
	paths, err := s.Write(c.OutDir, chunks)
	if err != nil {
		return err
	}

	rt.Logger.Info("split complete", slog.Int("chunks", len(paths)), slog.String("dir", c.OutDir))
	return nil
}

// JoinCmd reassembles chunk files in the order given.
type JoinCmd struct {
	Chunks []string `arg:"" optional:"" help:"Chunk files, in order." type:"path"`
	Field  string   `help:"Array member the chunks were split along." placeholder:"NAME"`
	Output string   `short:"o" help:"Output file. Defaults to stdout." type:"path"`
}

// Run executes the join command.
func (c *JoinCmd) Run(rt *Runtime) error {
	if err := requireInput(c.Chunks, "chunk files"); err != nil {
		return err
	}
	override := &config.Config{}
	override.Split.Field = c.Field
	rt, err := rt.withOverrides(override)
	if err != nil {
		return err
	}

	s, err := newSplitter(rt)
	if err != nil {
		return err
	}
	data, err := s.JoinFiles(c.Chunks)
	if err != nil {
		return err
	}
	if fileio.IsStd(c.Output) {
		data = append(data, '\n')
	}
	rt.Logger.Info("join complete", slog.Int("chunks", len(c.Chunks)))
	return fileio.WriteFile(c.Output, rt.Stdout, data)
}

func newSplitter(rt *Runtime) (*splitter.Splitter, error) {
	typ, err := codec.Parse(rt.Config.Split.Codec)
	if err != nil {
		return nil, err
	}
	return splitter.New(splitter.Options{
		MaxBytes: rt.Config.SplitBytes(),
		Field:    rt.Config.Split.Field,
		Prefix:   rt.Config.Split.Prefix,
		Codec:    typ,
		Logger:   rt.Logger,
	})
}

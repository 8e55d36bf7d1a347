package manifest

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/specialistvlad/buildgrid/internal/command"
)

// commandSchema enumerates the command step block types a build or work
// recipe may contain.
var commandSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "run"},
		{Type: "copy"},
		{Type: "copy_tree"},
		{Type: "move"},
		{Type: "remove"},
		{Type: "mkdir"},
		{Type: "write"},
		{Type: "skip_for_incremental"},
	},
}

// decodeCommands translates the command blocks of a recipe body into command
// values. Body content iteration preserves source order, so steps of
// different types run exactly as written.
func decodeCommands(body hcl.Body) ([]command.Command, error) {
	content, diags := body.Content(commandSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decode commands: %w", diags)
	}

	steps := make([]command.Command, 0, len(content.Blocks))
	for _, block := range content.Blocks {
		c, err := decodeCommand(block)
		if err != nil {
			return nil, err
		}
		steps = append(steps, c)
	}
	return steps, nil
}

func decodeCommand(block *hcl.Block) (command.Command, error) {
	switch block.Type {
	case "run":
		var b runBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, fmt.Errorf("decode run block: %w", diags)
		}
		return &command.Run{Argv: b.Argv, Env: b.Env, StdoutTo: b.StdoutTo}, nil
	case "copy":
		var b copyBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, fmt.Errorf("decode copy block: %w", diags)
		}
		return &command.Copy{Src: b.Src, Dst: b.Dst}, nil
	case "copy_tree":
		var b copyBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, fmt.Errorf("decode copy_tree block: %w", diags)
		}
		return &command.CopyTree{Src: b.Src, Dst: b.Dst}, nil
	case "move":
		var b copyBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, fmt.Errorf("decode move block: %w", diags)
		}
		return &command.Move{Src: b.Src, Dst: b.Dst}, nil
	case "remove":
		var b removeBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, fmt.Errorf("decode remove block: %w", diags)
		}
		return &command.Remove{Globs: b.Globs}, nil
	case "mkdir":
		var b mkdirBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, fmt.Errorf("decode mkdir block: %w", diags)
		}
		return &command.Mkdir{Path: b.Path, Parents: b.Parents}, nil
	case "write":
		var b writeBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, fmt.Errorf("decode write block: %w", diags)
		}
		return &command.WriteData{Data: b.Data, Dst: b.Dst}, nil
	case "skip_for_incremental":
		wrapped, err := decodeCommands(block.Body)
		if err != nil {
			return nil, err
		}
		return &command.SkipForIncremental{Wrapped: wrapped}, nil
	}
	return nil, fmt.Errorf("unknown command block %q", block.Type)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/fusabi-lang/fusabi/internal/config"
	"github.com/fusabi-lang/fusabi/pkg/fusabi"
)

// buildInfo is the grind sidecar: a build id and the source path the
// bytecode was ground from, written as <output>.json next to the .fzb
// file itself. It never touches the .fzb payload, which must stay
// byte-for-byte identical for the same input chunk.
type buildInfo struct {
	BuildID string `json:"build_id"`
	Source  string `json:"source"`
}

func grindCmd(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: fusabi grind <path>")
		return exitIO
	}
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fusabi: reading %s: %v\n", path, err)
		return exitIO
	}

	e := fusabi.New()
	chunk, err := e.Compile(string(src))
	if err != nil {
		return reportError(err)
	}
	data, err := e.EncodeChunk(chunk)
	if err != nil {
		return reportError(err)
	}

	outPath := config.TrimSourceExt(path) + config.BytecodeExt
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "fusabi: writing %s: %v\n", outPath, err)
		return exitIO
	}

	info := buildInfo{BuildID: uuid.New().String(), Source: path}
	infoData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fusabi: encoding build info: %v\n", err)
		return exitIO
	}
	if err := os.WriteFile(outPath+".json", infoData, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "fusabi: writing %s.json: %v\n", outPath, err)
		return exitIO
	}

	fmt.Printf("%s: %s (%s)\n", outPath, humanize.Bytes(uint64(len(data))), info.BuildID)
	return exitOK
}

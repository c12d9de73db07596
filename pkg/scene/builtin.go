package scene

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed builtin/*.json
var builtinFiles embed.FS

// Builtin parses one of the scenes compiled into the binary, addressed by its
// file name without extension, e.g. "cornell"
func Builtin(id string) (*Description, error) {
	data, err := builtinFiles.ReadFile(path.Join("builtin", id+".json"))
	if err != nil {
		return nil, fmt.Errorf("scene: no built-in scene %q", id)
	}
	desc, err := Parse(bytes.NewReader(data), "")
	if err != nil {
		return nil, fmt.Errorf("built-in %s: %w", id, err)
	}
	if desc.Name == "" {
		desc.Name = titleCase(id)
	}
	return desc, nil
}

// BuiltinIDs lists the built-in scenes
func BuiltinIDs() []string {
	entries, err := builtinFiles.ReadDir("builtin")
	if err != nil {
		return nil
	}
	var ids []string
	for _, e := range entries {
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids
}

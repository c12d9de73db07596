package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Info describes a scene that can be loaded by ID
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`               // "builtin" or "file"
	FilePath    string `json:"filePath,omitempty"` // file scenes only
}

// header is the part of a scene file discovery reads
type header struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Discover lists the *.json scene files in dir. Files that aren't valid JSON
// are skipped with a warning; a missing dir yields no scenes.
func Discover(dir string) ([]Info, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %v", err)
	}

	var scenes []Info
	for _, file := range files {
		info, err := readInfo(file)
		if err != nil {
			logger.Warningf("skipping %s: %v", file, err)
			continue
		}
		scenes = append(scenes, info)
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
	return scenes, nil
}

func readInfo(file string) (Info, error) {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	info := Info{
		ID:       "file:" + file,
		Name:     titleCase(base),
		Type:     "file",
		FilePath: file,
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return info, err
	}
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return info, err
	}
	if h.Name != "" {
		info.Name = h.Name
	}
	info.Description = h.Description
	return info, nil
}

// ListAll returns the built-in scenes followed by the scene files in dir
func ListAll(dir string) ([]Info, error) {
	var all []Info
	for _, id := range BuiltinIDs() {
		desc, err := Builtin(id)
		if err != nil {
			return nil, err
		}
		all = append(all, Info{ID: id, Name: desc.Name, Description: desc.Summary, Type: "builtin"})
	}
	files, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	return append(all, files...), nil
}

// Open loads a scene by the ID ListAll reported, or by file path
func Open(id string) (*Description, error) {
	if strings.HasPrefix(id, "file:") || strings.HasSuffix(id, ".json") {
		return Load(strings.TrimPrefix(id, "file:"))
	}
	return Builtin(id)
}

// titleCase converts a filename-style string to title case
// e.g., "cornell-empty" -> "Cornell Empty"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}

package release

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/zuzpack/zuz/pkg/types"
)

// droppedPackageKeys never reach the published package.json
var droppedPackageKeys = map[string]bool{
	"lib":             true,
	"devDependencies": true,
	"scripts":         true,
	"private":         true,
}

type member struct {
	key   string
	value json.RawMessage
}

// FillPackageJSON sets the entry fields of the release package.json. Keys
// already present keep their value and position after the entry fields.
func FillPackageJSON(pkg *types.PackageDescriptor, path string) error {
	name := pkg.Name
	members := []member{
		{"name", quote(pkg.ImportName())},
		{"typings", quote("./" + name + ".d.ts")},
		{"main", quote("./bundles/" + name + ".umd.js")},
		{"module", quote("./esm5/" + name + ".es5.js")},
		{"es2015", quote("./esm2015/" + name + ".js")},
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return types.FilesystemError("read", path, err)
	}
	if err == nil {
		existing, err := decodeObject(jsonc.ToJSON(data))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", path, err)
		}
		members = merge(members, existing)
	}

	out, err := encodeObject(members)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return types.FilesystemError("write", path, err)
	}
	return nil
}

func merge(defaults, existing []member) []member {
	index := make(map[string]int, len(defaults))
	for i, m := range defaults {
		index[m.key] = i
	}
	for _, m := range existing {
		if droppedPackageKeys[m.key] {
			continue
		}
		if i, ok := index[m.key]; ok {
			defaults[i].value = m.value
			continue
		}
		index[m.key] = len(defaults)
		defaults = append(defaults, m)
	}
	return defaults
}

// decodeObject reads the members of a JSON object in document order
func decodeObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object")
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		members = append(members, member{key, value})
	}
	return members, nil
}

// encodeObject writes the members indented by two spaces without a trailing newline
func encodeObject(members []member) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(quote(m.key))
		buf.WriteByte(':')
		buf.Write(m.value)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func quote(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

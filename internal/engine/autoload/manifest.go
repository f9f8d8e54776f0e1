package autoload

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// manifest is the subset of composer.json the reader consumes.
type manifest struct {
	Autoload    autoloadSection `json:"autoload"`
	AutoloadDev autoloadSection `json:"autoload-dev"`
	Require     orderedObject   `json:"require"`
	RequireDev  orderedObject   `json:"require-dev"`
	Config      struct {
		VendorDir string `json:"vendor-dir"`
	} `json:"config"`
}

type autoloadSection struct {
	PSR4     orderedObject `json:"psr-4"`
	Classmap []string      `json:"classmap"`
}

type orderedMember struct {
	Key   string
	Value json.RawMessage
}

// orderedObject keeps the members of a JSON object in document order, which
// decides prefix precedence in the autoload table.
type orderedObject []orderedMember

func (o *orderedObject) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	switch {
	case tok == nil:
		*o = nil
		return nil
	case ok && delim == '[':
		// composer writes empty objects as [] in some generated manifests
		if dec.More() {
			return fmt.Errorf("expected object, got non-empty array")
		}
		*o = nil
		return nil
	case !ok || delim != '{':
		return fmt.Errorf("expected object, got %v", tok)
	}

	var members orderedObject
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		members = append(members, orderedMember{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = members
	return nil
}

// firstDir reads a psr-4 value, which is either a directory or a list of
// directories.
func firstDir(raw json.RawMessage) (string, error) {
	var dir string
	if err := json.Unmarshal(raw, &dir); err == nil {
		return dir, nil
	}
	var dirs []string
	if err := json.Unmarshal(raw, &dirs); err != nil {
		return "", fmt.Errorf("psr-4 value must be a string or list of strings: %w", err)
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("psr-4 value is an empty list")
	}
	return dirs[0], nil
}

func parseManifest(data []byte) (*manifest, error) {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

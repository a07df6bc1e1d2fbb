package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Generated is the part of a scene the Goblin King writes during
// initialization.
type Generated struct {
	NPCs             map[string]NPC    `json:"npcs"`
	GenerationRules  []string          `json:"generation_rules"`
	SuccessCondition string            `json:"success_condition"`
	FailureCondition string            `json:"failure_condition"`
	GameFlow         []string          `json:"game_flow"`
	Environment      map[string]string `json:"environment"`
}

// SyntaxError means the output did not contain a decodable JSON object.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string { return "invalid scene json: " + e.Err.Error() }
func (e *SyntaxError) Unwrap() error { return e.Err }

// MissingKeyError means a required key is absent.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string { return fmt.Sprintf("missing key %q", e.Key) }

// TypeError means a key holds a value of the wrong JSON type.
type TypeError struct {
	Key  string
	Want string
}

func (e *TypeError) Error() string { return fmt.Sprintf("key %q must be %s", e.Key, e.Want) }

type kind int

const (
	kindString kind = iota
	kindStringList
	kindStringMap
	kindNPCMap
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "a string"
	case kindStringList:
		return "a list of strings"
	case kindStringMap:
		return "an object of strings"
	default:
		return "an object of NPCs"
	}
}

var generatedKeys = []struct {
	key  string
	kind kind
}{
	{"npcs", kindNPCMap},
	{"generation_rules", kindStringList},
	{"success_condition", kindString},
	{"failure_condition", kindString},
	{"game_flow", kindStringList},
	{"environment", kindStringMap},
}

var npcKeys = []struct {
	key  string
	kind kind
}{
	{"kin", kindString},
	{"persona", kindStringList},
	{"goal", kindString},
	{"trait", kindString},
	{"flaw", kindString},
}

// Parse validates the Goblin King's initialization output and decodes it.
// Errors are *SyntaxError, *MissingKeyError or *TypeError. Every required key
// is checked for presence before any type is checked.
func Parse(raw string) (*Generated, error) {
	obj, err := decodeObject(ExtractJSON(raw))
	if err != nil {
		return nil, &SyntaxError{Err: err}
	}

	for _, k := range generatedKeys {
		if _, ok := obj[k.key]; !ok {
			return nil, &MissingKeyError{Key: k.key}
		}
	}

	npcObjs, err := checkNPCKeys(obj["npcs"])
	if err != nil {
		return nil, err
	}

	for _, k := range generatedKeys {
		if k.kind == kindNPCMap {
			continue
		}
		if err := checkKind(k.key, obj[k.key], k.kind); err != nil {
			return nil, err
		}
	}
	for name, npc := range npcObjs {
		for _, k := range npcKeys {
			if err := checkKind("npcs."+name+"."+k.key, npc[k.key], k.kind); err != nil {
				return nil, err
			}
		}
	}

	var gen Generated
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &gen); err != nil {
		return nil, &SyntaxError{Err: err}
	}
	return &gen, nil
}

// checkNPCKeys checks that npcs is an object of objects with every NPC key.
func checkNPCKeys(raw json.RawMessage) (map[string]map[string]json.RawMessage, error) {
	var npcs map[string]json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &npcs) != nil {
		return nil, &TypeError{Key: "npcs", Want: kindNPCMap.String()}
	}
	out := make(map[string]map[string]json.RawMessage, len(npcs))
	for name, npcRaw := range npcs {
		npc, err := decodeObject(string(npcRaw))
		if err != nil {
			return nil, &TypeError{Key: "npcs." + name, Want: "an object"}
		}
		for _, k := range npcKeys {
			if _, ok := npc[k.key]; !ok {
				return nil, &MissingKeyError{Key: "npcs." + name + "." + k.key}
			}
		}
		out[name] = npc
	}
	return out, nil
}

func checkKind(key string, raw json.RawMessage, k kind) error {
	if isNull(raw) {
		return &TypeError{Key: key, Want: k.String()}
	}
	var err error
	switch k {
	case kindString:
		var s string
		err = json.Unmarshal(raw, &s)
	case kindStringList:
		var l []string
		err = json.Unmarshal(raw, &l)
		if err == nil {
			err = rejectNullElements(raw)
		}
	case kindStringMap:
		var m map[string]string
		err = json.Unmarshal(raw, &m)
		if err == nil {
			err = rejectNullElements(raw)
		}
	}
	if err != nil {
		return &TypeError{Key: key, Want: k.String()}
	}
	return nil
}

// rejectNullElements fails on lists or objects holding null, which
// encoding/json would otherwise decode as empty strings.
func rejectNullElements(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		for _, item := range items {
			if isNull(item) {
				return fmt.Errorf("null element")
			}
		}
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return err
	}
	for _, v := range fields {
		if isNull(v) {
			return fmt.Errorf("null element")
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func decodeObject(s string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return obj, nil
}

// ExtractJSON returns the first balanced JSON object in s. Models like to
// wrap their JSON in code fences or chatter, so everything around the object
// is dropped. When no object is found s is returned unchanged.
func ExtractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}

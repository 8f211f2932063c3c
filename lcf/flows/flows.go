// Package flows parses Pliant flow definitions from an extracted
// integration package into language-neutral operation descriptors.
package flows

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/strongcodr/lowcodefusion/lcf/lcferrors"
)

// FlowFile is the JSON structure of a single flow definition.
type FlowFile struct {
	Name      string    `json:"name"`
	Processes []Process `json:"processes"`
	Meta      FlowMeta  `json:"meta"`
}

type Process struct {
	Name      string     `json:"name"`
	Variables []Variable `json:"variables"`
}

type Variable struct {
	Name     string       `json:"name"`
	IsInput  bool         `json:"isInput"`
	IsOutput bool         `json:"isOutput"`
	Required bool         `json:"required"`
	Meta     VariableMeta `json:"meta"`
	Type     any          `json:"type"`
}

type VariableMeta struct {
	Description string `json:"description"`
}

type FlowMeta struct {
	Info string `json:"info"`
}

// Operation describes one callable flow, decoupled from any target language.
type Operation struct {
	Name        string      `json:"name"`
	Parameters  []Parameter `json:"parameters"`
	ReturnType  string      `json:"return_type"`
	Description string      `json:"description"`
	ModulePath  string      `json:"module_path"` // dotted path, e.g. "AWS_EC2.instance"
	FilePath    string      `json:"file_path"`   // source JSON file
}

// Parameter is one input variable of an operation.
type Parameter struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
	Keys        []BodyKey `json:"keys,omitempty"` // top-level object properties, documentation only
}

// BodyKey documents a top-level property of a structured body parameter.
// Keys are never validated at call time.
type BodyKey struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

var identifierRe = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SanitizeName converts a flow or variable name into a valid identifier.
// Non-alphanumeric characters become underscores and a leading digit is
// prefixed with an underscore.
func SanitizeName(name string) string {
	name = identifierRe.ReplaceAllString(name, "_")
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// ParseOperations scans the flows directory of an extracted integration
// package and returns one Operation per flow file. Every flow must contain
// exactly one process.
func ParseOperations(srcDir string, integration string) ([]Operation, error) {
	var operations []Operation

	flowsDir := filepath.Join(srcDir, "flows")
	if _, err := os.Stat(flowsDir); os.IsNotExist(err) {
		return nil, lcferrors.NewErrorf(lcferrors.ErrorPackageCorrupt, "flows directory not found in %s", srcDir)
	}

	integrationDir := filepath.Join(flowsDir, integration)
	if _, err := os.Stat(integrationDir); os.IsNotExist(err) {
		return nil, lcferrors.NewErrorf(lcferrors.ErrorIntegrationNotFound, "integration directory %s not found in flows", integration)
	}

	err := filepath.Walk(integrationDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		// Only process JSON files
		if !strings.HasSuffix(strings.ToLower(info.Name()), ".json") {
			return nil
		}

		relPath, err := filepath.Rel(integrationDir, path)
		if err != nil {
			return err
		}

		// Convert the file location to a dotted module path, e.g.
		// "instance/RunInstances.json" under AWS_EC2 -> "AWS_EC2.instance"
		dir := filepath.Dir(relPath)
		if dir == "." {
			dir = ""
		}

		modulePath := strings.ReplaceAll(integration, " ", "_")
		if dir != "" {
			dirPath := strings.ReplaceAll(dir, string(filepath.Separator), ".")
			dirPath = strings.ReplaceAll(dirPath, " ", "_")
			modulePath = fmt.Sprintf("%s.%s", modulePath, dirPath)
		}

		fileContent, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("error reading file %s: %v", path, err)
		}

		var flowFile FlowFile
		if err := json.Unmarshal(fileContent, &flowFile); err != nil {
			return lcferrors.NewErrorf(lcferrors.ErrorFlowMalformed, "error parsing JSON from %s: %v", path, err)
		}

		if len(flowFile.Processes) != 1 {
			return lcferrors.NewErrorf(lcferrors.ErrorFlowMalformed, "file %s has %d processes, expected exactly 1", path, len(flowFile.Processes))
		}

		process := flowFile.Processes[0]

		op := Operation{
			Name:        SanitizeName(flowFile.Name),
			Parameters:  []Parameter{},
			ReturnType:  "any", // default when the flow declares no output
			Description: flowFile.Meta.Info,
			ModulePath:  modulePath,
			FilePath:    path,
		}

		for _, variable := range process.Variables {
			if variable.IsInput {
				param := Parameter{
					Name:        SanitizeName(variable.Name),
					Type:        goType(variable.Type),
					Required:    variable.Required,
					Description: variable.Meta.Description,
					Keys:        bodyKeys(variable.Type),
				}
				op.Parameters = append(op.Parameters, param)
			}

			if variable.IsOutput {
				op.ReturnType = goType(variable.Type)
			}
		}

		operations = append(operations, op)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return operations, nil
}

// goType converts a JSON schema type to the Go type used in stub
// documentation. Structured shapes stay maps; typed codegen is out of scope.
func goType(typeInfo any) string {
	if typeStr, ok := typeInfo.(string); ok {
		return goTypeName(typeStr)
	}

	// Complex type: an object with a "type" property
	if typeObj, ok := typeInfo.(map[string]any); ok {
		if typeType, ok := typeObj["type"].(string); ok {
			return goTypeName(typeType)
		}
	}

	return "any"
}

func goTypeName(jsonType string) string {
	switch jsonType {
	case "string":
		return "string"
	case "integer", "number":
		return "int64"
	case "boolean":
		return "bool"
	case "array":
		return "[]any"
	case "object", "map":
		return "map[string]any"
	default:
		return "any"
	}
}

// bodyKeys extracts the top-level properties of a structured parameter so
// generated stubs can document the recognized keys. Returns nil for scalar
// and untyped parameters.
func bodyKeys(typeInfo any) []BodyKey {
	typeObj, ok := typeInfo.(map[string]any)
	if !ok {
		return nil
	}

	props, ok := typeObj["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return nil
	}

	keys := make([]BodyKey, 0, len(props))
	for name, prop := range props {
		key := BodyKey{Name: name, Type: goType(prop)}
		if propObj, ok := prop.(map[string]any); ok {
			if desc, ok := propObj["description"].(string); ok {
				key.Description = desc
			}
		}
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })

	return keys
}

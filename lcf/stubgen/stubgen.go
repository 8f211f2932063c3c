// Package stubgen renders Go SDK stubs from parsed integration flows. One
// package is emitted per flow module path, each holding a shared types file
// and one source file per operation. Stubs are scaffolding: they accept the
// documented inputs and return an empty Result without calling anything.
package stubgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/strongcodr/lowcodefusion/lcf/flows"
	"github.com/strongcodr/lowcodefusion/lcf/lcferrors"
)

// LanguageGo is the only target language this generator renders.
const LanguageGo = "go"

// Options controls a generation run.
type Options struct {
	// Language selects the target language. Empty means Go.
	Language string
	// Version is the package version recorded in the manifest.
	Version string
}

// GeneratedFile is a single rendered file, addressed relative to the
// output directory.
type GeneratedFile struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// Manifest records what a generation run produced. It is written alongside
// the generated packages so regenerations can be traced.
type Manifest struct {
	Integration  string    `json:"integration"`
	Version      string    `json:"version,omitempty"`
	Language     string    `json:"language"`
	GenerationID string    `json:"generation_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	Files        []string  `json:"files"`
}

const typesTemplate = `// Code generated by lcf. DO NOT EDIT.

package {{.Package}}

// Request carries the optional body of an operation call. Recognized keys
// are documented per operation and never validated.
type Request map[string]any

// Result is the mapping every operation returns. Stubs return it empty and
// non-nil for every input.
type Result map[string]any
`

const opTemplate = `// Code generated by lcf. DO NOT EDIT.
{{- with .Source}}
// source: {{.}}
{{- end}}

package {{.Package}}

// {{.FuncName}} invokes the {{.FlowName}} flow of the {{.Integration}} integration.
{{- with .Description}}
//
// {{.}}
{{- end}}
{{- range .KeyDocs}}
//
// Recognized {{.Param}} keys:
{{- range .Keys}}
//   - {{.Name}} ({{.Type}}){{with .Description}}: {{.}}{{end}}
{{- end}}
{{- end}}
//
// Nothing is validated and no call leaves the process; the stub returns an
// empty Result for every input.
func {{.FuncName}}({{.Signature}}) Result {
	return Result{}
}
`

var (
	opTmpl    = template.Must(template.New("operation").Parse(opTemplate))
	typesTmpl = template.Must(template.New("types").Parse(typesTemplate))
)

type typesData struct {
	Package string
}

type opData struct {
	Source      string
	Package     string
	Integration string
	FlowName    string
	FuncName    string
	Description string
	Signature   string
	KeyDocs     []keyDoc
}

// keyDoc documents the recognized keys of one structured parameter.
type keyDoc struct {
	Param string
	Keys  []flows.BodyKey
}

// Generate renders the stub package set for an integration. Files come back
// in a deterministic order: packages sorted by module path, operations
// sorted by name, manifest last.
func Generate(integration string, ops []flows.Operation, opts Options) ([]GeneratedFile, error) {
	language := opts.Language
	if language == "" {
		language = LanguageGo
	}
	if language != LanguageGo {
		return nil, lcferrors.NewErrorf(lcferrors.ErrorUnsupportedLanguage, "unsupported language: %s", language)
	}

	groups := make(map[string][]flows.Operation)
	for _, op := range ops {
		groups[op.ModulePath] = append(groups[op.ModulePath], op)
	}

	modulePaths := make([]string, 0, len(groups))
	for modulePath := range groups {
		modulePaths = append(modulePaths, modulePath)
	}
	sort.Strings(modulePaths)

	var files []GeneratedFile
	for _, modulePath := range modulePaths {
		segments := strings.Split(modulePath, ".")
		dirParts := make([]string, len(segments))
		for i, segment := range segments {
			dirParts[i] = pkgSegment(segment)
		}
		dir := path.Join(dirParts...)
		pkg := dirParts[len(dirParts)-1]

		content, err := render(typesTmpl, typesData{Package: pkg})
		if err != nil {
			return nil, err
		}
		files = append(files, GeneratedFile{Path: path.Join(dir, "types.go"), Content: content})

		groupOps := groups[modulePath]
		sort.Slice(groupOps, func(i, j int) bool { return groupOps[i].Name < groupOps[j].Name })

		for _, op := range groupOps {
			funcName := exportName(op.Name)
			data := opData{
				Source:      sourceRef(op.FilePath),
				Package:     pkg,
				Integration: integration,
				FlowName:    op.Name,
				FuncName:    funcName,
				Description: op.Description,
				Signature:   signature(op.Parameters),
				KeyDocs:     keyDocs(op.Parameters),
			}

			content, err := render(opTmpl, data)
			if err != nil {
				return nil, err
			}
			files = append(files, GeneratedFile{Path: path.Join(dir, funcName+".go"), Content: content})
		}
	}

	manifest := Manifest{
		Integration:  integration,
		Version:      opts.Version,
		Language:     language,
		GenerationID: uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
	}
	for _, file := range files {
		manifest.Files = append(manifest.Files, file.Path)
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %v", err)
	}
	manifestJSON = append(manifestJSON, '\n')
	files = append(files, GeneratedFile{
		Path:    path.Join(pkgSegment(integration), "manifest.json"),
		Content: manifestJSON,
	})

	return files, nil
}

// WriteFiles persists a generated file set under outDir, creating package
// directories as needed.
func WriteFiles(files []GeneratedFile, outDir string) error {
	for _, file := range files {
		target := filepath.Join(outDir, filepath.FromSlash(file.Path))

		dir := filepath.Dir(target)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		if err := os.WriteFile(target, file.Content, 0644); err != nil {
			return fmt.Errorf("failed to write file %s: %v", target, err)
		}
	}

	return nil
}

func render(tmpl *template.Template, data any) ([]byte, error) {
	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %v", err)
	}
	return buffer.Bytes(), nil
}

var pkgCleanRe = regexp.MustCompile(`[^a-z0-9]`)

// pkgSegment converts a module path segment into a Go package directory
// name, e.g. "AWS_EC2" -> "awsec2".
func pkgSegment(segment string) string {
	segment = pkgCleanRe.ReplaceAllString(strings.ToLower(segment), "")
	if segment == "" {
		return "sdk"
	}
	if segment[0] >= '0' && segment[0] <= '9' {
		return "sdk" + segment
	}
	return segment
}

// exportName makes an operation name usable as an exported Go identifier.
func exportName(name string) string {
	name = strings.TrimLeft(name, "_")
	if name == "" {
		return "Op"
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "Op" + name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// signature renders the parameter list of a stub in declaration order.
func signature(params []flows.Parameter) string {
	parts := make([]string, 0, len(params))
	for _, param := range params {
		name := param.Name
		if token.IsKeyword(name) {
			name += "_"
		}
		parts = append(parts, fmt.Sprintf("%s %s", name, paramType(param.Type)))
	}
	return strings.Join(parts, ", ")
}

// paramType maps structured parameters onto the package-local Request type.
func paramType(goType string) string {
	if goType == "map[string]any" {
		return "Request"
	}
	return goType
}

func keyDocs(params []flows.Parameter) []keyDoc {
	var docs []keyDoc
	for _, param := range params {
		if len(param.Keys) == 0 {
			continue
		}
		docs = append(docs, keyDoc{Param: param.Name, Keys: param.Keys})
	}
	return docs
}

// sourceRef trims an absolute flow path down to its package-relative form
// for the generated file header.
func sourceRef(filePath string) string {
	if filePath == "" {
		return ""
	}
	slashed := filepath.ToSlash(filePath)
	if idx := strings.Index(slashed, "flows/"); idx >= 0 {
		return slashed[idx:]
	}
	return path.Base(slashed)
}

package flows

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strongcodr/lowcodefusion/lcf/lcferrors"
)

const runInstancesFlow = `{
  "name": "RunInstances",
  "processes": [
    {
      "name": "main",
      "variables": [
        {"name": "authKey", "isInput": true, "required": true, "type": "string", "meta": {"description": "Pliant credential reference"}},
        {"name": "region", "isInput": true, "required": true, "type": "string"},
        {"name": "body", "isInput": true, "required": false, "type": {"type": "object", "properties": {
          "ImageId": {"type": "string", "description": "image to launch from"},
          "InstanceType": {"type": "string", "description": "hardware profile"},
          "MinCount": {"type": "integer"},
          "MaxCount": {"type": "integer"}
        }}},
        {"name": "Result", "isOutput": true, "type": {"type": "object"}}
      ]
    }
  ],
  "meta": {"info": "Launches the specified number of instances using a machine image."}
}`

// writeFlow writes a flow definition under srcDir/flows/<rel>.
func writeFlow(t *testing.T, srcDir string, rel string, content string) {
	t.Helper()
	path := filepath.Join(srcDir, "flows", rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestParseOperations_SingleFlow(t *testing.T) {
	srcDir := t.TempDir()
	writeFlow(t, srcDir, "AWS_EC2/instance/RunInstances.json", runInstancesFlow)

	ops, err := ParseOperations(srcDir, "AWS_EC2")
	require.NoError(t, err)
	require.Len(t, ops, 1)

	op := ops[0]
	assert.Equal(t, "RunInstances", op.Name)
	assert.Equal(t, "AWS_EC2.instance", op.ModulePath)
	assert.Equal(t, "Launches the specified number of instances using a machine image.", op.Description)
	assert.Equal(t, "map[string]any", op.ReturnType)

	require.Len(t, op.Parameters, 3)
	assert.Equal(t, "authKey", op.Parameters[0].Name)
	assert.Equal(t, "string", op.Parameters[0].Type)
	assert.True(t, op.Parameters[0].Required)
	assert.Equal(t, "Pliant credential reference", op.Parameters[0].Description)

	body := op.Parameters[2]
	assert.Equal(t, "body", body.Name)
	assert.Equal(t, "map[string]any", body.Type)
	assert.False(t, body.Required)

	// Body keys sorted by name
	require.Len(t, body.Keys, 4)
	assert.Equal(t, "ImageId", body.Keys[0].Name)
	assert.Equal(t, "string", body.Keys[0].Type)
	assert.Equal(t, "image to launch from", body.Keys[0].Description)
	assert.Equal(t, "InstanceType", body.Keys[1].Name)
	assert.Equal(t, "MaxCount", body.Keys[2].Name)
	assert.Equal(t, "int64", body.Keys[2].Type)
	assert.Equal(t, "MinCount", body.Keys[3].Name)
}

func TestParseOperations_RootLevelFlow(t *testing.T) {
	srcDir := t.TempDir()
	writeFlow(t, srcDir, "Jira/CreateIssue.json", `{
  "name": "CreateIssue",
  "processes": [{"name": "main", "variables": [
    {"name": "summary", "isInput": true, "required": true, "type": "string"},
    {"name": "Result", "isOutput": true, "type": "object"}
  ]}],
  "meta": {"info": "Creates a new issue."}
}`)

	ops, err := ParseOperations(srcDir, "Jira")
	require.NoError(t, err)
	require.Len(t, ops, 1)

	// A flow at the integration root keeps the bare integration module path.
	assert.Equal(t, "Jira", ops[0].ModulePath)
	assert.Equal(t, "map[string]any", ops[0].ReturnType)
}

func TestParseOperations_NamesAreSanitized(t *testing.T) {
	srcDir := t.TempDir()
	writeFlow(t, srcDir, "My Integration/billing api/Get Report.json", `{
  "name": "Get Report",
  "processes": [{"name": "main", "variables": [
    {"name": "report id", "isInput": true, "required": true, "type": "string"}
  ]}],
  "meta": {"info": ""}
}`)

	ops, err := ParseOperations(srcDir, "My Integration")
	require.NoError(t, err)
	require.Len(t, ops, 1)

	assert.Equal(t, "Get_Report", ops[0].Name)
	assert.Equal(t, "My_Integration.billing_api", ops[0].ModulePath)
	assert.Equal(t, "report_id", ops[0].Parameters[0].Name)
	// No output variable declared
	assert.Equal(t, "any", ops[0].ReturnType)
}

func TestParseOperations_SkipsNonJSONFiles(t *testing.T) {
	srcDir := t.TempDir()
	writeFlow(t, srcDir, "AWS_EC2/instance/RunInstances.json", runInstancesFlow)
	writeFlow(t, srcDir, "AWS_EC2/README.md", "not a flow")

	ops, err := ParseOperations(srcDir, "AWS_EC2")
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}

func TestParseOperations_MissingFlowsDir(t *testing.T) {
	srcDir := t.TempDir()

	_, err := ParseOperations(srcDir, "AWS_EC2")
	require.Error(t, err)

	var lcfErr *lcferrors.LCFError
	require.ErrorAs(t, err, &lcfErr)
	assert.Equal(t, lcferrors.ErrorPackageCorrupt, lcfErr.Code)
	assert.Contains(t, lcfErr.Detail, "flows directory not found")
}

func TestParseOperations_UnknownIntegration(t *testing.T) {
	srcDir := t.TempDir()
	writeFlow(t, srcDir, "AWS_EC2/instance/RunInstances.json", runInstancesFlow)

	_, err := ParseOperations(srcDir, "GitHub")
	require.Error(t, err)

	var lcfErr *lcferrors.LCFError
	require.ErrorAs(t, err, &lcfErr)
	assert.Equal(t, lcferrors.ErrorIntegrationNotFound, lcfErr.Code)
}

func TestParseOperations_MultipleProcesses(t *testing.T) {
	srcDir := t.TempDir()
	writeFlow(t, srcDir, "AWS_EC2/Broken.json", `{
  "name": "Broken",
  "processes": [
    {"name": "one", "variables": []},
    {"name": "two", "variables": []}
  ],
  "meta": {"info": ""}
}`)

	_, err := ParseOperations(srcDir, "AWS_EC2")
	require.Error(t, err)

	var lcfErr *lcferrors.LCFError
	require.ErrorAs(t, err, &lcfErr)
	assert.Equal(t, lcferrors.ErrorFlowMalformed, lcfErr.Code)
	assert.Contains(t, lcfErr.Detail, "has 2 processes, expected exactly 1")
}

func TestParseOperations_ZeroProcesses(t *testing.T) {
	srcDir := t.TempDir()
	writeFlow(t, srcDir, "AWS_EC2/Empty.json", `{"name": "Empty", "processes": [], "meta": {"info": ""}}`)

	_, err := ParseOperations(srcDir, "AWS_EC2")
	require.Error(t, err)

	var lcfErr *lcferrors.LCFError
	require.ErrorAs(t, err, &lcfErr)
	assert.Equal(t, lcferrors.ErrorFlowMalformed, lcfErr.Code)
	assert.Contains(t, lcfErr.Detail, "has 0 processes")
}

func TestParseOperations_InvalidJSON(t *testing.T) {
	srcDir := t.TempDir()
	writeFlow(t, srcDir, "AWS_EC2/Bad.json", `{"name": "Bad", "processes": [`)

	_, err := ParseOperations(srcDir, "AWS_EC2")
	require.Error(t, err)

	var lcfErr *lcferrors.LCFError
	require.ErrorAs(t, err, &lcfErr)
	assert.Equal(t, lcferrors.ErrorFlowMalformed, lcfErr.Code)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RunInstances", "RunInstances"},
		{"run instances", "run_instances"},
		{"Get-Report.v2", "Get_Report_v2"},
		{"2FactorAuth", "_2FactorAuth"},
		{"already_valid_1", "already_valid_1"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestGoType(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "string", "string"},
		{"integer", "integer", "int64"},
		{"number", "number", "int64"},
		{"boolean", "boolean", "bool"},
		{"array", "array", "[]any"},
		{"object", "object", "map[string]any"},
		{"map", "map", "map[string]any"},
		{"unknown scalar", "duration", "any"},
		{"schema object", map[string]any{"type": "string"}, "string"},
		{"schema without type", map[string]any{"properties": map[string]any{}}, "any"},
		{"nil", nil, "any"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, goType(tt.in))
		})
	}
}

func TestBodyKeys_NonObjectTypes(t *testing.T) {
	assert.Nil(t, bodyKeys("string"))
	assert.Nil(t, bodyKeys(nil))
	assert.Nil(t, bodyKeys(map[string]any{"type": "object"}))
	assert.Nil(t, bodyKeys(map[string]any{"type": "object", "properties": map[string]any{}}))
}

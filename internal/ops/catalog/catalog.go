// Package catalog describes the fixed set of operations the service
// exposes, for the discovery endpoint.
package catalog

import "github.com/opsmesh/opsmesh/pkg/envelope"

// ParamSpec describes one named parameter of an operation.
type ParamSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// OperationSpec describes one operation and the parameters it accepts.
type OperationSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Streamable  bool        `json:"streamable"`
	Params      []ParamSpec `json:"params"`
}

// Operations is the static catalog of every operation the service supports.
var Operations = []OperationSpec{
	{
		Name:        envelope.OpListDirectory,
		Description: "List the immediate contents of a directory.",
		Streamable:  true,
		Params: []ParamSpec{
			{Name: "path", Type: "string", Required: false},
		},
	},
	{
		Name:        envelope.OpReadFile,
		Description: "Read a file's content as UTF-8 text.",
		Streamable:  true,
		Params: []ParamSpec{
			{Name: "path", Type: "string", Required: true},
		},
	},
	{
		Name:        envelope.OpCreateFile,
		Description: "Create a new file, failing if one already exists at the path.",
		Streamable:  false,
		Params: []ParamSpec{
			{Name: "path", Type: "string", Required: true},
			{Name: "content", Type: "string", Required: false},
		},
	},
	{
		Name:        envelope.OpEditFile,
		Description: "Overwrite an existing file's content.",
		Streamable:  false,
		Params: []ParamSpec{
			{Name: "path", Type: "string", Required: true},
			{Name: "content", Type: "string", Required: true},
		},
	},
	{
		Name:        envelope.OpAppendFile,
		Description: "Append content to an existing file.",
		Streamable:  false,
		Params: []ParamSpec{
			{Name: "path", Type: "string", Required: true},
			{Name: "content", Type: "string", Required: true},
		},
	},
	{
		Name:        envelope.OpGrep,
		Description: "Search a file or directory tree for a regular expression.",
		Streamable:  true,
		Params: []ParamSpec{
			{Name: "path", Type: "string", Required: false},
			{Name: "pattern", Type: "string", Required: true},
			{Name: "case_sensitive", Type: "bool", Required: false},
			{Name: "recursive", Type: "bool", Required: false},
		},
	},
	{
		Name:        envelope.OpExecuteCommand,
		Description: "Run a shell command and capture its output.",
		Streamable:  true,
		Params: []ParamSpec{
			{Name: "command", Type: "string", Required: true},
			{Name: "working_directory", Type: "string", Required: false},
			{Name: "timeout_seconds", Type: "int", Required: false},
			{Name: "include_stderr", Type: "bool", Required: false},
		},
	},
}

// Package catalog is the fixed set of tools offered to the model, mirroring
// the operations service's own operation catalog as Ollama function-calling
// tool definitions.
package catalog

import "github.com/opsmesh/opsmesh/internal/orchestrator/modelclient"

func tool(name, description string, parameters map[string]any) modelclient.Tool {
	return modelclient.Tool{
		Type: "function",
		Function: modelclient.ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

func schema(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func prop(kind, description string) map[string]any {
	return map[string]any{"type": kind, "description": description}
}

// Tools is the fixed catalog passed to the model on every tool-enabled turn.
var Tools = []modelclient.Tool{
	tool("list_directory", "List files and directories in a given path",
		schema(map[string]any{
			"path": prop("string", "The directory path to list (default: \".\")"),
		}),
	),
	tool("read_file", "Read the contents of a file",
		schema(map[string]any{
			"path": prop("string", "The file path to read"),
		}, "path"),
	),
	tool("create_file", "Create a new file with specified content",
		schema(map[string]any{
			"path":    prop("string", "The file path to create"),
			"content": prop("string", "The content to write to the file"),
		}, "path", "content"),
	),
	tool("edit_file", "Edit an existing file by replacing its content",
		schema(map[string]any{
			"path":    prop("string", "The file path to edit"),
			"content": prop("string", "The new content for the file"),
		}, "path", "content"),
	),
	tool("append_file", "Append content to an existing file",
		schema(map[string]any{
			"path":    prop("string", "The file path to append to"),
			"content": prop("string", "The content to append"),
		}, "path", "content"),
	),
	tool("execute_command", "Execute a system command",
		schema(map[string]any{
			"command":           prop("string", "The command to execute"),
			"working_directory": prop("string", "Directory to run the command in (default: the server's own working directory)"),
			"timeout_seconds":   prop("integer", "Maximum time to allow the command to run, in seconds"),
			"include_stderr":    prop("boolean", "Whether to include stderr output when streaming (default: true)"),
		}, "command"),
	),
	tool("grep", "Search for patterns in files or directories",
		schema(map[string]any{
			"pattern":        prop("string", "The search pattern (regular expression)"),
			"path":           prop("string", "The file or directory path to search in (default: \".\")"),
			"recursive":      prop("boolean", "Whether to search recursively into subdirectories"),
			"case_sensitive": prop("boolean", "Whether the search is case-sensitive (default: true)"),
		}, "pattern"),
	),
}

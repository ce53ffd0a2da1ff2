// Package catalog defines the command vocabulary the assistant is allowed to
// emit: each command's name, its parameters in declaration order, and a short
// description used when rendering the system prompt.
//
// Parameter names follow a single convention: a trailing '?' marks the
// parameter optional. Everything downstream (prompt rendering, parameter
// validation, chain resolution) derives required/optional sets from this one
// declaration rather than keeping parallel tables.
package catalog

import (
	"sort"
	"strings"
)

const optionalSuffix = "?"

// ParamName strips the optional marker from a parameter declaration,
// returning the bare name ("workspaceSlug?" → "workspaceSlug").
func ParamName(decl string) string {
	return strings.TrimSuffix(decl, optionalSuffix)
}

// IsOptional reports whether a parameter declaration carries the optional
// marker.
func IsOptional(decl string) bool {
	return strings.HasSuffix(decl, optionalSuffix)
}

// Command describes a single assistant command.
type Command struct {
	// Name is the command identifier emitted by the model, e.g. "createTask".
	Name string
	// Params lists parameter declarations in order. A trailing '?' marks a
	// parameter optional; all others are required.
	Params []string
	// Description is a one-line summary rendered into the system prompt.
	Description string
}

// Required returns the bare names of the command's required parameters.
func (c Command) Required() []string {
	var out []string
	for _, p := range c.Params {
		if !IsOptional(p) {
			out = append(out, ParamName(p))
		}
	}
	return out
}

// Optional returns the bare names of the command's optional parameters.
func (c Command) Optional() []string {
	var out []string
	for _, p := range c.Params {
		if IsOptional(p) {
			out = append(out, ParamName(p))
		}
	}
	return out
}

// HasParam reports whether name (bare, without marker) is declared on the
// command at all.
func (c Command) HasParam(name string) bool {
	for _, p := range c.Params {
		if ParamName(p) == name {
			return true
		}
	}
	return false
}

// Signature renders the command as "name(param, optional?)" for prompts and
// error messages.
func (c Command) Signature() string {
	return c.Name + "(" + strings.Join(c.Params, ", ") + ")"
}

// Catalog is the set of commands the assistant may emit. The zero value is
// unusable; construct with New or Default.
type Catalog struct {
	commands []Command
	index    map[string]Command
}

// New builds a catalog from the given commands. Later duplicates of a name
// override earlier ones.
func New(commands ...Command) *Catalog {
	c := &Catalog{index: make(map[string]Command, len(commands))}
	for _, cmd := range commands {
		if _, exists := c.index[cmd.Name]; exists {
			for i := range c.commands {
				if c.commands[i].Name == cmd.Name {
					c.commands[i] = cmd
					break
				}
			}
		} else {
			c.commands = append(c.commands, cmd)
		}
		c.index[cmd.Name] = cmd
	}
	return c
}

// Lookup returns the command with the given name.
func (c *Catalog) Lookup(name string) (Command, bool) {
	cmd, ok := c.index[name]
	return cmd, ok
}

// Commands returns the commands sorted by name. The slice is a copy.
func (c *Catalog) Commands() []Command {
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// String renders the catalog as a bulleted list of signatures and
// descriptions, suitable for embedding in the system prompt.
func (c *Catalog) String() string {
	var b strings.Builder
	for _, cmd := range c.Commands() {
		b.WriteString("- ")
		b.WriteString(cmd.Signature())
		if cmd.Description != "" {
			b.WriteString(": ")
			b.WriteString(cmd.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Default returns the built-in command catalog.
func Default() *Catalog {
	return New(
		// ----- Workspaces -----
		Command{
			Name:        "createWorkspace",
			Params:      []string{"name", "description?"},
			Description: "Create a new workspace with the given name.",
		},
		Command{
			Name:        "editWorkspace",
			Params:      []string{"workspaceSlug?", "name?", "description?"},
			Description: "Update the current or named workspace.",
		},
		Command{
			Name:        "navigateToWorkspace",
			Params:      []string{"workspaceSlug?", "workspaceName?"},
			Description: "Switch the user's view to a workspace.",
		},

		// ----- Projects -----
		Command{
			Name:        "createProject",
			Params:      []string{"name", "workspaceSlug?", "description?"},
			Description: "Create a project inside a workspace.",
		},
		Command{
			Name:        "navigateToProject",
			Params:      []string{"projectSlug?", "name?", "workspaceSlug?"},
			Description: "Switch the user's view to a project.",
		},

		// ----- Tasks -----
		Command{
			Name:        "createTask",
			Params:      []string{"taskTitle", "workspaceSlug?", "projectSlug?", "workspaceName?", "projectName?", "description?", "priority?", "dueDate?"},
			Description: "Create a task, optionally placing it in a workspace and project.",
		},
		Command{
			Name:        "editTask",
			Params:      []string{"taskId", "taskTitle?", "priority?", "status?", "dueDate?"},
			Description: "Update fields on an existing task.",
		},
		Command{
			Name:        "completeTask",
			Params:      []string{"taskId"},
			Description: "Mark a task as done.",
		},
		Command{
			Name:        "deleteTask",
			Params:      []string{"taskId"},
			Description: "Delete a task permanently.",
		},
		Command{
			Name:        "addComment",
			Params:      []string{"taskId", "comment"},
			Description: "Add a comment to a task.",
		},
	)
}

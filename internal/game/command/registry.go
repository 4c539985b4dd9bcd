package command

import "fmt"

// Registry resolves command names and aliases to Command definitions with a
// single map lookup, built once at startup.
type Registry struct {
	byToken map[string]*Command // name and every alias → command
	ordered []*Command          // registration order, one entry per command
}

// NewRegistry builds a Registry from command definitions.
//
// Precondition: no two commands may share a name or alias, and no alias may
// shadow a command name.
// Postcondition: Returns a Registry or an error naming the collision.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{
		byToken: make(map[string]*Command, len(cmds)*2),
		ordered: make([]*Command, 0, len(cmds)),
	}

	for i := range cmds {
		cmd := &cmds[i]
		if err := r.bind(cmd.Name, cmd); err != nil {
			return nil, err
		}
		for _, alias := range cmd.Aliases {
			if err := r.bind(alias, cmd); err != nil {
				return nil, err
			}
		}
		r.ordered = append(r.ordered, cmd)
	}
	return r, nil
}

func (r *Registry) bind(token string, cmd *Command) error {
	if prev, exists := r.byToken[token]; exists {
		return fmt.Errorf("command token %q bound to both %q and %q", token, prev.Name, cmd.Name)
	}
	r.byToken[token] = cmd
	return nil
}

// DefaultRegistry builds the Registry of all built-in commands, panicking on
// definition collisions since those are programmer errors.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by name or alias.
//
// Postcondition: Returns (command, true) if found, or (nil, false).
func (r *Registry) Resolve(input string) (*Command, bool) {
	cmd, ok := r.byToken[input]
	return cmd, ok
}

// Commands returns all registered commands in registration order.
func (r *Registry) Commands() []*Command {
	result := make([]*Command, len(r.ordered))
	copy(result, r.ordered)
	return result
}

// CommandsByCategory groups commands by category, preserving registration
// order within each group.
func (r *Registry) CommandsByCategory() map[string][]*Command {
	categories := make(map[string][]*Command)
	for _, cmd := range r.ordered {
		categories[cmd.Category] = append(categories[cmd.Category], cmd)
	}
	return categories
}

package lift

import (
	"context"
	"fmt"
	"sort"
)

// Variable is a remote variable name and the type it is declared as in configuration.
type Variable struct {
	Name string
	Type DataType
}

type binding struct {
	Variable

	handle     uint32
	generation uint64
	bound      bool
}

// bindingTable maps aliases onto remote variables. A handle is only trusted while its
// generation matches the table, bumping the generation drops every binding at once.
type bindingTable struct {
	remote     Remote
	generation uint64
	entries    map[string]*binding
}

func newBindingTable(remote Remote, variables map[string]Variable) *bindingTable {
	t := &bindingTable{
		remote:     remote,
		generation: 1,
		entries:    map[string]*binding{},
	}

	for alias, v := range variables {
		t.entries[alias] = &binding{Variable: v}
	}

	return t
}

func (t *bindingTable) aliases() []string {
	var out []string
	for alias := range t.entries {
		out = append(out, alias)
	}

	sort.Strings(out)
	return out
}

// invalidate discards all handles without releasing them, used when the connection is being replaced.
func (t *bindingTable) invalidate() {
	t.generation++
}

func (t *bindingTable) bind(ctx context.Context, alias string) (*binding, error) {
	b, found := t.entries[alias]
	if !found {
		return nil, fmt.Errorf("%w: %s", UnknownAlias, alias)
	}

	if b.bound && b.generation == t.generation {
		return b, nil
	}

	b.bound = false

	handle, typeName, err := t.remote.Resolve(ctx, b.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", BindFailure, alias, b.Name, err)
	}

	if resolved, ok := ParseDataType(typeName); !ok || resolved != b.Type {
		_ = t.remote.Release(ctx, handle)
		return nil, fmt.Errorf("%w: %s is %s on remote, declared as %s", TypeMismatch, b.Name, typeName, b.Type)
	}

	b.handle = handle
	b.generation = t.generation
	b.bound = true

	return b, nil
}

// unbind releases a handle from the current generation, the next access resolves it again.
func (t *bindingTable) unbind(ctx context.Context, b *binding) {
	if b.bound && b.generation == t.generation {
		_ = t.remote.Release(ctx, b.handle)
	}

	b.bound = false
}

func (t *bindingTable) read(ctx context.Context, alias string) (any, error) {
	b, err := t.bind(ctx, alias)
	if err != nil {
		return nil, err
	}

	data, err := t.remote.Read(ctx, b.handle, b.Type.Size())
	if err != nil {
		t.unbind(ctx, b)
		return nil, fmt.Errorf("%w: read %s: %w", IOFailure, alias, err)
	}

	v, err := b.Type.decode(data)
	if err != nil {
		t.unbind(ctx, b)
		return nil, err
	}

	return v, nil
}

func (t *bindingTable) write(ctx context.Context, alias string, value any) error {
	b, err := t.bind(ctx, alias)
	if err != nil {
		return err
	}

	data, err := b.Type.encode(value)
	if err != nil {
		t.unbind(ctx, b)
		return err
	}

	if err := t.remote.Write(ctx, b.handle, data); err != nil {
		t.unbind(ctx, b)
		return fmt.Errorf("%w: write %s: %w", IOFailure, alias, err)
	}

	return nil
}

package domain

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Identity is an opaque value-equality key derived from a unit of work's
// declared inputs. It is only ever used as a cache key.
type Identity string

// IdentityFor derives the identity of a work node from its task name, owning
// project path, command, and input fingerprints. Inputs are hashed in sorted
// order so identity does not depend on declaration order.
func IdentityFor(node *WorkNode) Identity {
	hasher := xxhash.New()

	_, _ = hasher.WriteString(node.TaskName.String())
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.WriteString(node.ProjectPath.String())
	_, _ = hasher.Write([]byte{0})

	for _, arg := range node.Command {
		_, _ = hasher.WriteString(arg)
		_, _ = hasher.Write([]byte{0})
	}
	_, _ = hasher.Write([]byte{0})

	inputs := make([]string, len(node.Inputs))
	for i, in := range node.Inputs {
		inputs[i] = in.String()
	}
	sort.Strings(inputs)
	for _, in := range inputs {
		_, _ = hasher.WriteString(in)
		_, _ = hasher.Write([]byte{0})
	}

	return Identity(fmt.Sprintf("%016x", hasher.Sum64()))
}

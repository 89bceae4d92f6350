package authz

import (
	"fmt"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// policyDocument is the on-disk shape of a role hierarchy override.
type policyDocument struct {
	Version int          `koanf:"version"`
	Rules   []policyRule `koanf:"rules"`
}

type policyRule struct {
	Role     string `koanf:"role"`
	Entity   string `koanf:"entity"`
	Template string `koanf:"template"`
	ReadOnly bool   `koanf:"read_only"`
}

// LoadPolicyFile reads a YAML role hierarchy from path and validates it.
// The file replaces the builtin table wholesale; a partial file would
// silently widen nothing but narrow everything else to deny, which is
// the safe direction.
func LoadPolicyFile(path string) (*Hierarchy, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
		return nil, fmt.Errorf("authz: load policy %s: %w", path, err)
	}

	var doc policyDocument
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("authz: parse policy %s: %w", path, err)
	}
	return buildPolicy(doc)
}

func buildPolicy(doc policyDocument) (*Hierarchy, error) {
	if doc.Version != 1 {
		return nil, fmt.Errorf("authz: unsupported policy version %d", doc.Version)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("authz: policy contains no rules")
	}

	b := newHierarchyBuilder()
	for i, raw := range doc.Rules {
		role, err := ParseRole(raw.Role)
		if err != nil {
			return nil, fmt.Errorf("authz: policy rule %d: %w", i, err)
		}
		entity, err := ParseEntity(raw.Entity)
		if err != nil {
			return nil, fmt.Errorf("authz: policy rule %d: %w", i, err)
		}
		tmpl, err := ParseTemplate(raw.Template)
		if err != nil {
			return nil, fmt.Errorf("authz: policy rule %d: %w", i, err)
		}
		b.add(role, entity, Rule{Template: tmpl, ReadOnly: raw.ReadOnly})
	}
	return b.build()
}

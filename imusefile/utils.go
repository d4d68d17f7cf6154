package imusefile

import (
	"gopkg.in/yaml.v3"
)

func valueOr(v *int, defaultValue int) int {
	if v == nil {
		return defaultValue
	}
	return *v
}

func lookupKey(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

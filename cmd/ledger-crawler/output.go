package main

import (
	"gopkg.in/yaml.v3"

	"github.com/oxen-io/ledger-crawler"
)

// valuesYAML renders captured values as a YAML mapping with sorted keys.
// Keys holding one value map to a scalar, others to a sequence.
func valuesYAML(v *crawler.Values) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range v.SortedKeys() {
		all := v.All(k)
		val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str"}
		if len(all) == 1 {
			val.Value = all[0]
		} else {
			val = &yaml.Node{Kind: yaml.SequenceNode}
			for _, s := range all {
				val.Content = append(val.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s})
			}
		}
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, val)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	return yaml.Marshal(doc)
}

package funnel

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"FunnelBot/model"
	"gopkg.in/yaml.v3"
)

//go:embed definitions/*.yaml
var definitions embed.FS

// Names lists the embedded funnel variants.
func Names() []string {
	entries, err := definitions.ReadDir("definitions")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Load builds the table of an embedded variant.
func Load(name, checkoutURL string) (*Table, error) {
	data, err := definitions.ReadFile(path.Join("definitions", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: unknown funnel %q (available: %s)",
			model.ErrConfiguration, name, strings.Join(Names(), ", "))
	}
	return build(data, checkoutURL)
}

// LoadFile builds the table of a definition file on disk.
func LoadFile(file, checkoutURL string) (*Table, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading funnel file: %v", model.ErrConfiguration, err)
	}
	return build(data, checkoutURL)
}

// Parse decodes a YAML funnel definition. Unknown keys are rejected so typos
// in copy files fail at startup.
func Parse(data []byte) (model.Funnel, error) {
	var def model.Funnel
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return model.Funnel{}, fmt.Errorf("%w: error parsing funnel definition: %v", model.ErrConfiguration, err)
	}
	return def, nil
}

func build(data []byte, checkoutURL string) (*Table, error) {
	def, err := Parse(data)
	if err != nil {
		return nil, err
	}
	def.CheckoutURL = checkoutURL
	return NewTable(def)
}

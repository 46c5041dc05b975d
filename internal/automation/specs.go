package automation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSpecs reads every *.yml / *.yaml service descriptor under dir. A
// missing directory yields no services.
func LoadSpecs(dir string) ([]Service, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yml" || ext == ".yaml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	var services []Service
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		srv, err := ParseSpec(data)
		if err != nil {
			return nil, fmt.Errorf("spec %s: %w", name, err)
		}
		services = append(services, srv)
	}
	return services, nil
}

// ParseSpec decodes and validates one service descriptor.
func ParseSpec(data []byte) (Service, error) {
	var srv Service
	if err := yaml.Unmarshal(data, &srv); err != nil {
		return Service{}, fmt.Errorf("invalid service yaml: %w", err)
	}
	if srv.Name == "" {
		return Service{}, fmt.Errorf("service name is required")
	}
	seen := map[string]bool{}
	for i := range srv.Methods {
		m := &srv.Methods[i]
		if m.Name == "" {
			return Service{}, fmt.Errorf("service %s has a method without name", srv.Name)
		}
		if seen[m.Name] {
			return Service{}, fmt.Errorf("service %s declares method %s twice", srv.Name, m.Name)
		}
		seen[m.Name] = true
		m.Service = srv.Name
		if m.Params == nil {
			m.Params = []Param{}
		}
	}
	if srv.Methods == nil {
		srv.Methods = []Method{}
	}
	return srv, nil
}

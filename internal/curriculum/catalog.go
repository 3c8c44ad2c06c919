package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the loaded, read-only set of modules. Module order follows
// the lexical order of the source filenames, so authors control ordering
// with numeric prefixes.
type Catalog struct {
	modules []Module
	byID    map[string]int
}

// NewCatalog loads every module YAML file under rootDir. Individual
// malformed files are skipped with a warning; an empty catalog is a
// configuration error because the first module doubles as the fallback
// selection target.
func NewCatalog(rootDir string) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int)}

	if err := c.loadAll(rootDir); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	if len(c.modules) == 0 {
		return nil, fmt.Errorf("no curriculum modules found in %s", rootDir)
	}

	slog.Info("curriculum loaded", "modules", len(c.modules), "topics", c.TotalTopics())
	return c, nil
}

func (c *Catalog) loadAll(rootDir string) error {
	var paths []string
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(paths)

	for _, path := range paths {
		c.loadModule(path)
	}
	return nil
}

func (c *Catalog) loadModule(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("skipping unreadable module file", "path", path, "error", err)
		return
	}

	var mod Module
	if err := yaml.Unmarshal(data, &mod); err != nil {
		slog.Warn("skipping invalid module YAML", "path", path, "error", err)
		return
	}
	if mod.ID == "" {
		return // not a module file
	}
	if _, dup := c.byID[mod.ID]; dup {
		slog.Warn("skipping duplicate module id", "path", path, "id", mod.ID)
		return
	}

	c.byID[mod.ID] = len(c.modules)
	c.modules = append(c.modules, mod)
}

// Modules returns all modules in catalog order.
func (c *Catalog) Modules() []Module {
	out := make([]Module, len(c.modules))
	copy(out, c.modules)
	return out
}

// Find returns a module by id.
func (c *Catalog) Find(id string) (Module, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Module{}, false
	}
	return c.modules[i], true
}

// FindOrFirst returns the module with the given id, falling back to the
// first module when the id is unknown or stale. The miss is logged but
// never an error, so invalid ids from old persisted state cannot wedge
// the application.
func (c *Catalog) FindOrFirst(id string) Module {
	if mod, ok := c.Find(id); ok {
		return mod
	}
	slog.Warn("unknown module id, falling back to first module", "id", id, "fallback", c.modules[0].ID)
	return c.modules[0]
}

// First returns the first module in catalog order.
func (c *Catalog) First() Module {
	return c.modules[0]
}

// FindTopic returns a topic by id, searching every module.
func (c *Catalog) FindTopic(topicID string) (Topic, bool) {
	for _, m := range c.modules {
		for _, t := range m.Topics {
			if t.ID == topicID {
				return t, true
			}
		}
	}
	return Topic{}, false
}

// HasTopic reports whether any module contains the given topic id.
func (c *Catalog) HasTopic(topicID string) bool {
	_, ok := c.FindTopic(topicID)
	return ok
}

// TotalTopics returns the number of topics across all modules.
func (c *Catalog) TotalTopics() int {
	total := 0
	for _, m := range c.modules {
		total += len(m.Topics)
	}
	return total
}

// ModuleContent aggregates a module's short and moderate explanations into
// one grounding string for quiz generation.
func (c *Catalog) ModuleContent(id string) string {
	mod, ok := c.Find(id)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, t := range mod.Topics {
		b.WriteString(t.ShortExplanation)
		b.WriteString(" ")
		b.WriteString(t.ModerateExplanation)
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String())
}

package analyze

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Node kinds.
const (
	KindDir    = "directory"
	KindModule = "module"
	KindFile   = "file"
)

// moduleMarkers turn a directory into a module node.
var moduleMarkers = []string{"__init__.py", "go.mod", "Cargo.toml", "package.json"}

// Node is one entry of the directory tree. Path is relative to the analyzed
// root and slash-separated; the root itself has Path ".".
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Kind     string  `json:"kind"`
	Children []*Node `json:"children,omitempty"`
}

// Dependency is an import of a non-standard module by a source file.
type Dependency struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Structure is the result of AnalyzeStructure.
type Structure struct {
	Root         *Node        `json:"root"`
	Dependencies []Dependency `json:"dependencies"`
	EntryPoints  []string     `json:"entryPoints"`
}

var importPatterns = map[string][]*regexp.Regexp{
	"Python": {
		regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`),
		regexp.MustCompile(`(?m)^\s*from\s+([\w.]+)\s+import`),
	},
	"JavaScript": jsImports,
	"TypeScript": jsImports,
	"Go": {
		regexp.MustCompile(`(?m)^\s*import\s+"(.+?)"`),
		regexp.MustCompile(`(?m)^\s*import\s+\w+\s+"(.+?)"`),
		regexp.MustCompile(`(?m)^\s+(?:\w+\s+)?"(.+?)"\s*$`),
	},
	"Java": {regexp.MustCompile(`(?m)^\s*import\s+([\w.]+);`)},
	"Rust": {
		regexp.MustCompile(`(?m)^\s*use\s+([\w:]+)`),
		regexp.MustCompile(`(?m)^\s*extern\s+crate\s+(\w+)`),
	},
	"C":   cIncludes,
	"C++": cIncludes,
	"Ruby": {
		regexp.MustCompile(`(?m)^\s*require\s+['"](.+?)['"]`),
		regexp.MustCompile(`(?m)^\s*require_relative\s+['"](.+?)['"]`),
	},
}

var (
	jsImports = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*import\s+.*?from\s+["'](.+?)["']`),
		regexp.MustCompile(`(?m)^\s*(?:const|let|var)\s+\w+\s*=\s*require\(["'](.+?)["']\)`),
	}
	cIncludes = []*regexp.Regexp{regexp.MustCompile(`(?m)^\s*#include\s*[<"](.+?)[>"]`)}
	cMain     = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*int\s+main\s*\(`),
		regexp.MustCompile(`(?m)^\s*void\s+main\s*\(`),
	}
	jsMain = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?function\s+main\s*\(`),
		regexp.MustCompile(`(?m)^[^/]*module\.exports\s*=`),
	}
)

var entryPatterns = map[string][]*regexp.Regexp{
	"Python":     {regexp.MustCompile(`if\s+__name__\s*==\s*["']__main__["']\s*:`)},
	"JavaScript": jsMain,
	"TypeScript": jsMain,
	"Go":         {regexp.MustCompile(`(?m)^\s*func\s+main\s*\(\s*\)`)},
	"Java":       {regexp.MustCompile(`public\s+static\s+void\s+main\s*\(\s*String`)},
	"Rust":       {regexp.MustCompile(`(?m)^\s*fn\s+main\s*\(\s*\)`)},
	"C":          cMain,
	"C++":        cMain,
}

var entryFileNames = map[string]bool{
	"main.py": true, "app.py": true, "index.py": true, "__main__.py": true,
	"main.js": true, "index.js": true, "app.js": true,
	"main.ts": true, "index.ts": true, "app.ts": true,
	"main.go": true, "main.rs": true, "Main.java": true, "App.java": true,
	"main.c": true, "main.cpp": true,
}

// Imports returns the distinct modules imported by content, sorted.
func Imports(content, language string) []string {
	seen := map[string]bool{}
	var out []string
	for _, re := range importPatterns[language] {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	sort.Strings(out)
	return out
}

// IsEntryPoint reports whether a file is a program entry point, by its name
// or by a main-function pattern for its language.
func IsEntryPoint(name, content, language string) bool {
	if entryFileNames[path.Base(name)] {
		return true
	}
	for _, re := range entryPatterns[language] {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// AnalyzeStructure walks root and returns its tree, the project-local
// imports of its source files and its entry points. Hidden entries, excluded
// paths and directories with no remaining files are left out. Files larger
// than maxBytes appear in the tree but are not scanned; zero disables the
// limit.
func AnalyzeStructure(root string, exclude []string, maxBytes int64) (*Structure, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	s := &Structure{Dependencies: []Dependency{}, EntryPoints: []string{}}
	s.Root, err = s.walk(abs, ".", exclude, maxBytes)
	if err != nil {
		return nil, err
	}
	s.Root.Name = filepath.Base(abs)
	return s, nil
}

func (s *Structure) walk(abs, rel string, exclude []string, maxBytes int64) (*Node, error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	// Directories first, then files, each by case-insensitive name.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	node := &Node{Name: path.Base(rel), Path: rel, Kind: KindDir}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		childRel := path.Join(rel, name)
		if Excluded(childRel, exclude) {
			continue
		}
		childAbs := filepath.Join(abs, name)

		if e.IsDir() {
			child, err := s.walk(childAbs, childRel, exclude, maxBytes)
			if err != nil {
				return nil, err
			}
			if len(child.Children) > 0 {
				node.Children = append(node.Children, child)
			}
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		node.Children = append(node.Children, &Node{Name: name, Path: childRel, Kind: KindFile})
		if slices.Contains(moduleMarkers, name) {
			node.Kind = KindModule
		}
		s.scanFile(childAbs, childRel, maxBytes)
	}
	return node, nil
}

// scanFile records the entry point status and project-local imports of one
// file. Unreadable files are skipped.
func (s *Structure) scanFile(abs, rel string, maxBytes int64) {
	info, err := os.Stat(abs)
	if err != nil || (maxBytes > 0 && info.Size() > maxBytes) {
		return
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return
	}
	content := string(data)
	lang := Language(rel)

	if IsEntryPoint(rel, content, lang) {
		s.EntryPoints = append(s.EntryPoints, rel)
	}
	for _, imp := range Imports(content, lang) {
		// Bare names are almost always standard library or registry packages.
		if !strings.HasPrefix(imp, ".") && !strings.Contains(imp, "/") {
			continue
		}
		s.Dependencies = append(s.Dependencies, Dependency{Source: rel, Target: imp})
	}
}

// Tree renders the node and its children with box-drawing connectors.
// Directory and module names carry a trailing slash.
func (n *Node) Tree() string {
	var sb strings.Builder
	sb.WriteString(n.label() + "\n")
	n.writeChildren(&sb, "")
	return sb.String()
}

func (n *Node) writeChildren(sb *strings.Builder, prefix string) {
	for i, c := range n.Children {
		last := i == len(n.Children)-1
		connector, next := "├── ", "│   "
		if last {
			connector, next = "└── ", "    "
		}
		sb.WriteString(prefix + connector + c.label() + "\n")
		c.writeChildren(sb, prefix+next)
	}
}

func (n *Node) label() string {
	switch n.Kind {
	case KindModule:
		return n.Name + "/ (module)"
	case KindDir:
		return n.Name + "/"
	default:
		return n.Name
	}
}

// Markdown renders the structure report.
func (s *Structure) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Structure: %s\n\n", s.Root.Name)
	sb.WriteString("```\n")
	sb.WriteString(s.Root.Tree())
	sb.WriteString("```\n")

	if len(s.EntryPoints) > 0 {
		sb.WriteString("\n## Entry Points\n\n")
		for _, ep := range s.EntryPoints {
			fmt.Fprintf(&sb, "- `%s`\n", ep)
		}
	}
	if len(s.Dependencies) > 0 {
		sb.WriteString("\n## Dependencies\n\n")
		for _, d := range s.Dependencies {
			fmt.Fprintf(&sb, "- `%s` imports `%s`\n", d.Source, d.Target)
		}
	}
	return sb.String()
}

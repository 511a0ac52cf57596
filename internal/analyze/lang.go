package analyze

import (
	"path"
	"strings"
)

// Unknown is the language of files with no known extension.
const Unknown = "Unknown"

var extLanguages = map[string]string{
	".py":         "Python",
	".js":         "JavaScript",
	".ts":         "TypeScript",
	".jsx":        "JavaScript (JSX)",
	".tsx":        "TypeScript (TSX)",
	".java":       "Java",
	".kt":         "Kotlin",
	".go":         "Go",
	".rs":         "Rust",
	".c":          "C",
	".cpp":        "C++",
	".cc":         "C++",
	".cxx":        "C++",
	".h":          "C/C++ Header",
	".hpp":        "C++ Header",
	".cs":         "C#",
	".rb":         "Ruby",
	".php":        "PHP",
	".swift":      "Swift",
	".scala":      "Scala",
	".r":          "R",
	".m":          "Objective-C",
	".mm":         "Objective-C++",
	".pl":         "Perl",
	".pm":         "Perl",
	".sh":         "Shell",
	".bash":       "Bash",
	".zsh":        "Zsh",
	".fish":       "Fish",
	".ps1":        "PowerShell",
	".lua":        "Lua",
	".sql":        "SQL",
	".html":       "HTML",
	".htm":        "HTML",
	".css":        "CSS",
	".scss":       "SCSS",
	".sass":       "Sass",
	".less":       "Less",
	".json":       "JSON",
	".yaml":       "YAML",
	".yml":        "YAML",
	".xml":        "XML",
	".toml":       "TOML",
	".ini":        "INI",
	".cfg":        "Config",
	".md":         "Markdown",
	".rst":        "reStructuredText",
	".txt":        "Text",
	".vue":        "Vue",
	".svelte":     "Svelte",
	".dart":       "Dart",
	".elm":        "Elm",
	".ex":         "Elixir",
	".exs":        "Elixir",
	".erl":        "Erlang",
	".hrl":        "Erlang",
	".hs":         "Haskell",
	".ml":         "OCaml",
	".mli":        "OCaml",
	".clj":        "Clojure",
	".cljs":       "ClojureScript",
	".jl":         "Julia",
	".nim":        "Nim",
	".zig":        "Zig",
	".v":          "V",
	".d":          "D",
	".f90":        "Fortran",
	".f95":        "Fortran",
	".f03":        "Fortran",
	".asm":        "Assembly",
	".s":          "Assembly",
	".proto":      "Protocol Buffers",
	".graphql":    "GraphQL",
	".gql":        "GraphQL",
	".tf":         "Terraform",
	".hcl":        "HCL",
	".mod":        "Go Module",
	".dockerfile": "Dockerfile",
}

var nameLanguages = map[string]string{
	"makefile":      "Makefile",
	"dockerfile":    "Dockerfile",
	"gemfile":       "Ruby",
	"rakefile":      "Ruby",
	".bashrc":       "Shell",
	".bash_profile": "Shell",
	".zshrc":        "Shell",
}

// Language names the language of a file from its extension, or from its
// base name for extensionless files such as Makefile.
func Language(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if lang, ok := nameLanguages[strings.ToLower(base)]; ok {
		return lang
	}
	if lang, ok := extLanguages[strings.ToLower(path.Ext(base))]; ok {
		return lang
	}
	return Unknown
}

// Excluded reports whether the slash-separated relative path rel matches one
// of patterns. A pattern matches the whole path or any single path element,
// so "vendor" excludes every file below a vendor directory.
func Excluded(rel string, patterns []string) bool {
	rel = strings.ReplaceAll(rel, "\\", "/")
	parts := strings.Split(rel, "/")
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, rel); err == nil && ok {
			return true
		}
		for _, part := range parts {
			if ok, err := path.Match(pattern, part); err == nil && ok {
				return true
			}
		}
	}
	return false
}

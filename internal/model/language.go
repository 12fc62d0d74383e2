package model

// languageExtensions is the closed set of snippet languages the service
// accepts, mapped to the file extension used on archive export.
//
// The set doubles as validation: a language outside this table is rejected
// at create/update time rather than silently accepted and exported as
// ".txt". FallbackExtension still exists for documents persisted before a
// language was removed from the table.
var languageExtensions = map[string]string{
	"javascript": ".js",
	"typescript": ".ts",
	"python":     ".py",
	"java":       ".java",
	"go":         ".go",
	"c":          ".c",
	"cpp":        ".cpp",
	"csharp":     ".cs",
	"ruby":       ".rb",
	"rust":       ".rs",
	"php":        ".php",
	"swift":      ".swift",
	"kotlin":     ".kt",
	"html":       ".html",
	"css":        ".css",
	"json":       ".json",
	"yaml":       ".yaml",
	"markdown":   ".md",
	"shell":      ".sh",
	"sql":        ".sql",
}

// FallbackExtension is used on export for any language without a mapping.
const FallbackExtension = ".txt"

// KnownLanguage reports whether lang belongs to the supported set.
func KnownLanguage(lang string) bool {
	_, ok := languageExtensions[lang]
	return ok
}

// ExtensionFor returns the export file extension for a language,
// falling back to ".txt" for anything unknown.
func ExtensionFor(lang string) string {
	if ext, ok := languageExtensions[lang]; ok {
		return ext
	}
	return FallbackExtension
}

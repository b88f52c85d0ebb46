package index

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Document types.
const (
	DocTypeProtocol          = "wsp_protocol"
	DocTypeModuleReadme      = "module_readme"
	DocTypeReadme            = "readme"
	DocTypeRoadmap           = "roadmap"
	DocTypeInterface         = "interface"
	DocTypeModlog            = "modlog"
	DocTypeDocumentation     = "documentation"
	DocTypeTestDocumentation = "test_documentation"
	DocTypeOther             = "other"
)

// basePriority ranks document types; higher is more authoritative.
var basePriority = map[string]int{
	DocTypeProtocol:          10,
	DocTypeInterface:         9,
	DocTypeModuleReadme:      8,
	DocTypeRoadmap:           7,
	DocTypeModlog:            6,
	DocTypeReadme:            5,
	DocTypeDocumentation:     5,
	DocTypeTestDocumentation: 4,
	DocTypeOther:             2,
}

const (
	MaxPriority = 10

	frameworkMarker   = "WSP_framework"
	integrationMarker = "modules/platform_integration"
)

var (
	protocolFile = regexp.MustCompile(`^WSP_\d+`)
	wspIDPattern = regexp.MustCompile(`(?i)WSP[_ -]?(\d+)`)
)

// CanonicalDocType maps filter aliases onto a document type ("protocol" -> "wsp_protocol").
func CanonicalDocType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "protocol" {
		return DocTypeProtocol
	}
	return s
}

// IsDocType reports whether s (or its alias) names a document type.
func IsDocType(s string) bool {
	_, ok := basePriority[CanonicalDocType(s)]
	return ok
}

// Classify returns the document type of the markdown file rel, relative to root.
// Sibling directories under root are consulted for module READMEs.
func Classify(root, rel string) string {
	slashed := filepath.ToSlash(rel)
	name := filepath.Base(rel)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	dir := filepath.Dir(rel)
	parent := filepath.Base(dir)
	abs := filepath.Join(root, dir)

	switch {
	case protocolFile.MatchString(name):
		return DocTypeProtocol

	case strings.EqualFold(stem, "README"):
		if parent == "tests" {
			return DocTypeTestDocumentation
		}
		if hasSegment(slashed, "modules") || isDir(filepath.Join(abs, "src")) || isDir(filepath.Join(abs, "tests")) {
			return DocTypeModuleReadme
		}
		return DocTypeReadme

	case stem == "ROADMAP":
		return DocTypeRoadmap
	case stem == "INTERFACE":
		return DocTypeInterface
	case stem == "MODLOG":
		return DocTypeModlog

	case hasSegment(slashed, "docs"):
		return DocTypeDocumentation

	case hasSegment(filepath.ToSlash(dir), "tests"):
		return DocTypeTestDocumentation
	}
	return DocTypeOther
}

// Priority returns the ranking priority of a document type at path, in [1, 10].
func Priority(docType, path string) int {
	p, ok := basePriority[docType]
	if !ok {
		p = basePriority[DocTypeOther]
	}
	slashed := filepath.ToSlash(path)
	if strings.Contains(slashed, frameworkMarker) {
		p++
	}
	if strings.Contains(slashed, integrationMarker) {
		p++
	}
	return min(p, MaxPriority)
}

// WSPID derives the protocol identifier: "WSP_<n>" from the filename or title,
// else the first word of the title, else "WSP".
func WSPID(filename, title string) string {
	for _, s := range []string{filename, title} {
		if m := wspIDPattern.FindStringSubmatch(s); m != nil {
			return "WSP_" + m[1]
		}
	}
	if fields := strings.Fields(title); len(fields) > 0 {
		return fields[0]
	}
	return "WSP"
}

func hasSegment(slashed, segment string) bool {
	for _, s := range strings.Split(slashed, "/") {
		if s == segment {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

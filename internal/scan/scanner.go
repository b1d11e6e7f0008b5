// Package scan walks a project tree and classifies source files into the
// three corpora the extractors consume: frontend client calls, gateway
// route declarations, and backend handlers.
package scan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"apitrace/internal/config"
	"apitrace/internal/contract"
	"apitrace/internal/logging"
)

// Corpus names one of the three file classes.
type Corpus string

const (
	CorpusFrontend Corpus = "frontend"
	CorpusRoutes   Corpus = "routes"
	CorpusHandlers Corpus = "handlers"
)

// Classification is the scanner output: three disjoint, sorted file lists
// plus the diagnostics produced during classification. Files claimed by
// more than one corpus are excluded from all three and surfaced as an
// AmbiguousFileClassification diagnostic instead.
type Classification struct {
	Frontend    []string
	Routes      []string
	Handlers    []string
	Diagnostics []contract.Diagnostic
}

// TotalFiles returns the number of files claimed by exactly one corpus.
func (c *Classification) TotalFiles() int {
	return len(c.Frontend) + len(c.Routes) + len(c.Handlers)
}

// Scanner classifies files according to the configured corpus rules.
type Scanner struct {
	cfg *config.Config
}

// NewScanner creates a Scanner for the given configuration.
func NewScanner(cfg *config.Config) *Scanner {
	return &Scanner{cfg: cfg}
}

// Scan walks root (restricted to subPath when non-empty) and classifies
// every regular file. An unreadable root is the single fatal condition of
// a run and is returned as an error rather than a diagnostic.
func (s *Scanner) Scan(root, subPath string) (*Classification, error) {
	start := root
	if subPath != "" {
		start = filepath.Join(root, subPath)
	}
	info, err := os.Stat(start)
	if err != nil {
		return nil, fmt.Errorf("unreadable root path %s: %w", start, err)
	}
	if info.IsDir() {
		// Stat alone succeeds on a directory the process cannot read.
		f, err := os.Open(start)
		if err != nil {
			return nil, fmt.Errorf("unreadable root path %s: %w", start, err)
		}
		_, rdErr := f.Readdirnames(1)
		f.Close()
		if rdErr != nil && rdErr != io.EOF {
			return nil, fmt.Errorf("unreadable root path %s: %w", start, rdErr)
		}
	}

	cls := &Classification{}
	err = filepath.Walk(start, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries below the root are skipped, not fatal.
			logging.Scan("skipping unreadable entry: %s (%v)", path, err)
			return nil
		}
		if info.IsDir() {
			if skipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		s.classify(path, cls)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Deterministic extractor input regardless of walk order.
	sort.Strings(cls.Frontend)
	sort.Strings(cls.Routes)
	sort.Strings(cls.Handlers)
	contract.SortDiagnostics(cls.Diagnostics)

	logging.Scan("classified %d frontend, %d route, %d handler files (%d diagnostics)",
		len(cls.Frontend), len(cls.Routes), len(cls.Handlers), len(cls.Diagnostics))
	return cls, nil
}

// classify assigns one file to its corpus, or records ambiguity.
func (s *Scanner) classify(path string, cls *Classification) {
	var claims []Corpus
	if matches(path, s.cfg.Frontend) {
		claims = append(claims, CorpusFrontend)
	}
	if matches(path, s.cfg.Routes) {
		claims = append(claims, CorpusRoutes)
	}
	if matches(path, s.cfg.Handlers) {
		claims = append(claims, CorpusHandlers)
	}

	switch len(claims) {
	case 0:
		// Not part of any corpus; ignored.
	case 1:
		switch claims[0] {
		case CorpusFrontend:
			cls.Frontend = append(cls.Frontend, path)
		case CorpusRoutes:
			cls.Routes = append(cls.Routes, path)
		case CorpusHandlers:
			cls.Handlers = append(cls.Handlers, path)
		}
	default:
		names := make([]string, len(claims))
		for i, c := range claims {
			names[i] = string(c)
		}
		cls.Diagnostics = append(cls.Diagnostics, contract.Diagnostic{
			Severity: contract.SeverityError,
			Code:     contract.CodeAmbiguousFileClassification,
			Message: fmt.Sprintf("file matches multiple corpus patterns (%s) and was excluded from this run",
				strings.Join(names, ", ")),
			Primary:    contract.SourceLocation{File: path, Line: 1},
			Suggestion: "tighten the corpus patterns in " + config.FileName + " so each file belongs to exactly one layer",
		})
	}
}

// matches applies one corpus rule set to a file path.
func matches(path string, rules config.CorpusRules) bool {
	slash := filepath.ToSlash(path)
	suffixOK := false
	for _, suf := range rules.Suffixes {
		if strings.HasSuffix(slash, suf) {
			suffixOK = true
			break
		}
	}
	if !suffixOK {
		return false
	}
	if len(rules.Contains) == 0 {
		return true
	}
	for _, frag := range rules.Contains {
		if strings.Contains(slash, frag) {
			return true
		}
	}
	return false
}

// skipDir filters directories the way the generated projects lay them
// out: hidden directories are skipped except a small allowlist, and
// dependency/output trees are never scanned.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		allowed := map[string]bool{
			".github": true,
			".config": true,
		}
		return !allowed[name]
	}
	switch name {
	case "node_modules", "dist", "build", "__pycache__", "vendor":
		return true
	}
	return false
}

package sync

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/updrive/updrive/internal/utils"
)

const ignoreFileName = ".updriveignore"

var defaultIgnoreLines = []string{
	// editors and partial writes
	"*.tmp",
	"*.swp",
	"*.swx",
	"*.partial",
	"*.crdownload",
	"~$*",
	// OS droppings
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	"Icon",
}

// PathFilter decides which watched paths take part in syncing. Hidden
// paths (any dot segment) are always out and cannot be re-included;
// .updriveignore rules and the optional include globs layer on top.
type PathFilter struct {
	baseDir string
	include []string
	ignore  *gitignore.GitIgnore
}

func NewPathFilter(baseDir string, include []string) *PathFilter {
	f := &PathFilter{baseDir: baseDir, include: include}
	f.Load()
	return f
}

// Load compiles the built-in rules plus the watch root's .updriveignore
// if one exists. Safe to call again to pick up rule changes.
func (f *PathFilter) Load() {
	ignorePath := filepath.Join(f.baseDir, ignoreFileName)
	ignoreLines := defaultIgnoreLines

	if utils.FileExists(ignorePath) {
		rules := 0
		file, err := os.Open(ignorePath)
		if err != nil {
			slog.Warn("failed to open ignore file", "path", ignorePath, "error", err)
		} else {
			defer file.Close()

			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				line := scanner.Text()
				if line != "" {
					ignoreLines = append(ignoreLines, line)
					rules++
				}
			}

			if err := scanner.Err(); err != nil {
				slog.Warn("error reading ignore file", "path", ignorePath, "error", err)
			} else {
				slog.Info("loaded ignore file", "path", ignorePath, "rules", rules)
			}
		}
	}

	f.ignore = gitignore.CompileIgnoreLines(ignoreLines...)
}

// Hidden reports whether any segment of the rel path starts with a dot.
// The ignore file itself is hidden by this rule.
func (f *PathFilter) Hidden(relPath string) bool {
	return IsHiddenPath(relPath)
}

// Ignored reports whether the rel path is excluded by the ignore rules or
// misses the include globs.
func (f *PathFilter) Ignored(relPath string) bool {
	if f.ignore.MatchesPath(relPath) {
		return true
	}

	if len(f.include) == 0 {
		return false
	}
	for _, pattern := range f.include {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return false
		}
	}
	return true
}

func IsHiddenPath(relPath string) bool {
	for _, segment := range strings.Split(relPath, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}

package corpus

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openmined/notereview/internal/utils"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is read from the vault root, one gitignore rule per line.
const IgnoreFileName = ".notereviewignore"

var defaultIgnoreLines = []string{
	// app
	IgnoreFileName,
	".notereview/",
	// editors
	".obsidian/",
	".trash/",
	".vscode",
	".idea",
	// vcs
	".git",
	// general
	"*.tmp",
	"*.swp",
	"*~",
	// OS-specific
	".DS_Store",
	"Thumbs.db",
}

type ignoreList struct {
	ignore *gitignore.GitIgnore
}

func loadIgnoreList(root string, extra []string) *ignoreList {
	lines := append([]string{}, defaultIgnoreLines...)
	lines = append(lines, extra...)

	ignorePath := filepath.Join(root, IgnoreFileName)
	if utils.FileExists(ignorePath) {
		file, err := os.Open(ignorePath)
		if err != nil {
			slog.Warn("failed to open ignore file", "path", ignorePath, "error", err)
		} else {
			defer file.Close()

			rules := 0
			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				line := scanner.Text()
				if line != "" {
					lines = append(lines, line)
					rules++
				}
			}

			if err := scanner.Err(); err != nil {
				slog.Warn("error reading ignore file", "path", ignorePath, "error", err)
			} else {
				slog.Debug("loaded ignore file", "path", ignorePath, "rules", rules)
			}
		}
	}

	return &ignoreList{ignore: gitignore.CompileIgnoreLines(lines...)}
}

func (l *ignoreList) ShouldIgnore(path string) bool {
	return l.ignore.MatchesPath(path)
}

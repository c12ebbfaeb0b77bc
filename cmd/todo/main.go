package main

import (
	"fmt"
	"os"
	"strings"

	"todo-cli/internal/cli"
)

func isSortType(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "desc":
		return true
	}
	return false
}

// rewriteSortShortcutArgs turns `todo asc|desc` into `todo tasks sort asc|desc`.
//
// Cobra treats the first non-flag token as a subcommand, so argv is rewritten
// before parsing. Persistent flags may come first (`todo --backend URL desc`),
// so the first positional token is located rather than assumed to be argv[1].
func rewriteSortShortcutArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	// Unknown flags are skipped without their value so that a sort word is
	// never swallowed.
	valueFlags := map[string]bool{
		"--backend":   true,
		"--config":    true,
		"--format":    true,
		"--log-level": true,
	}

	insert := func(i int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "tasks", "sort")
		out = append(out, argv[i:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isSortType(argv[i+1]) {
				return insert(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if isSortType(a) {
			return insert(i)
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteSortShortcutArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

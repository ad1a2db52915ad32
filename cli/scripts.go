package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

/*
*
turn a script reference into the command line that executes it. A bare name is
looked up in the configured scripts directory, trying the known extensions in
order; anything with a path separator is taken as-is. The extension picks the
interpreter.
*/
func ResolveScript(scriptsDir string, reference string) (string, error) {
	candidate := reference
	if !strings.ContainsRune(reference, os.PathSeparator) {
		if filepath.Ext(reference) != "" {
			candidate = path.Join(scriptsDir, reference)
		} else {
			found := ""
			for _, extension := range []string{".sh", ".py"} {
				attempt := path.Join(scriptsDir, reference+extension)
				if _, statErr := os.Stat(attempt); statErr == nil {
					found = attempt
					break
				}
			}
			if found == "" {
				return "", fmt.Errorf("no script called '%s' in %s", reference, scriptsDir)
			}
			candidate = found
		}
	}

	if _, statErr := os.Stat(candidate); statErr != nil {
		return "", fmt.Errorf("script '%s' does not exist", candidate)
	}

	switch filepath.Ext(candidate) {
	case ".py":
		return "python3 " + candidate, nil
	default:
		return "bash " + candidate, nil
	}
}

func ResolveChain(scriptsDir string, references []string) ([]string, error) {
	chain := make([]string, len(references))
	for i, reference := range references {
		resolved, resolveErr := ResolveScript(scriptsDir, reference)
		if resolveErr != nil {
			return nil, resolveErr
		}
		chain[i] = resolved
	}
	return chain, nil
}

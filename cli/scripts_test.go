package main

import (
	"io/ioutil"
	"path"
	"testing"
)

func TestResolveScriptBareName(t *testing.T) {
	scriptsDir := t.TempDir()
	scriptPath := path.Join(scriptsDir, "backup.sh")
	if writeErr := ioutil.WriteFile(scriptPath, []byte("#!/bin/bash\n"), 0755); writeErr != nil {
		t.Fatal("could not write test script: ", writeErr)
	}

	resolved, resolveErr := ResolveScript(scriptsDir, "backup")
	if resolveErr != nil {
		t.Fatal("ResolveScript failed: ", resolveErr)
	}
	if resolved != "bash "+scriptPath {
		t.Errorf("unexpected resolution %s", resolved)
	}
}

func TestResolveScriptPython(t *testing.T) {
	scriptsDir := t.TempDir()
	scriptPath := path.Join(scriptsDir, "process.py")
	if writeErr := ioutil.WriteFile(scriptPath, []byte("print('hi')\n"), 0755); writeErr != nil {
		t.Fatal("could not write test script: ", writeErr)
	}

	resolved, resolveErr := ResolveScript(scriptsDir, "process.py")
	if resolveErr != nil {
		t.Fatal("ResolveScript failed: ", resolveErr)
	}
	if resolved != "python3 "+scriptPath {
		t.Errorf("unexpected resolution %s", resolved)
	}
}

func TestResolveScriptExplicitPath(t *testing.T) {
	otherDir := t.TempDir()
	scriptPath := path.Join(otherDir, "standalone.sh")
	if writeErr := ioutil.WriteFile(scriptPath, []byte("#!/bin/bash\n"), 0755); writeErr != nil {
		t.Fatal("could not write test script: ", writeErr)
	}

	resolved, resolveErr := ResolveScript(t.TempDir(), scriptPath)
	if resolveErr != nil {
		t.Fatal("ResolveScript failed: ", resolveErr)
	}
	if resolved != "bash "+scriptPath {
		t.Errorf("unexpected resolution %s", resolved)
	}
}

func TestResolveScriptMissing(t *testing.T) {
	if _, resolveErr := ResolveScript(t.TempDir(), "nonexistent"); resolveErr == nil {
		t.Error("a missing script should be an error")
	}
}

func TestResolveChainStopsOnFirstMissing(t *testing.T) {
	scriptsDir := t.TempDir()
	if writeErr := ioutil.WriteFile(path.Join(scriptsDir, "first.sh"), []byte("#!/bin/bash\n"), 0755); writeErr != nil {
		t.Fatal("could not write test script: ", writeErr)
	}

	if _, chainErr := ResolveChain(scriptsDir, []string{"first", "missing"}); chainErr == nil {
		t.Error("a chain with a missing script should be rejected whole")
	}
}

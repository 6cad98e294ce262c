package bootstrap

import (
	"log/slog"
	"os"
	"path/filepath"
)

// templateFiles lists the templates to seed, in order.
// BOOTSTRAP.md is handled separately (only seeded for brand-new workspaces).
var templateFiles = []string{
	AgentsFile,
	SoulFile,
	ToolsFile,
	IdentityFile,
	UserFile,
	HeartbeatFile,
}

var templateContent = map[string]string{
	AgentsFile:    "# Agent Instructions\n\nYou are a helpful assistant. Add workspace-specific instructions here.\n",
	SoulFile:      "# Persona\n\nDescribe the agent's voice and personality here.\n",
	ToolsFile:     "# Tool Notes\n\nDocument any workspace-specific tool usage conventions here.\n",
	IdentityFile:  "# Identity\n\nDescribe the agent's name and identity here.\n",
	UserFile:      "# About the user\n\nFacts the agent has learned about its primary user go here.\n",
	HeartbeatFile: "# Heartbeat\n\nPeriodic self-check notes go here.\n",
	BootstrapFile: "# Bootstrap\n\nThis workspace was just created. Introduce yourself and ask what the user needs.\n",
}

// ReadTemplate returns the default content for one of the named template files.
func ReadTemplate(name string) (string, error) {
	content, ok := templateContent[name]
	if !ok {
		return "", os.ErrNotExist
	}
	return content, nil
}

// EnsureWorkspaceFiles seeds template files into a workspace directory.
// Only writes files that don't already exist (will not overwrite).
// BOOTSTRAP.md is only seeded if the workspace is brand new (no AGENTS.md exists).
// Returns the list of files that were created.
func EnsureWorkspaceFiles(workspaceDir string) ([]string, error) {
	if err := os.MkdirAll(workspaceDir, 0755); err != nil {
		return nil, err
	}

	var created []string

	// Check if this is a brand-new workspace (no AGENTS.md yet)
	_, agentsErr := os.Stat(filepath.Join(workspaceDir, AgentsFile))
	isBrandNew := os.IsNotExist(agentsErr)

	// Seed standard template files
	for _, name := range templateFiles {
		ok, err := seedTemplate(workspaceDir, name)
		if err != nil {
			slog.Warn("bootstrap: failed to seed template", "file", name, "error", err)
			continue
		}
		if ok {
			created = append(created, name)
		}
	}

	// Seed BOOTSTRAP.md only for brand-new workspaces
	if isBrandNew {
		ok, err := seedTemplate(workspaceDir, BootstrapFile)
		if err != nil {
			slog.Warn("bootstrap: failed to seed BOOTSTRAP.md", "error", err)
		} else if ok {
			created = append(created, BootstrapFile)
		}
	}

	return created, nil
}

// seedTemplate writes a template file to the workspace if it doesn't exist.
// Returns true if the file was created, false if it already exists.
func seedTemplate(workspaceDir, name string) (bool, error) {
	dstPath := filepath.Join(workspaceDir, name)

	// Only create if file doesn't exist (O_EXCL)
	f, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil // already exists, skip
		}
		return false, err
	}
	defer f.Close()

	content, ok := templateContent[name]
	if !ok {
		os.Remove(dstPath)
		return false, os.ErrNotExist
	}

	if _, err := f.WriteString(content); err != nil {
		return false, err
	}

	return true, nil
}

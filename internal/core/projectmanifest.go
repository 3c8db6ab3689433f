package core

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ProjectManifest mirrors project.toml, the CI-facing description of the
// repository.
type ProjectManifest struct {
	Repokit struct {
		SchemaVersion int64 `toml:"schema_version"`
	} `toml:"repokit"`
	Project struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
		Type    string `toml:"type"`
	} `toml:"project"`
	CI struct {
		RunBuild    *bool    `toml:"run_build"`
		RunTests    *bool    `toml:"run_tests"`
		RunSecurity *bool    `toml:"run_security"`
		RunDocs     *bool    `toml:"run_docs"`
		QuickGate   []string `toml:"quick_gate"`
	} `toml:"ci"`
	Build struct {
		Bins []string `toml:"bins"`
	} `toml:"build"`
	Artifact struct {
		Outputs []string `toml:"outputs"`
	} `toml:"artifact"`
	Docker struct {
		Enabled bool   `toml:"enabled"`
		Image   string `toml:"image"`
	} `toml:"docker"`
}

// ProjectReport separates hard errors from warnings so CI can choose how
// strict to be.
type ProjectReport struct {
	Errors   []string
	Warnings []string
}

// Blocking reports whether the issues should fail the invocation. Strict
// mode promotes warnings.
func (r *ProjectReport) Blocking(strict bool) bool {
	return len(r.Errors) > 0 || (strict && len(r.Warnings) > 0)
}

var allowedArtifactOutputs = []string{"binary", "docker", "library", "archive"}

// LoadProjectManifest reads and parses project.toml at the repo root.
func LoadProjectManifest(repoRoot string) (*ProjectManifest, error) {
	path := filepath.Join(repoRoot, "project.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, userErrf("project.toml not found at %s", path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var m ProjectManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}

// isTemplatePlaceholder reports whether s looks like a handlebars-style
// template value. Template repos carry placeholders in project.toml, so
// drift checks must not fire on them.
func isTemplatePlaceholder(s string) bool {
	return strings.Contains(s, "{{") && strings.Contains(s, "}}")
}

func isConcreteValue(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed != "" && !isTemplatePlaceholder(trimmed)
}

// moduleBasename extracts the last path element of the module directive in
// go.mod, or "" when the file or directive is missing.
func moduleBasename(repoRoot string) string {
	f, err := os.Open(filepath.Join(repoRoot, "go.mod"))
	if err != nil {
		return ""
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if mod, ok := strings.CutPrefix(line, "module "); ok {
			mod = strings.TrimSpace(mod)
			if i := strings.LastIndex(mod, "/"); i >= 0 {
				mod = mod[i+1:]
			}
			return mod
		}
	}
	return ""
}

// ValidateProjectManifest checks project.toml for schema, drift, and
// artifact consistency issues.
func ValidateProjectManifest(repoRoot string) (*ProjectReport, error) {
	m, err := LoadProjectManifest(repoRoot)
	if err != nil {
		return nil, err
	}
	return collectProjectIssues(repoRoot, m), nil
}

func collectProjectIssues(repoRoot string, m *ProjectManifest) *ProjectReport {
	report := &ProjectReport{}

	if m.Repokit.SchemaVersion != 1 {
		report.Errors = append(report.Errors, "project.toml: expected [repokit].schema_version = 1")
	}

	// Drift checks key off project.name: template repos use placeholders
	// there, and drift against a placeholder is meaningless.
	driftEnabled := isConcreteValue(m.Project.Name)
	if modName := moduleBasename(repoRoot); driftEnabled && modName != "" && m.Project.Name != modName {
		report.Errors = append(report.Errors, fmt.Sprintf(
			"project.toml: [project].name %q does not match go.mod module basename %q",
			m.Project.Name, modName))
	}

	var hasDocker, hasBinary bool
	for _, o := range m.Artifact.Outputs {
		allowed := false
		for _, a := range allowedArtifactOutputs {
			if o == a {
				allowed = true
				break
			}
		}
		if !allowed {
			report.Errors = append(report.Errors, fmt.Sprintf(
				"project.toml: [artifact].outputs contains unknown value %q", o))
		}
		switch o {
		case "docker":
			hasDocker = true
		case "binary":
			hasBinary = true
		}
	}

	if m.Docker.Enabled {
		if !hasDocker {
			report.Errors = append(report.Errors,
				"project.toml: [docker].enabled=true requires [artifact].outputs to include 'docker'")
		}
		if strings.TrimSpace(m.Docker.Image) == "" {
			report.Errors = append(report.Errors,
				"project.toml: [docker].image must be non-empty when docker is enabled")
		} else if driftEnabled && isTemplatePlaceholder(m.Docker.Image) {
			report.Warnings = append(report.Warnings,
				"project.toml: [docker].image appears to be a template placeholder")
		}
	} else if hasDocker {
		report.Warnings = append(report.Warnings,
			"project.toml: [artifact].outputs contains 'docker' but [docker].enabled is false")
	}

	if hasBinary && len(m.Build.Bins) == 0 && !hasMainPackage(repoRoot) {
		report.Errors = append(report.Errors,
			"project.toml: [artifact].outputs includes 'binary' but no binaries were found (set [build].bins, add cmd/<name>/main.go, or provide main.go)")
	}

	return report
}

// hasMainPackage looks for the conventional binary locations: a root
// main.go or any cmd/<name>/main.go.
func hasMainPackage(repoRoot string) bool {
	if _, err := os.Stat(filepath.Join(repoRoot, "main.go")); err == nil {
		return true
	}
	entries, err := os.ReadDir(filepath.Join(repoRoot, "cmd"))
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(repoRoot, "cmd", e.Name(), "main.go")); err == nil {
			return true
		}
	}
	return false
}

// GHAOutputs flattens the manifest into the key=value pairs the CI workflow
// consumes, in a fixed order.
func GHAOutputs(m *ProjectManifest) []string {
	boolStr := func(v *bool, def bool) string {
		b := def
		if v != nil {
			b = *v
		}
		if b {
			return "true"
		}
		return "false"
	}
	plain := func(b bool) string {
		if b {
			return "true"
		}
		return "false"
	}

	projectType := m.Project.Type
	if projectType == "" {
		projectType = "library"
	}
	quickGatePrecommit := false
	for _, g := range m.CI.QuickGate {
		if g == "pre-commit" {
			quickGatePrecommit = true
			break
		}
	}
	hasDocker := false
	for _, o := range m.Artifact.Outputs {
		if o == "docker" {
			hasDocker = true
			break
		}
	}

	return []string{
		"project_type=" + projectType,
		"run_build=" + boolStr(m.CI.RunBuild, true),
		"run_tests=" + boolStr(m.CI.RunTests, true),
		"run_security=" + boolStr(m.CI.RunSecurity, true),
		"run_docs=" + boolStr(m.CI.RunDocs, true),
		"quick_gate_precommit=" + plain(quickGatePrecommit),
		"outputs_list=" + strings.Join(m.Artifact.Outputs, ","),
		"outputs_contains_docker=" + plain(hasDocker),
		"docker_enabled=" + plain(m.Docker.Enabled),
		"docker_image=" + m.Docker.Image,
		"project_name=" + m.Project.Name,
		"project_version=" + m.Project.Version,
	}
}

// EmitGHAOutputs writes the pairs to the file named by $GITHUB_OUTPUT, or
// to w when the variable is unset.
func EmitGHAOutputs(repoRoot string, w *os.File) error {
	m, err := LoadProjectManifest(repoRoot)
	if err != nil {
		return err
	}
	lines := GHAOutputs(m)

	if ghOut := os.Getenv("GITHUB_OUTPUT"); ghOut != "" {
		f, err := os.OpenFile(ghOut, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening %s: %w", ghOut, err)
		}
		defer f.Close()
		for _, line := range lines {
			if _, err := fmt.Fprintln(f, line); err != nil {
				return fmt.Errorf("writing GITHUB_OUTPUT: %w", err)
			}
		}
		return nil
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult summarizes a directory of scenario runs.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure records one failed scenario.
type ScenarioFailure struct {
	ScenarioName string `json:"scenario_name"`
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// RunDir loads and runs every scenario file (*.yaml, *.yml) in a
// directory, in lexical order for deterministic reporting. Subdirectories
// are not descended; a conventional layout keeps golden files under
// {dir}/golden.
//
// A scenario that fails to load or execute counts as failed, with the
// error recorded; RunDir itself only errors when the directory cannot be
// read or contains no scenarios.
func RunDir(dir string) (*SuiteResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	suite := &SuiteResult{}
	for _, path := range paths {
		suite.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			suite.fail(scenarioNameForPath(path), path, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		result, err := Run(scenario)
		if err != nil {
			suite.fail(scenario.Name, path, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}
		if !result.Pass {
			suite.fail(scenario.Name, path, fmt.Sprintf("scenario failed: %s", strings.Join(result.Errors, "; ")))
			continue
		}

		suite.Passed++
	}

	return suite, nil
}

func (s *SuiteResult) fail(name, path, msg string) {
	s.Failed++
	s.Failures = append(s.Failures, ScenarioFailure{
		ScenarioName: name,
		ScenarioPath: path,
		Error:        msg,
	})
}

// scenarioNameForPath derives a fallback name for scenarios that never
// parsed far enough to carry one.
func scenarioNameForPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

//go:build cucumber

package integrity

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/qbank/internal/yamldoc"
	"github.com/cucumber/godog"
)

// TestIntegrityFeatures runs the integrity scenarios via godog.
func TestIntegrityFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "integrity",
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("testdata", "features")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

type scenarioState struct {
	file       string
	source     string
	violations []Violation
}

func initializeScenario(ctx *godog.ScenarioContext) {
	state := &scenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*state = scenarioState{}
		return ctx, nil
	})

	ctx.Step(`^the question bank file "([^"]+)":$`, state.givenFile)
	ctx.Step(`^the bank is validated$`, state.validate)
	ctx.Step(`^there are no violations$`, state.noViolations)
	ctx.Step(`^there (?:is|are) exactly (\d+) violations?$`, state.violationCount)
	ctx.Step(`^violation (\d+) has rule "([^"]+)" and mentions "((?:[^"\\]|\\.)*)"$`, state.violationMatches)
}

func (s *scenarioState) givenFile(name string, body *godog.DocString) error {
	s.file = name
	s.source = body.Content
	return nil
}

func (s *scenarioState) validate() error {
	doc, err := yamldoc.Parse([]byte(s.source))
	if err != nil {
		return err
	}
	s.violations = Validate(doc, s.file)
	return nil
}

func (s *scenarioState) noViolations() error {
	if len(s.violations) != 0 {
		return fmt.Errorf("expected no violations, got %v", s.violations)
	}
	return nil
}

func (s *scenarioState) violationCount(n int) error {
	if len(s.violations) != n {
		return fmt.Errorf("expected %d violations, got %d: %v", n, len(s.violations), s.violations)
	}
	return nil
}

func (s *scenarioState) violationMatches(n int, rule, fragment string) error {
	if n < 1 || n > len(s.violations) {
		return fmt.Errorf("violation %d out of range (have %d)", n, len(s.violations))
	}
	v := s.violations[n-1]
	if string(v.Rule) != rule {
		return fmt.Errorf("violation %d rule = %s, want %s", n, v.Rule, rule)
	}
	fragment = strings.ReplaceAll(fragment, `\"`, `"`)
	if !strings.Contains(v.Message, fragment) {
		return fmt.Errorf("violation %d message %q does not mention %q", n, v.Message, fragment)
	}
	return nil
}

package recovery

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	LastStatus() int
	GetResponseField(field string) (interface{}, error)
}

// RegisterSteps registers recovery and security status step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &recoverySteps{tc: tc}

	ctx.Step(`^I request the recovery status$`, steps.requestRecoveryStatus)
	ctx.Step(`^I request the security status$`, steps.requestSecurityStatus)
	ctx.Step(`^the security score should be at least (\d+)$`, steps.securityScoreAtLeast)
	ctx.Step(`^the recovery queue should not be empty$`, steps.queueNotEmpty)
}

type recoverySteps struct {
	tc TestContext
}

func (s *recoverySteps) requestRecoveryStatus(ctx context.Context) error {
	return s.tc.GET("/recovery/status")
}

func (s *recoverySteps) requestSecurityStatus(ctx context.Context) error {
	return s.tc.GET("/security/status")
}

func (s *recoverySteps) securityScoreAtLeast(ctx context.Context, minimum int) error {
	value, err := s.tc.GetResponseField("security_score")
	if err != nil {
		return err
	}
	score, ok := value.(float64)
	if !ok {
		return fmt.Errorf("security_score is not a number: %v", value)
	}
	if score < float64(minimum) {
		return fmt.Errorf("expected security score >= %d, got %v", minimum, score)
	}
	return nil
}

func (s *recoverySteps) queueNotEmpty(ctx context.Context) error {
	value, err := s.tc.GetResponseField("queue_length")
	if err != nil {
		return err
	}
	length, ok := value.(float64)
	if !ok {
		return fmt.Errorf("queue_length is not a number: %v", value)
	}
	if length < 1 {
		return fmt.Errorf("expected a queued recovery task, queue is empty")
	}
	return nil
}

package e2e

import (
	"github.com/cucumber/godog"

	"probo/e2e/steps/common"
	"probo/e2e/steps/ledger"
	"probo/e2e/steps/recovery"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, status assertions)
	common.RegisterSteps(ctx, tc)

	// Register footprint and coin lifecycle steps
	ledger.RegisterSteps(ctx, tc)

	// Register recovery and security status steps
	recovery.RegisterSteps(ctx, tc)
}

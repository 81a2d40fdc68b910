package ledger

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	LastStatus() int
	GetResponseField(field string) (interface{}, error)
	GetFootprintID() string
	SetFootprintID(id string)
	GetCoinID() string
	SetCoinID(id string)
}

// RegisterSteps registers footprint and coin lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ledgerSteps{tc: tc}

	// Footprint steps
	ctx.Step(`^I store a footprint with data "([^"]*)" of type "([^"]*)" for owner "([^"]*)"$`, steps.storeFootprint)
	ctx.Step(`^I save the footprint ID$`, steps.saveFootprintID)
	ctx.Step(`^I request the inclusion proof for the saved footprint$`, steps.requestProof)
	ctx.Step(`^the proof root should match the stored merkle root$`, steps.proofRootMatches)

	// Coin steps
	ctx.Step(`^I mint a coin from the saved footprint as owner "([^"]*)"$`, steps.mintCoin)
	ctx.Step(`^I save the coin ID$`, steps.saveCoinID)
	ctx.Step(`^I mint a second coin from the same footprint as owner "([^"]*)"$`, steps.mintCoin)
	ctx.Step(`^I request the ledger stats$`, steps.requestStats)
	ctx.Step(`^the information value should be positive$`, steps.informationValueIsPositive)
}

type ledgerSteps struct {
	tc TestContext

	merkleRoot string
}

func (s *ledgerSteps) storeFootprint(ctx context.Context, data, dataType, owner string) error {
	body := map[string]interface{}{
		"data":      data,
		"data_type": dataType,
		"owner_id":  owner,
	}
	if err := s.tc.POST("/ledger/footprints", body); err != nil {
		return err
	}
	if s.tc.LastStatus() == 201 {
		root, err := s.tc.GetResponseField("merkle_root")
		if err != nil {
			return err
		}
		s.merkleRoot = root.(string)
	}
	return nil
}

func (s *ledgerSteps) saveFootprintID(ctx context.Context) error {
	fpID, err := s.tc.GetResponseField("footprint_id")
	if err != nil {
		return err
	}
	s.tc.SetFootprintID(fpID.(string))
	return nil
}

func (s *ledgerSteps) requestProof(ctx context.Context) error {
	return s.tc.GET("/ledger/footprints/" + s.tc.GetFootprintID() + "/proof")
}

func (s *ledgerSteps) proofRootMatches(ctx context.Context) error {
	root, err := s.tc.GetResponseField("root")
	if err != nil {
		return err
	}
	if root != s.merkleRoot {
		return fmt.Errorf("proof root %v does not match stored root %s", root, s.merkleRoot)
	}
	return nil
}

func (s *ledgerSteps) mintCoin(ctx context.Context, owner string) error {
	body := map[string]interface{}{
		"footprint_id": s.tc.GetFootprintID(),
		"owner_id":     owner,
	}
	return s.tc.POST("/ledger/coins", body)
}

func (s *ledgerSteps) saveCoinID(ctx context.Context) error {
	coinID, err := s.tc.GetResponseField("coin_id")
	if err != nil {
		return err
	}
	s.tc.SetCoinID(coinID.(string))
	return nil
}

func (s *ledgerSteps) requestStats(ctx context.Context) error {
	return s.tc.GET("/ledger/stats")
}

func (s *ledgerSteps) informationValueIsPositive(ctx context.Context) error {
	value, err := s.tc.GetResponseField("information_value")
	if err != nil {
		return err
	}
	str, ok := value.(string)
	if !ok || len(str) == 0 || str == "0" || str[0] == '-' {
		return fmt.Errorf("expected positive information value, got %v", value)
	}
	return nil
}

package testdetect

import (
	"context"
	"fmt"
	"log"
)

// rejectionMessage is the fixed error body the service answers when no
// screenshot field is present.
const rejectionMessage = "No screenshot data provided"

// expectedDetections is the fixed set the service serves until a trained
// model is wired in.
var expectedDetections = []Detection{
	{Label: "button", Confidence: 0.95, Box: []int{100, 150, 200, 180}},
	{Label: "text_input", Confidence: 0.88, Box: []int{300, 250, 450, 280}},
	{Label: "scrollbar", Confidence: 0.75, Box: []int{780, 50, 795, 500}},
}

// verifyResults checks every outcome against the fixed detect contract and
// probes the endpoint's edge behavior.
func verifyResults(ctx context.Context, config *Config, outcomes []Outcome, stats *Stats) error {
	log.Println("🔍 Verifying responses...")

	violations := 0
	for i := range outcomes {
		if err := verifyOutcome(outcomes[i]); err != nil {
			violations++
			if config.Verbose {
				log.Printf("⚠️  Response %s violates the contract: %v", outcomes[i].ID, err)
			}
		}
	}
	stats.ContractViolations = violations
	if violations > 0 {
		return fmt.Errorf("%d of %d responses violate the detect contract", violations, len(outcomes))
	}
	log.Printf("✅ All %d responses match the fixed detection set", len(outcomes))

	if err := verifyRejections(ctx, config); err != nil {
		return fmt.Errorf("rejection probe failed: %w", err)
	}
	log.Println("✅ Rejection behavior verified")

	if err := verifyEmptyAccepted(ctx, config); err != nil {
		return fmt.Errorf("empty payload probe failed: %w", err)
	}
	log.Println("✅ Empty screenshot accepted as a valid value")

	log.Println("✅ Result verification completed")
	return nil
}

// verifyOutcome checks one response against the canonical detection set.
func verifyOutcome(o Outcome) error {
	if o.Err != nil {
		return o.Err
	}
	if o.Status != StatusOK {
		return fmt.Errorf("unexpected status %d", o.Status)
	}
	return verifyDetections(o.Response.Detections)
}

// verifyDetections compares a response entry by entry with the canonical
// set, order included.
func verifyDetections(got []Detection) error {
	if len(got) != len(expectedDetections) {
		return fmt.Errorf("expected %d detections, got %d", len(expectedDetections), len(got))
	}
	for i, want := range expectedDetections {
		d := got[i]
		if d.Label != want.Label {
			return fmt.Errorf("detection %d: expected label %q, got %q", i, want.Label, d.Label)
		}
		if d.Confidence != want.Confidence {
			return fmt.Errorf("detection %d: expected confidence %.2f, got %.2f", i, want.Confidence, d.Confidence)
		}
		if len(d.Box) != len(want.Box) {
			return fmt.Errorf("detection %d: expected %d box coordinates, got %d", i, len(want.Box), len(d.Box))
		}
		for j := range want.Box {
			if d.Box[j] != want.Box[j] {
				return fmt.Errorf("detection %d: box coordinate %d expected %d, got %d", i, j, want.Box[j], d.Box[j])
			}
		}
	}
	return nil
}

// verifyRejections probes the endpoint's 400 contract: a missing screenshot
// field, an explicit null, and an undecodable body must all come back with
// the fixed error message.
func verifyRejections(ctx context.Context, config *Config) error {
	client := newClient(config.Timeout)
	url := config.BaseURL + "/detect"

	probes := []struct {
		name string
		body string
	}{
		{"missing field", `{}`},
		{"null screenshot", `{"screenshot": null}`},
		{"undecodable body", `{not json`},
	}

	for _, probe := range probes {
		var errResp ErrorResponse
		resp, err := client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(probe.body).
			SetError(&errResp).
			Post(url)
		if err != nil {
			return fmt.Errorf("%s probe: request failed: %w", probe.name, err)
		}
		if resp.StatusCode() != StatusBadRequest {
			return fmt.Errorf("%s probe: expected status %d, got %d", probe.name, StatusBadRequest, resp.StatusCode())
		}
		if errResp.Error != rejectionMessage {
			return fmt.Errorf("%s probe: expected error %q, got %q", probe.name, rejectionMessage, errResp.Error)
		}
	}
	return nil
}

// verifyEmptyAccepted confirms an empty screenshot string is still a
// present value and answered with the full detection set.
func verifyEmptyAccepted(ctx context.Context, config *Config) error {
	client := newClient(config.Timeout)

	var detResp DetectResponse
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(DetectRequest{Screenshot: ""}).
		SetResult(&detResp).
		Post(config.BaseURL + "/detect")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != StatusOK {
		return fmt.Errorf("expected status %d, got %d", StatusOK, resp.StatusCode())
	}
	return verifyDetections(detResp.Detections)
}

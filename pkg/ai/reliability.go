package ai

import (
	"context"
	"fmt"

	"github.com/dslunde/Glyph-sub000/internal/util"
)

const reliabilityExcerptRunes = 1500

// ReliabilityResponse is the structured output of reliability scoring.
type ReliabilityResponse struct {
	Score     int    `json:"score" jsonschema_description:"Trustworthiness from 0 to 100."`
	Reasoning string `json:"reasoning" jsonschema_description:"One sentence justification."`
}

// ScoreReliability asks the model for a 0-100 reliability score of a source.
// Scores outside the range wrap ErrInvalidResponse rather than being clamped.
func ScoreReliability(
	ctx context.Context,
	client GraphAIClient,
	title string,
	url string,
	content string,
) (int, error) {
	if client == nil {
		return 0, fmt.Errorf("ai client is nil")
	}
	prompt := fmt.Sprintf(ReliabilityPrompt, title, url, util.Truncate(content, reliabilityExcerptRunes))

	var res ReliabilityResponse
	err := client.GenerateCompletionWithFormat(
		ctx,
		"reliability_score",
		"Reliability assessment of a web source.",
		prompt,
		&res,
		WithTemperature(0.1),
	)
	if err != nil {
		return 0, err
	}
	if res.Score < 0 || res.Score > 100 {
		return 0, fmt.Errorf("%w: score %d out of range", ErrInvalidResponse, res.Score)
	}
	return res.Score, nil
}

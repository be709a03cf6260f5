package ai

import (
	"context"
	"fmt"
)

// ExtractedItem is a single concept or entity returned by the model.
type ExtractedItem struct {
	Name  string `json:"name" jsonschema_description:"Canonical name of the concept or entity."`
	Kind  string `json:"kind" jsonschema:"enum=concept,enum=entity" jsonschema_description:"Either concept or entity."`
	Count int    `json:"count" jsonschema_description:"How often the item is mentioned in the document."`
}

// ExtractionResponse is the structured output of concept extraction.
type ExtractionResponse struct {
	Items []ExtractedItem `json:"items" jsonschema_description:"Extracted concepts and entities."`
}

// ExtractConcepts asks the model for up to limit concepts and entities in text.
func ExtractConcepts(
	ctx context.Context,
	client GraphAIClient,
	topic string,
	text string,
	limit int,
) ([]ExtractedItem, error) {
	if client == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	prompt := fmt.Sprintf(ConceptExtractionPrompt, topic, text, limit)

	var res ExtractionResponse
	if err := client.GenerateCompletionWithFormat(
		ctx,
		"concept_extraction",
		"Concepts and entities mentioned in a document.",
		prompt,
		&res,
	); err != nil {
		return nil, err
	}
	if len(res.Items) > limit {
		res.Items = res.Items[:limit]
	}
	return res.Items, nil
}

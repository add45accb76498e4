package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/demo671/pdf-docflow/internal/models"
)

// RuleStore persists administrator-authored template rule sets in
// Firestore. Rule sets are immutable during a run; the pipeline loads them
// read-only by id.
type RuleStore struct {
	client     *firestore.Client
	collection string
}

// NewRuleStore returns a store over the given collection.
func NewRuleStore(client *firestore.Client, collection string) *RuleStore {
	if collection == "" {
		collection = "templateRuleSets"
	}
	return &RuleStore{client: client, collection: collection}
}

// Save validates the raw rule set JSON and stores it under id. Invalid
// documents are rejected with ErrInvalidTemplate before they can ever be
// referenced by a processing request.
func (s *RuleStore) Save(ctx context.Context, id string, raw []byte) (models.TemplateRuleSet, error) {
	rules, err := ParseTemplateRules(raw)
	if err != nil {
		return models.TemplateRuleSet{}, err
	}
	if _, err := s.client.Collection(s.collection).Doc(id).Set(ctx, rules); err != nil {
		return models.TemplateRuleSet{}, fmt.Errorf("failed to store rule set %s: %w", id, err)
	}
	return rules, nil
}

// Load fetches the rule set referenced by id.
func (s *RuleStore) Load(ctx context.Context, id string) (models.TemplateRuleSet, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		return models.TemplateRuleSet{}, fmt.Errorf("failed to load rule set %s: %w", id, err)
	}
	var rules models.TemplateRuleSet
	if err := snap.DataTo(&rules); err != nil {
		return models.TemplateRuleSet{}, fmt.Errorf("failed to decode rule set %s: %w", id, err)
	}
	return rules, nil
}

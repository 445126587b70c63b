// Package snapshot turns the campaign aggregate into durable bytes and
// isolated history copies.
package snapshot

import (
	"encoding/json"

	"github.com/ematosg/spiretracker/internal/campaign/domain"
	apperrors "github.com/ematosg/spiretracker/internal/platform/errors"
)

// Codec serializes campaign sets for the durable medium and produces
// isolated copies for history entries. Copies go through the typed Clone
// methods rather than an encode/decode round trip, so a single-field edit
// does not pay a full serialization.
type Codec struct{}

// EncodeSet serializes a campaign set to its durable byte representation.
func (Codec) EncodeSet(set domain.CampaignSet) ([]byte, error) {
	payload, err := json.Marshal(set)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageWriteFailure, "marshal campaign set", err)
	}
	return payload, nil
}

// DecodeSet deserializes a campaign set from its durable byte representation.
func (Codec) DecodeSet(payload []byte) (domain.CampaignSet, error) {
	var set domain.CampaignSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return domain.CampaignSet{}, apperrors.Wrap(apperrors.CodeSnapshotCorrupt, "unmarshal campaign set", err)
	}
	if set.Campaigns == nil {
		set.Campaigns = map[string]domain.Campaign{}
	}
	return set, nil
}

// CloneSet returns a fully isolated copy of the set.
func (Codec) CloneSet(set domain.CampaignSet) domain.CampaignSet {
	return set.Clone()
}

// CloneCampaign returns a fully isolated copy of one campaign.
func (Codec) CloneCampaign(campaign domain.Campaign) domain.Campaign {
	return campaign.Clone()
}

// CloneRelationship returns an isolated copy of one relationship.
func (Codec) CloneRelationship(relationship domain.Relationship) domain.Relationship {
	return relationship.Clone()
}

// CloneSection returns an isolated copy of one section list.
func (Codec) CloneSection(items []string) []string {
	return append([]string(nil), items...)
}

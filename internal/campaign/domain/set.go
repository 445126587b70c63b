package domain

import (
	apperrors "github.com/ematosg/spiretracker/internal/platform/errors"
)

// CampaignSet is everything one user owns: all of their campaigns plus
// which one is active. It is the unit the durable store persists.
type CampaignSet struct {
	Campaigns map[string]Campaign `json:"campaigns"`
	ActiveID  string              `json:"active_id,omitempty"`
}

// NewCampaignSet returns an empty set.
func NewCampaignSet() CampaignSet {
	return CampaignSet{Campaigns: map[string]Campaign{}}
}

// Campaign returns the campaign with the given id.
func (s CampaignSet) Campaign(campaignID string) (Campaign, error) {
	campaign, ok := s.Campaigns[campaignID]
	if !ok {
		return Campaign{}, apperrors.WithMetadata(apperrors.CodeCampaignNotFound, "campaign not found",
			map[string]string{"CampaignID": campaignID})
	}
	return campaign, nil
}

// Active returns the active campaign, if one is selected.
func (s CampaignSet) Active() (Campaign, bool) {
	if s.ActiveID == "" {
		return Campaign{}, false
	}
	campaign, ok := s.Campaigns[s.ActiveID]
	return campaign, ok
}

// PutCampaign adds or replaces a campaign, activating it when the set has
// no active campaign yet.
func (s *CampaignSet) PutCampaign(campaign Campaign) {
	if s.Campaigns == nil {
		s.Campaigns = map[string]Campaign{}
	}
	s.Campaigns[campaign.ID] = campaign
	if s.ActiveID == "" {
		s.ActiveID = campaign.ID
	}
}

// Clone returns a deep copy of the set with no shared mutable structure.
func (s CampaignSet) Clone() CampaignSet {
	cloned := s
	if s.Campaigns != nil {
		cloned.Campaigns = make(map[string]Campaign, len(s.Campaigns))
		for campaignID, campaign := range s.Campaigns {
			cloned.Campaigns[campaignID] = campaign.Clone()
		}
	}
	return cloned
}

package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeCampaignNameEmpty         = "CAMPAIGN_NAME_EMPTY"
	CodeCampaignNotFound          = "CAMPAIGN_NOT_FOUND"
	CodeEntityNameEmpty           = "ENTITY_NAME_EMPTY"
	CodeEntityInvalidKind         = "ENTITY_INVALID_KIND"
	CodeEntityNotFound            = "ENTITY_NOT_FOUND"
	CodeSectionUnknown            = "SECTION_UNKNOWN"
	CodeRelationshipEmptyEndpoint = "RELATIONSHIP_EMPTY_ENDPOINT"
	CodeRelationshipSelfLink      = "RELATIONSHIP_SELF_LINK"
	CodeRelationshipNotFound      = "RELATIONSHIP_NOT_FOUND"
	CodeNotFound                  = "NOT_FOUND"
	CodeStorageWriteFailure       = "STORAGE_WRITE_FAILURE"
	CodeConflictActive            = "CONFLICT_ACTIVE"
	CodeQueueFlushRejected        = "QUEUE_FLUSH_REJECTED"
	CodeQueueEmpty                = "QUEUE_EMPTY"
	CodeHistoryEmpty              = "HISTORY_EMPTY"
	CodeSnapshotCorrupt           = "SNAPSHOT_CORRUPT"
	CodeResistanceUnknown         = "RESISTANCE_UNKNOWN"
	CodeStressInvalidAmount       = "STRESS_INVALID_AMOUNT"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[Code]string{
		// Campaign errors
		CodeCampaignNameEmpty: "Campaign name cannot be empty",
		CodeCampaignNotFound:  "Campaign {{.CampaignID}} was not found",

		// Entity errors
		CodeEntityNameEmpty:   "Entity name cannot be empty",
		CodeEntityInvalidKind: "Invalid entity kind {{.Kind}}",
		CodeEntityNotFound:    "Entity {{.EntityID}} was not found",
		CodeSectionUnknown:    "Unknown entity section {{.Section}}",

		// Relationship errors
		CodeRelationshipEmptyEndpoint: "A relationship needs both endpoints",
		CodeRelationshipSelfLink:      "A relationship cannot link an entity to itself",
		CodeRelationshipNotFound:      "Relationship {{.RelationshipID}} was not found",

		// Storage errors
		CodeNotFound:            "No saved campaigns were found",
		CodeStorageWriteFailure: "Saving failed; your changes are kept locally and can be retried",

		// Sync errors
		CodeConflictActive:     "Another device has saved newer changes; choose which version to keep",
		CodeQueueFlushRejected: "Queued changes were based on an older save and need your review",
		CodeQueueEmpty:         "There are no queued changes to retry",

		// History errors
		CodeHistoryEmpty:    "Nothing to undo here",
		CodeSnapshotCorrupt: "A history entry could not be read and was skipped",

		// Rules errors
		CodeResistanceUnknown:   "Unknown resistance {{.Resistance}}",
		CodeStressInvalidAmount: "Stress amount {{.Amount}} is not allowed",
	},
}

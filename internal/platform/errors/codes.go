package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Campaign errors
	CodeCampaignNameEmpty Code = "CAMPAIGN_NAME_EMPTY"
	CodeCampaignNotFound  Code = "CAMPAIGN_NOT_FOUND"

	// Entity errors
	CodeEntityNameEmpty   Code = "ENTITY_NAME_EMPTY"
	CodeEntityInvalidKind Code = "ENTITY_INVALID_KIND"
	CodeEntityNotFound    Code = "ENTITY_NOT_FOUND"
	CodeSectionUnknown    Code = "SECTION_UNKNOWN"

	// Relationship errors
	CodeRelationshipEmptyEndpoint Code = "RELATIONSHIP_EMPTY_ENDPOINT"
	CodeRelationshipSelfLink      Code = "RELATIONSHIP_SELF_LINK"
	CodeRelationshipNotFound      Code = "RELATIONSHIP_NOT_FOUND"

	// Storage errors
	CodeNotFound            Code = "NOT_FOUND"
	CodeStorageWriteFailure Code = "STORAGE_WRITE_FAILURE"

	// Sync errors
	CodeConflictActive     Code = "CONFLICT_ACTIVE"
	CodeQueueFlushRejected Code = "QUEUE_FLUSH_REJECTED"
	CodeQueueEmpty         Code = "QUEUE_EMPTY"

	// History errors
	CodeHistoryEmpty    Code = "HISTORY_EMPTY"
	CodeSnapshotCorrupt Code = "SNAPSHOT_CORRUPT"

	// Rules errors
	CodeResistanceUnknown   Code = "RESISTANCE_UNKNOWN"
	CodeStressInvalidAmount Code = "STRESS_INVALID_AMOUNT"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeCampaignNameEmpty,
		CodeEntityNameEmpty,
		CodeEntityInvalidKind,
		CodeSectionUnknown,
		CodeRelationshipEmptyEndpoint,
		CodeRelationshipSelfLink,
		CodeResistanceUnknown,
		CodeStressInvalidAmount:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeConflictActive,
		CodeQueueFlushRejected,
		CodeQueueEmpty,
		CodeHistoryEmpty:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeCampaignNotFound,
		CodeEntityNotFound,
		CodeRelationshipNotFound:
		return codes.NotFound

	// DataLoss - durable or snapshot payload could not be decoded
	case CodeSnapshotCorrupt:
		return codes.DataLoss

	// Unavailable - the durable medium rejected the write
	case CodeStorageWriteFailure:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}

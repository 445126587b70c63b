package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeQueueFlushRejected, "stale base revision")
	target := New(CodeQueueFlushRejected, "different message")

	if !stderrors.Is(err, target) {
		t.Fatal("expected errors with the same code to match")
	}
	if stderrors.Is(err, New(CodeConflictActive, "stale base revision")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeStorageWriteFailure, "persist campaign set", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be found in chain")
	}
	if GetCode(err) != CodeStorageWriteFailure {
		t.Fatalf("expected storage write failure code, got %s", GetCode(err))
	}
}

func TestGetCodeThroughWrapping(t *testing.T) {
	inner := New(CodeHistoryEmpty, "undo stack is empty")
	outer := fmt.Errorf("undo campaign: %w", inner)

	if GetCode(outer) != CodeHistoryEmpty {
		t.Fatalf("expected history empty code, got %s", GetCode(outer))
	}
	if !IsCode(outer, CodeHistoryEmpty) {
		t.Fatal("expected IsCode to match through wrapping")
	}
}

func TestGetCodeUnknownError(t *testing.T) {
	if GetCode(stderrors.New("plain")) != CodeUnknown {
		t.Fatal("expected unknown code for plain error")
	}
}

func TestGetMetadata(t *testing.T) {
	err := WithMetadata(CodeEntityNotFound, "entity missing", map[string]string{"EntityID": "pc-1"})

	metadata := GetMetadata(err)
	if metadata == nil {
		t.Fatal("expected metadata")
	}
	if metadata["EntityID"] != "pc-1" {
		t.Fatalf("expected entity id pc-1, got %q", metadata["EntityID"])
	}
	if GetMetadata(stderrors.New("plain")) != nil {
		t.Fatal("expected nil metadata for plain error")
	}
}

func TestHandleErrorLocalizes(t *testing.T) {
	err := WithMetadata(CodeEntityNotFound, "entity missing", map[string]string{"EntityID": "pc-1"})

	grpcErr := HandleError(err, "")
	st, ok := status.FromError(grpcErr)
	if !ok {
		t.Fatal("expected grpc status")
	}
	if st.Code() != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", st.Code())
	}
	if st.Message() != "entity missing" {
		t.Fatalf("expected internal message, got %q", st.Message())
	}
}

func TestHandleErrorUnknown(t *testing.T) {
	grpcErr := HandleError(stderrors.New("boom"), "en-US")
	st, ok := status.FromError(grpcErr)
	if !ok {
		t.Fatal("expected grpc status")
	}
	if st.Code() != codes.Internal {
		t.Fatalf("expected Internal, got %v", st.Code())
	}
}

func TestHandleErrorNil(t *testing.T) {
	if HandleError(nil, "en-US") != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	cases := []struct {
		code Code
		want codes.Code
	}{
		{CodeCampaignNameEmpty, codes.InvalidArgument},
		{CodeConflictActive, codes.FailedPrecondition},
		{CodeQueueFlushRejected, codes.FailedPrecondition},
		{CodeNotFound, codes.NotFound},
		{CodeSnapshotCorrupt, codes.DataLoss},
		{CodeStorageWriteFailure, codes.Unavailable},
		{CodeUnknown, codes.Internal},
	}
	for _, tc := range cases {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Fatalf("code %s: expected %v, got %v", tc.code, tc.want, got)
		}
	}
}

package api

import (
	"context"
	"errors"

	"github.com/signalsfoundry/ppl-reader/core"
	"github.com/signalsfoundry/ppl-reader/internal/export"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrEmptyInput is returned when a request carries no PPL text.
	ErrEmptyInput = errors.New("empty PPL input")
	// ErrExportUnavailable is returned when the service has no sink configured.
	ErrExportUnavailable = errors.New("export sink not configured")
)

// ToStatusError maps parse and export errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrEmptyInput), core.IsParseError(err), errors.Is(err, export.ErrInvalidBranchName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrExportUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

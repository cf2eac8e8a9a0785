package grpcsvc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// toStatus переводит отказ коммерческой операции в gRPC-статус по категории отказа.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeOf(err), err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}

	switch domain.KindOf(err) {
	case domain.FailureValidation:
		return codes.InvalidArgument
	case domain.FailureOfferNotFound, domain.FailureSubscriptionNotFound:
		return codes.NotFound
	case domain.FailureOfferInactive, domain.FailureSubscriptionExpired:
		return codes.FailedPrecondition
	case domain.FailureGateway:
		if errors.Is(err, domain.ErrPaymentDeclined) {
			return codes.FailedPrecondition
		}
		return codes.Unavailable
	case domain.FailureCommerceAPI:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

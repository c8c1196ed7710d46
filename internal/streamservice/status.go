package streamservice

import (
	"context"

	"github.com/dna-engine/dna/api/dnapb"
)

// Status implements dnapb.StreamServiceServer's unary Status RPC: a
// lightweight snapshot clients poll instead of opening a stream just to
// learn the chain's current watermarks.
func (s *Service) Status(_ context.Context, _ *dnapb.StatusRequest) (*dnapb.StatusResponse, error) {
	head := s.cfg.View.Head()
	finalized := s.cfg.View.Finalized()

	return &dnapb.StatusResponse{
		CurrentHead:   &dnapb.Cursor{Number: head},
		LastIngested:  &dnapb.Cursor{Number: head},
		Finalized:     &dnapb.Cursor{Number: finalized},
		StartingBlock: s.cfg.StartingBlock,
	}, nil
}

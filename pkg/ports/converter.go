package ports

import (
	"context"

	"github.com/aretw0/fsmconv/pkg/domain"
	"github.com/aretw0/fsmconv/pkg/pipeline"
)

// Converter is the stateless core used by the transport adapters.
type Converter interface {
	// Convert parses text and converts it in the given direction.
	Convert(ctx context.Context, dir domain.Direction, text string) (*pipeline.Result, error)

	// Simulate feeds inputs to the machine described by text.
	Simulate(ctx context.Context, kind domain.MachineKind, text string, inputs []int) (*pipeline.Simulation, error)

	// Validate parses text and returns the machine it describes.
	Validate(ctx context.Context, kind domain.MachineKind, text string) (domain.Machine, error)
}

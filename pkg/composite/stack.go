package composite

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vjranagit/drought/pkg/observability"
	"github.com/vjranagit/drought/pkg/types"
)

// Join inner-joins two composite series on their TimeKey and concatenates
// the bands of each matching pair. The result follows the order of a.
func Join(a, b []types.MonthlyComposite) ([]types.MonthlyComposite, error) {
	right := make(map[types.TimeKey]types.MonthlyComposite, len(b))
	for _, c := range b {
		if _, dup := right[c.Key]; dup {
			return nil, &types.PreconditionError{
				Op:     "stack",
				Reason: fmt.Sprintf("source %s has more than one composite for %s", c.Source, c.Key),
			}
		}
		right[c.Key] = c
	}

	seen := make(map[types.TimeKey]struct{}, len(a))
	out := make([]types.MonthlyComposite, 0, len(a))
	for _, l := range a {
		if _, dup := seen[l.Key]; dup {
			return nil, &types.PreconditionError{
				Op:     "stack",
				Reason: fmt.Sprintf("source %s has more than one composite for %s", l.Source, l.Key),
			}
		}
		seen[l.Key] = struct{}{}

		r, ok := right[l.Key]
		if !ok {
			continue
		}

		img, err := concat(l.Image, r.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to stack %s: %w", l.Key, err)
		}
		out = append(out, types.MonthlyComposite{
			Key:    l.Key,
			Source: l.Source + "+" + r.Source,
			Image:  img,
		})
	}
	return out, nil
}

func concat(a, b types.Image) (types.Image, error) {
	out := types.Image{Time: a.Time, Bands: make([]types.Band, 0, len(a.Bands)+len(b.Bands))}
	names := make(map[string]struct{}, len(a.Bands)+len(b.Bands))
	for _, img := range []types.Image{a, b} {
		for _, band := range img.Clone().Bands {
			if _, dup := names[band.Name]; dup {
				return types.Image{}, fmt.Errorf("%w: %s", ErrDuplicateBand, band.Name)
			}
			names[band.Name] = struct{}{}
			out.Bands = append(out.Bands, band)
		}
	}
	return out, nil
}

// Stacker folds several composite series into one
type Stacker struct {
	log logrus.FieldLogger
}

// NewStacker creates a stacker that reports empty joins on log
func NewStacker(log logrus.FieldLogger) *Stacker {
	return &Stacker{log: log.WithField("component", "stacker")}
}

// Stack left-folds Join over inputs in the given order, so the result only
// holds months present in every input. A single input is returned as is.
// An empty result is not an error but is logged and counted.
func (s *Stacker) Stack(inputs ...[]types.MonthlyComposite) ([]types.MonthlyComposite, error) {
	switch len(inputs) {
	case 0:
		return nil, ErrNoInputs
	case 1:
		return inputs[0], nil
	}

	stack := inputs[0]
	for i := 1; i < len(inputs); i++ {
		before := len(stack)
		joined, err := Join(stack, inputs[i])
		if err != nil {
			return nil, err
		}
		stack = joined

		if len(stack) == 0 {
			observability.EmptyJoinsTotal.Inc()
			s.log.WithFields(logrus.Fields{
				"input":        i,
				"left_months":  before,
				"right_months": len(inputs[i]),
			}).Warn("Stacked composites share no month, result is empty")
			break
		}
	}
	return stack, nil
}

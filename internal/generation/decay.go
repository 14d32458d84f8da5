package generation

import (
	"context"
	"errors"
	"math"
	"time"

	id "atomfleet/pkg/domain"
	dErrors "atomfleet/pkg/domain-errors"
	"atomfleet/pkg/platform/sentinel"
)

// DecayModel estimates post-shutdown decay heat from an empirical
// power-law correlation. With no Terms the simple form applies:
//
//	P(t) = C * P0 * t^-n
//
// With Terms it is the multi-term sum P0 * Σ a_i * t^-n_i. Elapsed time t
// is in seconds since shutdown.
type DecayModel struct {
	C     float64
	N     float64
	Terms []DecayTerm
}

// DecayTerm is one a_i * t^-n_i contribution of the multi-term model.
type DecayTerm struct {
	Coefficient float64
	Exponent    float64
}

// DefaultDecayModel returns the standard single-term correlation
// (C = 0.066, n = 0.2).
func DefaultDecayModel() DecayModel {
	return DecayModel{C: 0.066, N: 0.2}
}

// Estimate returns decay power in the same unit as p0. The correlation is
// singular at t = 0, so elapsed times under one second are clamped to one.
func (m DecayModel) Estimate(p0, elapsedSeconds float64) float64 {
	if elapsedSeconds < 1 {
		elapsedSeconds = 1
	}
	if len(m.Terms) == 0 {
		return m.C * p0 * math.Pow(elapsedSeconds, -m.N)
	}
	var sum float64
	for _, term := range m.Terms {
		sum += term.Coefficient * math.Pow(elapsedSeconds, -term.Exponent)
	}
	return p0 * sum
}

// DecayHeat estimates a shut-down unit's residual thermal power at the
// given time. It needs the unit's thermal rating and its permanent
// shutdown date.
func (s *Service) DecayHeat(ctx context.Context, unitID id.UnitID, at time.Time) (float64, error) {
	u, err := s.units.FindByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.Newf(dErrors.CodeNotFound, "unit %s not found", unitID)
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit")
	}

	if u.ThermalPowerMW == nil {
		return 0, dErrors.Newf(dErrors.CodeValidation,
			"unit %s has no thermal power rating", unitID)
	}
	if u.PermanentShutdown == nil {
		return 0, dErrors.Newf(dErrors.CodeValidation,
			"unit %s has no permanent shutdown date", unitID)
	}
	if at.Before(*u.PermanentShutdown) {
		return 0, dErrors.New(dErrors.CodeValidation,
			"decay heat is undefined before permanent shutdown")
	}

	elapsed := at.Sub(*u.PermanentShutdown).Seconds()
	return s.decay.Estimate(*u.ThermalPowerMW, elapsed), nil
}

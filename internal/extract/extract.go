package extract

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/pepaaran/ingestr/internal/domain"
)

// Extractor runs validated extractions against the registry.
type Extractor struct {
	registry *Registry
	validate *validator.Validate
}

// NewExtractor creates an extractor over a registry.
func NewExtractor(registry *Registry) *Extractor {
	return &Extractor{
		registry: registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ExtractAll validates the spec, resolves its adapter, checks every
// requested variable against the adapter's vocabulary, and extracts.
// Settings problems surface as ErrInvalidSettings before any file is
// touched; an unknown variable additionally matches ErrVariableNotFound.
func (e *Extractor) ExtractAll(ctx context.Context, sites []domain.Site, spec domain.SourceSpec) ([]domain.RawRecord, error) {
	if err := e.validateSpec(spec); err != nil {
		return nil, err
	}

	src, ok := e.registry.Lookup(spec.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown source kind %q", domain.ErrInvalidSettings, spec.Kind)
	}

	vocab := src.Vocabulary()
	for _, v := range spec.Variables {
		if _, known := vocab[v]; !known {
			return nil, fmt.Errorf("%w: %w: variable %q is not in the %s vocabulary",
				domain.ErrInvalidSettings, domain.ErrVariableNotFound, v, spec.Kind)
		}
	}

	return src.Extract(ctx, sites, spec)
}

// validateSpec enforces the per-field and cross-field settings rules.
func (e *Extractor) validateSpec(spec domain.SourceSpec) error {
	if err := e.validate.Struct(spec); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidSettings, err)
	}

	switch spec.Kind {
	case domain.KindSoilLayers:
		if len(spec.Layers) == 0 {
			return fmt.Errorf("%w: %s requires at least one layer", domain.ErrInvalidSettings, spec.Kind)
		}
		if spec.TimeScale != "" {
			return fmt.Errorf("%w: %s takes no time scale, got %q", domain.ErrInvalidSettings, spec.Kind, spec.TimeScale)
		}
		if spec.YearStart != 0 || spec.YearEnd != 0 {
			return fmt.Errorf("%w: %s takes no year range", domain.ErrInvalidSettings, spec.Kind)
		}
	case domain.KindPointRaster:
		if len(spec.Layers) != 0 {
			return fmt.Errorf("%w: %s takes no layers", domain.ErrInvalidSettings, spec.Kind)
		}
		if spec.TimeScale != "" {
			return fmt.Errorf("%w: %s takes no time scale, got %q", domain.ErrInvalidSettings, spec.Kind, spec.TimeScale)
		}
		if spec.YearStart != 0 || spec.YearEnd != 0 {
			return fmt.Errorf("%w: %s takes no year range", domain.ErrInvalidSettings, spec.Kind)
		}
	case domain.KindMonthlyStack:
		if len(spec.Layers) != 0 {
			return fmt.Errorf("%w: %s takes no layers", domain.ErrInvalidSettings, spec.Kind)
		}
		if spec.TimeScale != domain.TimeScaleMonthly {
			return fmt.Errorf("%w: %s requires time scale %q, got %q",
				domain.ErrInvalidSettings, spec.Kind, domain.TimeScaleMonthly, spec.TimeScale)
		}
		if spec.YearStart != 0 || spec.YearEnd != 0 {
			return fmt.Errorf("%w: %s takes no year range", domain.ErrInvalidSettings, spec.Kind)
		}
	case domain.KindAnnualSeries, domain.KindCO2Archive:
		if len(spec.Layers) != 0 {
			return fmt.Errorf("%w: %s takes no layers", domain.ErrInvalidSettings, spec.Kind)
		}
		if spec.TimeScale != domain.TimeScaleYearly {
			return fmt.Errorf("%w: %s requires time scale %q, got %q",
				domain.ErrInvalidSettings, spec.Kind, domain.TimeScaleYearly, spec.TimeScale)
		}
		if spec.YearStart == 0 || spec.YearEnd == 0 {
			return fmt.Errorf("%w: %s requires a year range", domain.ErrInvalidSettings, spec.Kind)
		}
		if spec.YearStart > spec.YearEnd {
			return fmt.Errorf("%w: year range %d..%d is inverted", domain.ErrInvalidSettings, spec.YearStart, spec.YearEnd)
		}
	}

	if err := validateComposites(spec); err != nil {
		return err
	}
	if spec.LayerMean && spec.Kind != domain.KindSoilLayers {
		return fmt.Errorf("%w: layer_mean only applies to %s", domain.ErrInvalidSettings, domain.KindSoilLayers)
	}
	return nil
}

// validateComposites checks that composite columns are well-formed: yearly
// kinds only, components drawn from the requested variables, names not
// shadowing a variable.
func validateComposites(spec domain.SourceSpec) error {
	if len(spec.Composites) == 0 {
		return nil
	}
	if spec.Kind != domain.KindAnnualSeries && spec.Kind != domain.KindCO2Archive {
		return fmt.Errorf("%w: composites only apply to yearly sources", domain.ErrInvalidSettings)
	}

	requested := make(map[string]bool, len(spec.Variables))
	for _, v := range spec.Variables {
		requested[v] = true
	}
	for name, components := range spec.Composites {
		if name == "" {
			return fmt.Errorf("%w: empty composite name", domain.ErrInvalidSettings)
		}
		if requested[name] {
			return fmt.Errorf("%w: composite %q shadows a requested variable", domain.ErrInvalidSettings, name)
		}
		if len(components) == 0 {
			return fmt.Errorf("%w: composite %q has no components", domain.ErrInvalidSettings, name)
		}
		for _, c := range components {
			if !requested[c] {
				return fmt.Errorf("%w: composite %q component %q is not a requested variable",
					domain.ErrInvalidSettings, name, c)
			}
		}
	}
	return nil
}

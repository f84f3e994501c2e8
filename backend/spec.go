package backend

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"
)

// ExportKind describes what a task writes to its destination.
type ExportKind string

const (
	// ExportImage writes a raster asset.
	ExportImage ExportKind = "image"

	// ExportTable writes a feature table asset.
	ExportTable ExportKind = "table"
)

// Computation references the remote computation a task executes. The core
// never interprets it; the backend resolves Ref and applies Params.
type Computation struct {
	Ref    string            `json:"ref"`
	Params map[string]string `json:"params,omitempty"`
}

// JobSpec bundles everything the backend needs to run one export task.
type JobSpec struct {
	// Human readable description used to correlate tasks in listings.
	Description string `json:"description"`

	// Kind of output written to Destination.
	Kind ExportKind `json:"kind"`

	// Asset path the task writes to.
	Destination string `json:"destination"`

	Computation Computation `json:"computation"`

	// Coordinate reference system of image exports, e.g. EPSG:5070.
	CRS string `json:"crs,omitempty"`

	// Affine transform snapping image exports to a known grid. Mutually
	// exclusive with Scale.
	Transform []float64 `json:"transform,omitempty"`

	// Pixel size in metres. Mutually exclusive with Transform.
	Scale float64 `json:"scale,omitempty"`

	// Per-band resampling policy used when building pyramid levels, keyed
	// by output band name.
	PyramidingPolicy map[string]string `json:"pyramiding_policy,omitempty"`

	// Opaque region of interest.
	Region string `json:"region,omitempty"`
}

var pyramidingPolicies = map[string]bool{
	"mean": true, "mode": true, "min": true, "max": true, "sample": true,
}

// Validate checks the spec for problems that would make the backend reject
// it. All problems are reported together and wrap ErrMalformedSpec.
func (s *JobSpec) Validate() error {
	if s == nil {
		return xerrors.Errorf("nil job spec: %w", ErrMalformedSpec)
	}

	var err error
	if strings.TrimSpace(s.Description) == "" {
		err = multierror.Append(err, xerrors.Errorf("description has not been provided"))
	}
	if strings.TrimSpace(s.Destination) == "" {
		err = multierror.Append(err, xerrors.Errorf("destination has not been provided"))
	}
	if s.Computation.Ref == "" {
		err = multierror.Append(err, xerrors.Errorf("computation reference has not been provided"))
	}

	switch s.Kind {
	case ExportImage:
		if s.CRS == "" {
			err = multierror.Append(err, xerrors.Errorf("image exports require a crs"))
		}
		if len(s.Transform) == 0 && s.Scale <= 0 {
			err = multierror.Append(err, xerrors.Errorf("image exports require either a transform or a scale"))
		} else if len(s.Transform) != 0 && s.Scale > 0 {
			err = multierror.Append(err, xerrors.Errorf("transform and scale are mutually exclusive"))
		} else if len(s.Transform) != 0 && len(s.Transform) != 6 {
			err = multierror.Append(err, xerrors.Errorf("transform must have 6 coefficients, got %d", len(s.Transform)))
		}
		for band, policy := range s.PyramidingPolicy {
			if !pyramidingPolicies[policy] {
				err = multierror.Append(err, xerrors.Errorf("unsupported pyramiding policy %q for band %q", policy, band))
			}
		}
	case ExportTable:
	default:
		err = multierror.Append(err, xerrors.Errorf("unsupported export kind %q", s.Kind))
	}

	if err != nil {
		merr := err.(*multierror.Error)
		merr.ErrorFormat = joinErrors
		return xerrors.Errorf("%v: %w", merr, ErrMalformedSpec)
	}
	return nil
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

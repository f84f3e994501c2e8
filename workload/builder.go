package workload

import (
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
)

// Computation parameters populated from the work item.
const (
	ParamIndex     = "index"
	ParamStartYear = "start_year"
	ParamEndYear   = "end_year"
	ParamYear      = "year"
)

// SpecBuilder translates work items into backend job specs using a
// stage's export settings.
type SpecBuilder struct {
	export     Export
	pyramiding map[string]string
}

// NewSpecBuilder returns a builder for the provided export settings.
func NewSpecBuilder(export Export) *SpecBuilder {
	return &SpecBuilder{
		export:     export,
		pyramiding: expandPyramiding(export.Pyramiding, export.VertexPyramiding, export.MaxSegments),
	}
}

// Description returns the export name used for item.
func (b *SpecBuilder) Description(item Item) string {
	return b.export.NamePrefix + "_" + item.Key()
}

// BuildSpec returns the job spec for item. Image exports carry the
// projection, grid and pyramiding settings; table exports only carry the
// computation and destination.
func (b *SpecBuilder) BuildSpec(item Item) (*backend.JobSpec, error) {
	desc := b.Description(item)
	spec := &backend.JobSpec{
		Description: desc,
		Kind:        b.export.Kind,
		Destination: b.export.Destination + "/" + desc,
		Computation: backend.Computation{
			Ref:    b.export.Computation,
			Params: b.params(item),
		},
		Region: b.export.Region,
	}

	if b.export.Kind == backend.ExportImage {
		spec.CRS = b.export.CRS
		spec.Scale = b.export.Scale
		if len(b.export.Transform) != 0 {
			spec.Transform = append([]float64(nil), b.export.Transform...)
		}
		if len(b.pyramiding) != 0 {
			spec.PyramidingPolicy = make(map[string]string, len(b.pyramiding))
			for band, policy := range b.pyramiding {
				spec.PyramidingPolicy[band] = policy
			}
		}
	}

	if err := spec.Validate(); err != nil {
		return nil, xerrors.Errorf("build spec for %s: %w", item.Key(), err)
	}
	return spec, nil
}

func (b *SpecBuilder) params(item Item) map[string]string {
	params := make(map[string]string, len(b.export.Params)+3)
	for k, v := range b.export.Params {
		params[k] = v
	}
	if item.Name == "" {
		params[ParamYear] = strconv.Itoa(item.StartYear)
		return params
	}
	params[ParamIndex] = item.Name
	params[ParamStartYear] = strconv.Itoa(item.StartYear)
	params[ParamEndYear] = strconv.Itoa(item.EndYear)
	return params
}

// expandPyramiding merges literal band policies with per-vertex prefixes
// expanded to <prefix>_1 ... <prefix>_<maxSegments+1>.
func expandPyramiding(literal, vertex map[string]string, maxSegments int) map[string]string {
	out := make(map[string]string, len(literal)+len(vertex)*(maxSegments+1))
	prefixes := make([]string, 0, len(vertex))
	for prefix := range vertex {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	for _, prefix := range prefixes {
		for n := 1; n <= maxSegments+1; n++ {
			out[fmt.Sprintf("%s_%d", prefix, n)] = vertex[prefix]
		}
	}
	for band, policy := range literal {
		out[band] = policy
	}
	return out
}

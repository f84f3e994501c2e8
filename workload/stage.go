package workload

import (
	"io/ioutil"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/provision"
)

// Stage describes one processing stage of the pipeline: what to submit,
// where the results go and how the work is spread across credentials.
type Stage struct {
	Name                   string      `yaml:"name"`
	UseMultipleCredentials bool        `yaml:"use_multiple_credentials"`
	Items                  WorkList    `yaml:"items"`
	Export                 Export      `yaml:"export"`
	Containers             []Container `yaml:"containers"`
}

// WorkList describes the items of a stage. Either Indices (with the year
// range) or Years must be provided.
type WorkList struct {
	Indices   []string   `yaml:"indices"`
	StartYear int        `yaml:"start_year"`
	EndYear   int        `yaml:"end_year"`
	Years     *YearRange `yaml:"years"`
}

// YearRange is an inclusive range of years.
type YearRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Export holds the export parameters shared by every job of a stage.
type Export struct {
	Kind          backend.ExportKind    `yaml:"kind"`
	Destination   string                `yaml:"destination"`
	ContainerKind backend.ContainerKind `yaml:"container_kind"`
	NamePrefix    string                `yaml:"name_prefix"`
	Computation   string                `yaml:"computation"`
	Params        map[string]string     `yaml:"params"`
	CRS           string                `yaml:"crs"`
	Transform     []float64             `yaml:"transform"`
	Scale         float64               `yaml:"scale"`
	Region        string                `yaml:"region"`

	// Literal band name to pyramiding policy mappings.
	Pyramiding map[string]string `yaml:"pyramiding"`

	// Band prefixes whose policy applies to every vertex band
	// (<prefix>_1 ... <prefix>_<max_segments+1>).
	VertexPyramiding map[string]string `yaml:"vertex_pyramiding"`
	MaxSegments      int               `yaml:"max_segments"`
}

// Container is an additional asset container that must exist before the
// first submission.
type Container struct {
	Path    string                `yaml:"path"`
	Kind    backend.ContainerKind `yaml:"kind"`
	Readers []string              `yaml:"readers"`
	Private bool                  `yaml:"private"`
}

// LoadStage reads and parses the stage definition at path.
func LoadStage(path string) (*Stage, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("load stage: %w", err)
	}
	st, err := ParseStage(data)
	if err != nil {
		return nil, xerrors.Errorf("load stage %s: %w", path, err)
	}
	return st, nil
}

// ParseStage decodes a YAML stage definition, applies defaults and
// validates it.
func ParseStage(data []byte) (*Stage, error) {
	var st Stage
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, xerrors.Errorf("parse stage: %w", err)
	}
	if err := st.validate(); err != nil {
		return nil, xerrors.Errorf("stage validation failed: %w", err)
	}
	return &st, nil
}

func (st *Stage) validate() error {
	var err error
	if st.Name == "" {
		err = multierror.Append(err, xerrors.Errorf("stage name has not been provided"))
	}

	wl := st.Items
	switch {
	case len(wl.Indices) != 0 && wl.Years != nil:
		err = multierror.Append(err, xerrors.Errorf("items must specify either indices or years, not both"))
	case len(wl.Indices) != 0:
		if wl.StartYear == 0 || wl.EndYear < wl.StartYear {
			err = multierror.Append(err, xerrors.Errorf("invalid index year range %d-%d", wl.StartYear, wl.EndYear))
		}
	case wl.Years != nil:
		if wl.Years.Start == 0 || wl.Years.End < wl.Years.Start {
			err = multierror.Append(err, xerrors.Errorf("invalid year range %d-%d", wl.Years.Start, wl.Years.End))
		}
	default:
		err = multierror.Append(err, xerrors.Errorf("items must specify either indices or years"))
	}

	ex := &st.Export
	ex.Destination = strings.TrimSuffix(strings.TrimSpace(ex.Destination), "/")
	if ex.Destination == "" {
		err = multierror.Append(err, xerrors.Errorf("export destination has not been provided"))
	}
	if ex.NamePrefix == "" {
		err = multierror.Append(err, xerrors.Errorf("export name prefix has not been provided"))
	}
	if ex.Computation == "" {
		err = multierror.Append(err, xerrors.Errorf("export computation has not been provided"))
	}
	switch ex.Kind {
	case backend.ExportImage:
		if ex.ContainerKind == "" {
			ex.ContainerKind = backend.ContainerImageCollection
		}
		if ex.MaxSegments < 0 {
			err = multierror.Append(err, xerrors.Errorf("max segments must be non-negative"))
		}
		if ex.MaxSegments > 0 && ex.VertexPyramiding == nil {
			ex.VertexPyramiding = map[string]string{"yrs_vert": "mode", "fit_vert": "mean"}
		}
	case backend.ExportTable:
		if ex.ContainerKind == "" {
			ex.ContainerKind = backend.ContainerFolder
		}
	default:
		err = multierror.Append(err, xerrors.Errorf("unsupported export kind %q", ex.Kind))
	}
	if !ex.ContainerKind.Valid() {
		err = multierror.Append(err, xerrors.Errorf("unsupported container kind %q", ex.ContainerKind))
	}

	for i, cont := range st.Containers {
		if strings.TrimSpace(cont.Path) == "" {
			err = multierror.Append(err, xerrors.Errorf("container %d: path has not been provided", i))
		}
		if !cont.Kind.Valid() {
			err = multierror.Append(err, xerrors.Errorf("container %d: unsupported kind %q", i, cont.Kind))
		}
	}
	return err
}

// WorkItems expands the work list in deterministic order.
func (st *Stage) WorkItems() []Item {
	if st.Items.Years != nil {
		return YearItems(st.Items.Years.Start, st.Items.Years.End)
	}
	return IndexItems(st.Items.Indices, st.Items.StartYear, st.Items.EndYear)
}

// ProvisionList returns the containers that must exist before submission:
// the explicitly listed ones followed by the export destination.
func (st *Stage) ProvisionList() []provision.Container {
	list := make([]provision.Container, 0, len(st.Containers)+1)
	seen := make(map[string]bool)
	add := func(c provision.Container) {
		if seen[c.Path] {
			return
		}
		seen[c.Path] = true
		list = append(list, c)
	}

	for _, cont := range st.Containers {
		pc := provision.Container{Path: strings.TrimSuffix(strings.TrimSpace(cont.Path), "/"), Kind: cont.Kind}
		if cont.Private {
			pc.Policy = &backend.AccessPolicy{Readers: cont.Readers}
		}
		add(pc)
	}
	add(provision.Container{Path: st.Export.Destination, Kind: st.Export.ContainerKind})
	return list
}

// Builder returns the spec builder for the stage's export settings.
func (st *Stage) Builder() *SpecBuilder {
	return NewSpecBuilder(st.Export)
}

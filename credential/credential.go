package credential

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"
)

var (
	// ErrCredentialLoad is returned when a credential file is missing or
	// malformed.
	ErrCredentialLoad = xerrors.New("unable to load credential")

	// ErrNoCredentials is returned when a selector matches no credential.
	ErrNoCredentials = xerrors.New("no credentials selected")
)

// Credential is an identity used to authenticate against the remote
// backend. Each credential carries its own usage quota.
type Credential struct {
	// The file name the credential was loaded from; used as its identity.
	Name string

	// Absolute path of the backing file.
	Path string

	// The long-lived token used to mint access tokens.
	RefreshToken string

	// Optional OAuth client overrides.
	ClientID     string
	ClientSecret string
	Scopes       []string

	// Optional cloud project to bill requests to.
	Project string
}

// String returns the credential name; secrets are never printed.
func (c *Credential) String() string { return c.Name }

// Ref points to a credential file that has not been read yet.
type Ref struct {
	Name string
	Path string
}

// fileFormat is the on-disk layout of a credential file.
type fileFormat struct {
	RefreshToken string   `json:"refresh_token"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Project      string   `json:"project"`
}

// Selector picks which credential files to use.
type Selector struct {
	all   bool
	names []string
}

// All selects every file present in the credential directory.
func All() Selector { return Selector{all: true} }

// Names selects the named files, in the given order.
func Names(names ...string) Selector {
	return Selector{names: append([]string(nil), names...)}
}

// ParseSelector parses "all" or a comma separated list of names.
func ParseSelector(expr string) (Selector, error) {
	expr = strings.TrimSpace(expr)
	if strings.EqualFold(expr, "all") {
		return All(), nil
	}

	var names []string
	for _, name := range strings.Split(expr, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return Selector{}, xerrors.Errorf("parse selector %q: %w", expr, ErrNoCredentials)
	}
	return Names(names...), nil
}

// String implements fmt.Stringer.
func (s Selector) String() string {
	if s.all {
		return "all"
	}
	return strings.Join(s.names, ",")
}

// Store loads credential files from a local directory.
type Store struct {
	dir string
}

// NewStore returns a store reading credentials from dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir returns $SAGE_CREDENTIALS_DIR when set and the earthengine
// configuration directory under the user's home otherwise.
func DefaultDir() string {
	if dir := os.Getenv("SAGE_CREDENTIALS_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "earthengine")
	}
	return filepath.Join(home, ".config", "earthengine")
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string { return s.dir }

// Resolve returns references to the selected credential files without
// reading them. Explicit names keep their order; All lists regular,
// non-hidden files sorted by name.
func (s *Store) Resolve(sel Selector) ([]Ref, error) {
	if !sel.all {
		if len(sel.names) == 0 {
			return nil, ErrNoCredentials
		}
		refs := make([]Ref, len(sel.names))
		for i, name := range sel.names {
			refs[i] = Ref{Name: name, Path: filepath.Join(s.dir, name)}
		}
		return refs, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, xerrors.Errorf("list credential dir %s: %w", s.dir, err)
	}

	var refs []Ref
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		refs = append(refs, Ref{Name: entry.Name(), Path: filepath.Join(s.dir, entry.Name())})
	}
	if len(refs) == 0 {
		return nil, xerrors.Errorf("list credential dir %s: %w", s.dir, ErrNoCredentials)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Load reads every selected credential, in selector order. It fails on
// the first credential that cannot be loaded.
func (s *Store) Load(sel Selector) ([]*Credential, error) {
	refs, err := s.Resolve(sel)
	if err != nil {
		return nil, err
	}

	creds := make([]*Credential, len(refs))
	for i, ref := range refs {
		if creds[i], err = LoadRef(ref); err != nil {
			return nil, err
		}
	}
	return creds, nil
}

// LoadRef reads and validates a single credential file.
func LoadRef(ref Ref) (*Credential, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, xerrors.Errorf("%s: %v: %w", ref.Path, err, ErrCredentialLoad)
	}

	var f fileFormat
	if err = json.Unmarshal(data, &f); err != nil {
		return nil, xerrors.Errorf("%s: %v: %w", ref.Path, err, ErrCredentialLoad)
	} else if strings.TrimSpace(f.RefreshToken) == "" {
		return nil, xerrors.Errorf("%s: missing refresh_token: %w", ref.Path, ErrCredentialLoad)
	}

	return &Credential{
		Name:         ref.Name,
		Path:         ref.Path,
		RefreshToken: f.RefreshToken,
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
		Scopes:       f.Scopes,
		Project:      f.Project,
	}, nil
}

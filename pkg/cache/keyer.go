package cache

// Keyer derives cache keys.
type Keyer interface {
	LayoutKey(opts LayoutKeyOpts) string
	ArtifactKey(bookHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds every input that determines a generated book.
type LayoutKeyOpts struct {
	Genotypes        []string `json:"genotypes"`
	Blocks           int      `json:"blocks"`
	Columns          int      `json:"columns"`
	VariableCapacity bool     `json:"variable_capacity"`
	Capacities       []int    `json:"capacities"`
	Serpentine       bool     `json:"serpentine"`
	Alongside        string   `json:"alongside"`
	Seed             uint64   `json:"seed"`
}

// ArtifactKeyOpts holds the render options that affect an artifact.
type ArtifactKeyOpts struct {
	Format      string  `json:"format"`
	Viz         string  `json:"viz"`
	ShowNumbers bool    `json:"show_numbers"`
	Scale       float64 `json:"scale,omitempty"`
	Title       string  `json:"title,omitempty"`
}

// DefaultKeyer hashes options into "layout:" and "artifact:" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey returns the key of a generated field book.
func (DefaultKeyer) LayoutKey(opts LayoutKeyOpts) string {
	return hashKey("layout", opts)
}

// ArtifactKey returns the key of one rendered artifact of a book.
func (DefaultKeyer) ArtifactKey(bookHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", bookHash, opts)
}

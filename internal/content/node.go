package content

import "encoding/json"

// Frontmatter is the metadata block of an authored file.
type Frontmatter struct {
	Title        string   `yaml:"title"`
	Date         string   `yaml:"date"`
	Slug         string   `yaml:"slug"`
	Published    *bool    `yaml:"published"`
	Redirects    []string `yaml:"redirects"`
	Author       string   `yaml:"author"`
	Description  string   `yaml:"description"`
	Keywords     []string `yaml:"keywords"`
	Banner       string   `yaml:"banner"`
	BannerCredit string   `yaml:"bannerCredit"`
	Categories   []string `yaml:"categories"`
	NoFooter     *bool    `yaml:"noFooter"`
}

// IsPublished reports whether the node should be built; absent means published.
func (f Frontmatter) IsPublished() bool {
	return f.Published == nil || *f.Published
}

// Node is one authored unit of content.
type Node struct {
	ID           string
	SourceName   string
	SourcePath   string // absolute path, diagnostics only
	RelativePath string // slash-separated, relative to the source root
	Name         string // file name without extension; index files use their directory name
	Category     Category
	Frontmatter  Frontmatter
	Body         []byte
	Fingerprint  string

	// Fields is attached once by the build after derivation.
	Fields Fields
}

// Fields is the flattened, defaulted projection of a node used in page context.
type Fields struct {
	ID                   string   `json:"id"`
	Slug                 string   `json:"slug"`
	Published            *bool    `json:"published"`
	Title                string   `json:"title"`
	Author               string   `json:"author"`
	Description          string   `json:"description"`
	PlainTextDescription string   `json:"plainTextDescription"`
	Date                 string   `json:"date"`
	Banner               string   `json:"banner"`
	BannerCredit         string   `json:"bannerCredit"`
	Categories           []string `json:"categories"`
	Keywords             []string `json:"keywords"`
	Redirects            []string `json:"redirects"`
	NoFooter             bool     `json:"noFooter"`
	IsWorkshop           bool     `json:"isWorkshop"`
	IsScheduled          bool     `json:"isScheduled"`
}

type nodeParent struct {
	Name               string `json:"name"`
	SourceInstanceName string `json:"sourceInstanceName"`
}

type nodeJSON struct {
	ID     string     `json:"id"`
	Fields Fields     `json:"fields"`
	Parent nodeParent `json:"parent"`
}

// MarshalJSON renders the node in the shape page templates query:
// id, fields and parent file information. The body is never serialized.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		ID:     n.ID,
		Fields: n.Fields,
		Parent: nodeParent{Name: n.Name, SourceInstanceName: n.SourceName},
	})
}

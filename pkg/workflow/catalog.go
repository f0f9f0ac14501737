package workflow

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

//go:embed catalog.schema.json
var catalogSchema string

var (
	// ErrInvalidCatalog indicates the phase catalog failed validation.
	ErrInvalidCatalog = errors.New("invalid phase catalog")

	// ErrUnknownProductLine indicates a product line is not declared in the catalog.
	ErrUnknownProductLine = errors.New("unknown product line")
)

// Catalog is the immutable set of product lines and their phase templates.
type Catalog struct {
	DefaultProductLine string               `json:"default_product_line" yaml:"default_product_line"`
	ProductLines       []models.ProductLine `json:"product_lines"        yaml:"product_lines"`

	ordered map[string][]models.PhaseTemplate
}

// DefaultCatalog returns the catalog shipped with the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a YAML catalog from path. An empty path loads the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	return ParseCatalog(data)
}

// ParseCatalog validates raw YAML against the catalog schema and decodes it.
func ParseCatalog(data []byte) (*Catalog, error) {
	var document map[string]any

	err := yaml.Unmarshal(data, &document)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	err = validateSchema(document)
	if err != nil {
		return nil, err
	}

	var catalog Catalog

	err = yaml.Unmarshal(data, &catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	err = catalog.index()
	if err != nil {
		return nil, err
	}

	return &catalog, nil
}

func validateSchema(document map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(catalogSchema)
	dataLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}

	return nil
}

func (c *Catalog) index() error {
	c.ordered = make(map[string][]models.PhaseTemplate, len(c.ProductLines))

	for _, line := range c.ProductLines {
		if _, exists := c.ordered[line.Slug]; exists {
			return fmt.Errorf("%w: duplicate product line %q", ErrInvalidCatalog, line.Slug)
		}

		seen := make(map[string]bool)
		for _, phase := range line.OrderedPhases() {
			if seen[phase.Slug] {
				return fmt.Errorf("%w: duplicate phase %q in product line %q", ErrInvalidCatalog, phase.Slug, line.Slug)
			}

			seen[phase.Slug] = true
		}

		c.ordered[line.Slug] = line.OrderedPhases()
	}

	if c.DefaultProductLine == "" && len(c.ProductLines) > 0 {
		c.DefaultProductLine = c.ProductLines[0].Slug
	}

	if _, ok := c.ordered[c.DefaultProductLine]; !ok {
		return fmt.Errorf("%w: default product line %q is not declared", ErrInvalidCatalog, c.DefaultProductLine)
	}

	return nil
}

// Line returns a product line by slug; an empty slug selects the default line.
func (c *Catalog) Line(slug string) (models.ProductLine, error) {
	if slug == "" {
		slug = c.DefaultProductLine
	}

	for _, line := range c.ProductLines {
		if line.Slug == slug {
			return line, nil
		}
	}

	return models.ProductLine{}, fmt.Errorf("%w: %s", ErrUnknownProductLine, slug)
}

// OrderedPhases returns the flat phase sequence of a product line.
func (c *Catalog) OrderedPhases(slug string) ([]models.PhaseTemplate, error) {
	line, err := c.Line(slug)
	if err != nil {
		return nil, err
	}

	return c.ordered[line.Slug], nil
}

// NewCatalog builds a catalog from in-memory product lines.
func NewCatalog(lines ...models.ProductLine) (*Catalog, error) {
	catalog := &Catalog{ProductLines: lines}

	err := catalog.index()
	if err != nil {
		return nil, err
	}

	return catalog, nil
}

package archive

// Result is a single search hit. Values are produced once per query and never
// mutated afterwards.
type Result struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Meta        string   `json:"meta,omitempty" yaml:"meta,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Href        string   `json:"href" yaml:"href"`
	Category    Category `json:"category" yaml:"category"`
}

// Group is the rendered bucket of results for one category. A group always
// holds between 1 and MaxGroupItems items.
type Group struct {
	Category Category `json:"category" yaml:"category"`
	Label    string   `json:"label" yaml:"label"`
	Icon     string   `json:"icon" yaml:"icon"`
	ListHref string   `json:"listHref,omitempty" yaml:"listHref,omitempty"`
	Items    []Result `json:"items" yaml:"items"`
}

// Descriptor carries the presentation details of a category.
type Descriptor struct {
	Label    string
	Icon     string
	ListHref string
}

// Descriptors maps each category to its presentation details.
type Descriptors map[Category]Descriptor

// DefaultDescriptors returns the built-in labels, icons and list routes.
func DefaultDescriptors() Descriptors {
	return Descriptors{
		Documents:        {Label: "Documents", Icon: "▤", ListHref: "/documents"},
		Photos:           {Label: "Photo archives", Icon: "◫", ListHref: "/photos"},
		Periodicals:      {Label: "Periodicals", Icon: "▥", ListHref: "/periodicals"},
		Testimonials:     {Label: "Testimonials", Icon: "❝", ListHref: "/testimonials"},
		References:       {Label: "References", Icon: "§", ListHref: "/references"},
		PersonalArchives: {Label: "Personal archives", Icon: "◈", ListHref: "/personal-archives"},
	}
}

// Lookup returns the descriptor for c, falling back to the defaults and then
// to the bare slug.
func (d Descriptors) Lookup(c Category) Descriptor {
	if desc, ok := d[c]; ok {
		return desc
	}
	if desc, ok := DefaultDescriptors()[c]; ok {
		return desc
	}
	return Descriptor{Label: c.String()}
}

// MarshalText encodes the category as its slug.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category slug.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

package extract

import (
	"fmt"
	"strings"
)

// Source identifies which stage of the pipeline produced an item.
type Source string

const (
	SourceRegex     Source = "regex"
	SourceWhitelist Source = "whitelist"
	SourceCatalog   Source = "catalog"
	SourceAI        Source = "ai"
	SourceHybrid    Source = "hybrid" // merged from more than one source
)

// Category is the garment category of an extracted item.
type Category string

const (
	CategoryTops        Category = "tops"
	CategoryBottoms     Category = "bottoms"
	CategoryOuterwear   Category = "outerwear"
	CategoryDresses     Category = "dresses"
	CategoryFootwear    Category = "footwear"
	CategoryAccessories Category = "accessories"
	CategoryOther       Category = "other"
)

// Categories lists the fixed category set in display order.
var Categories = []Category{
	CategoryTops, CategoryBottoms, CategoryOuterwear, CategoryDresses,
	CategoryFootwear, CategoryAccessories, CategoryOther,
}

// ParseCategory maps a free-form category label onto the fixed set.
// Unknown labels return CategoryOther and false.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	// Common singular/alias spellings seen in taxonomy imports and model output.
	switch s {
	case "top", "shirts", "shirt":
		return CategoryTops, true
	case "bottom", "pants", "trousers":
		return CategoryBottoms, true
	case "outer", "jackets", "coats", "layers":
		return CategoryOuterwear, true
	case "dress", "one-piece", "onepiece":
		return CategoryDresses, true
	case "shoes", "footwear_items", "shoe":
		return CategoryFootwear, true
	case "accessory", "jewelry", "jewellery", "bags":
		return CategoryAccessories, true
	}
	return CategoryOther, false
}

// ExtractedItem is a single clothing item detected in feedback text.
// It is stored as an element of a wardrobe entry's extracted_clothing_items array.
type ExtractedItem struct {
	Name        string   `json:"name"`
	Descriptors []string `json:"descriptors"`
	Category    Category `json:"category"`
	Confidence  float64  `json:"confidence"`
	Source      Source   `json:"source"`
}

func (i ExtractedItem) String() string {
	return fmt.Sprintf("%s [%s %.2f %s]", i.Name, i.Category, i.Confidence, i.Source)
}

// Match is the sealed sum type of per-source extraction results. Each source
// keeps its own fields; the shared subset is produced by Item.
type Match interface {
	Item() ExtractedItem
	match()
}

// RegexMatch is a raw candidate produced by the lexical matcher.
type RegexMatch struct {
	Phrase  string
	Pattern string
}

// WhitelistMatch is a candidate checked against the whitelist.
type WhitelistMatch struct {
	Phrase      string
	Entry       string // matched whitelist item_name, empty when unmatched
	Descriptors []string
	Category    Category
	Confidence  float64
}

// CatalogMatch is a candidate confirmed by a catalog product.
type CatalogMatch struct {
	Name        string
	Product     CatalogItem
	Descriptors []string
	Category    Category
	Confidence  float64
}

// AIMatch is an item returned by the AI extraction adapter after validation.
type AIMatch struct {
	Name        string
	Descriptors []string
	Category    Category
	Confidence  float64
	Model       string
}

func (RegexMatch) match()     {}
func (WhitelistMatch) match() {}
func (CatalogMatch) match()   {}
func (AIMatch) match()        {}

// Item converts a raw lexical candidate. Regex-only items carry the
// unrecognized confidence; they are normally superseded by the whitelist stage.
func (m RegexMatch) Item() ExtractedItem {
	return ExtractedItem{
		Name:        m.Phrase,
		Descriptors: []string{},
		Category:    CategoryOther,
		Confidence:  ConfidenceUnrecognized,
		Source:      SourceRegex,
	}
}

func (m WhitelistMatch) Item() ExtractedItem {
	src := SourceWhitelist
	if m.Entry == "" {
		src = SourceRegex
	}
	return ExtractedItem{
		Name:        m.Phrase,
		Descriptors: nonNil(m.Descriptors),
		Category:    m.Category,
		Confidence:  m.Confidence,
		Source:      src,
	}
}

func (m CatalogMatch) Item() ExtractedItem {
	return ExtractedItem{
		Name:        m.Name,
		Descriptors: nonNil(m.Descriptors),
		Category:    m.Category,
		Confidence:  m.Confidence,
		Source:      SourceCatalog,
	}
}

func (m AIMatch) Item() ExtractedItem {
	return ExtractedItem{
		Name:        m.Name,
		Descriptors: nonNil(m.Descriptors),
		Category:    m.Category,
		Confidence:  m.Confidence,
		Source:      SourceAI,
	}
}

// Items converts a slice of matches of one concrete type.
func Items[M Match](matches []M) []ExtractedItem {
	out := make([]ExtractedItem, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Item())
	}
	return out
}

// WhitelistEntry is a curated garment name used to validate candidates.
type WhitelistEntry struct {
	ItemName         string   `json:"item_name" yaml:"item_name"`
	Category         Category `json:"category" yaml:"category"`
	StyleDescriptors []string `json:"style_descriptors" yaml:"style_descriptors"`
	CommonMaterials  []string `json:"common_materials" yaml:"common_materials"`
}

// CatalogItem is an external product record used as high-confidence reference data.
type CatalogItem struct {
	ProductName string   `json:"product_name" yaml:"product_name"`
	Category    Category `json:"category" yaml:"category"`
	Color       string   `json:"color" yaml:"color"`
	Material    string   `json:"material" yaml:"material"`
	Brand       string   `json:"brand" yaml:"brand"`
	Rating      float64  `json:"rating" yaml:"rating"`
	Tags        []string `json:"tags" yaml:"tags"`
	Gender      string   `json:"gender" yaml:"gender"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

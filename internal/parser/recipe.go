package parser

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/recipebox/internal/models"
)

// Section headings used in exported recipe files.
const (
	IngredientsHeading = "Ingredients"
	StepsHeading       = "Steps"
)

// Frontmatter is the YAML header of an exported recipe file.
type Frontmatter struct {
	Title         string   `yaml:"title"`
	Rating        float64  `yaml:"rating,omitempty"`
	Tags          []string `yaml:"tags,flow"`
	Created       int64    `yaml:"created,omitempty"`
	FormattedDate string   `yaml:"formattedDate,omitempty"`
	CookedCount   int      `yaml:"cookedCount,omitempty"`
	Images        int      `yaml:"images,omitempty"`
}

// RenderRecipe renders r as Markdown. Images are not embedded; Frontmatter
// only records how many there are.
func RenderRecipe(r models.Recipe) (string, error) {
	fm := Frontmatter{
		Title:         r.Title,
		Rating:        r.Rating,
		Tags:          r.Tags,
		Created:       r.Created,
		FormattedDate: r.FormattedDate,
		CookedCount:   r.CookedCount,
		Images:        len(r.Images),
	}
	if fm.Tags == nil {
		fm.Tags = []string{}
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", r.Title)

	fmt.Fprintf(&b, "## %s\n\n", IngredientsHeading)
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&b, "- %s\n", ing)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", StepsHeading)
	if steps := strings.TrimSpace(r.Steps); steps != "" {
		b.WriteString(steps)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// ParseRecipe reads a file produced by RenderRecipe, or a hand-written file
// in the same shape. Images are left empty; the caller attaches them.
func ParseRecipe(content string) (models.Recipe, error) {
	doc, err := ParseMarkdown(content)
	if err != nil {
		return models.Recipe{}, err
	}

	var fm Frontmatter
	if doc.FrontmatterYAML != "" {
		if err := yaml.Unmarshal([]byte(doc.FrontmatterYAML), &fm); err != nil {
			return models.Recipe{}, fmt.Errorf("decode frontmatter: %w", err)
		}
	}

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		return models.Recipe{}, fmt.Errorf("recipe has no title")
	}

	r := models.Recipe{
		Title:         title,
		Ingredients:   []string{},
		Tags:          nonEmpty(fm.Tags),
		Rating:        models.ClampRating(fm.Rating),
		Images:        []string{},
		Created:       fm.Created,
		FormattedDate: fm.FormattedDate,
		CookedCount:   max(fm.CookedCount, 0),
	}
	if s, ok := doc.Section(IngredientsHeading); ok {
		r.Ingredients = listItems(s.Content)
	}
	if s, ok := doc.Section(StepsHeading); ok {
		r.Steps = s.Content
	}
	return r, nil
}

// listItems returns the text of Markdown bullet items. Lines that are not
// bullets are kept as-is so plain line-per-ingredient lists also work.
func listItems(content string) []string {
	items := []string{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		for _, prefix := range []string{"- ", "* ", "+ "} {
			if strings.HasPrefix(line, prefix) {
				line = strings.TrimSpace(line[len(prefix):])
				break
			}
		}
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func nonEmpty(tags []string) []string {
	out := []string{}
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// FileName returns the export file name for r: its identity followed by a
// slug of the title.
func FileName(r models.Recipe) string {
	return strconv.FormatInt(r.Created, 10) + "-" + Slugify(r.Title) + ".md"
}

// Slugify lowercases s and replaces every run of characters that are not
// letters or digits with a single hyphen. Non-Latin letters are kept.
func Slugify(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "recipe"
	}
	return slug
}

// ImagesFileName returns the sidecar file name holding the images of the
// recipe exported as mdName.
func ImagesFileName(mdName string) string {
	return strings.TrimSuffix(mdName, ".md") + ".images.json"
}

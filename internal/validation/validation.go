package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperengineering/fableforge/internal/types"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{Field: field, Message: "must be valid UTF-8"}
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateULID returns an error if the value is not a valid ULID format.
// ULIDs are 26 characters using Crockford Base32 (excludes I, L, O, U).
func ValidateULID(field, value string) *ValidationError {
	if len(value) != 26 {
		return &ValidationError{
			Field:   field,
			Message: "must be a valid ULID (26 characters)",
		}
	}

	const crockfordBase32 = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	for _, r := range value {
		upper := strings.ToUpper(string(r))
		if !strings.Contains(crockfordBase32, upper) {
			return &ValidationError{
				Field:   field,
				Message: "must be a valid ULID (invalid character)",
			}
		}
	}
	return nil
}

// slugPattern matches lowercase alphanumerics separated by single hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateSlug returns an error if the value is not a URL-safe slug.
func ValidateSlug(field, value string) *ValidationError {
	if !slugPattern.MatchString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be a lowercase slug (letters, digits, hyphens)",
		}
	}
	return nil
}

const (
	maxNameLength    = 200
	maxContentLength = 50000
)

// ValidateNewProject validates a project creation request.
func ValidateNewProject(p types.NewProject) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("name", p.Name))
	c.Add(ValidateMaxLength("name", p.Name, maxNameLength))
	c.Add(ValidateRequired("slug", p.Slug))
	if p.Slug != "" {
		c.Add(ValidateSlug("slug", p.Slug))
	}
	c.Add(ValidateUTF8("description", p.Description))
	return c.Errors()
}

// ValidateNewQuest validates a quest creation request.
func ValidateNewQuest(q types.NewQuest) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("project_id", q.ProjectID))
	if q.ProjectID != "" {
		c.Add(ValidateULID("project_id", q.ProjectID))
	}
	c.Add(ValidateRequired("title", q.Title))
	c.Add(ValidateMaxLength("title", q.Title, maxNameLength))
	if q.Status != "" {
		c.Add(ValidateEnum("status", string(q.Status), []string{
			string(types.QuestDraft), string(types.QuestActive), string(types.QuestArchived),
		}))
	}
	for i, id := range q.PrerequisiteIDs {
		c.Add(ValidateULID(fmt.Sprintf("prerequisite_ids[%d]", i), id))
	}
	return c.Errors()
}

// ValidateNewLoreEntry validates a single lore entry.
// The index is used to build field paths for bulk ingest errors.
func ValidateNewLoreEntry(index int, l types.NewLoreEntry) []ValidationError {
	prefix := fmt.Sprintf("lore[%d]", index)
	var c Collector
	c.Add(ValidateRequired(prefix+".project_id", l.ProjectID))
	if l.ProjectID != "" {
		c.Add(ValidateULID(prefix+".project_id", l.ProjectID))
	}
	c.Add(ValidateRequired(prefix+".title", l.Title))
	c.Add(ValidateRequired(prefix+".content", l.Content))
	c.Add(ValidateMaxLength(prefix+".content", l.Content, maxContentLength))
	c.Add(ValidateUTF8(prefix+".content", l.Content))
	c.Add(ValidateEnum(prefix+".category", string(l.Category), []string{
		string(types.CategoryWorldHistory), string(types.CategoryFaction),
		string(types.CategoryLocation), string(types.CategoryCharacter),
		string(types.CategoryItem), string(types.CategoryEvent),
		string(types.CategoryCustom),
	}))
	return c.Errors()
}

// ValidateNewNPC validates an NPC creation request.
func ValidateNewNPC(n types.NewNPC) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("project_id", n.ProjectID))
	if n.ProjectID != "" {
		c.Add(ValidateULID("project_id", n.ProjectID))
	}
	c.Add(ValidateRequired("name", n.Name))
	c.Add(ValidateMaxLength("name", n.Name, maxNameLength))
	c.Add(ValidateUTF8("persona", n.Persona))
	return c.Errors()
}

// ValidateNewManifest validates a manifest publication request.
func ValidateNewManifest(m types.NewManifest) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("project_id", m.ProjectID))
	if m.ProjectID != "" {
		c.Add(ValidateULID("project_id", m.ProjectID))
	}
	if len(m.Entries) == 0 {
		c.Add(&ValidationError{Field: "entries", Message: "must contain at least one entry"})
	}
	for path, e := range m.Entries {
		if strings.TrimSpace(path) == "" {
			c.Add(&ValidationError{Field: "entries", Message: "asset paths must not be empty"})
			continue
		}
		if e.Hash == "" {
			c.Add(&ValidationError{
				Field:   fmt.Sprintf("entries[%s].hash", path),
				Message: "is required",
			})
		}
		if e.Size < 0 {
			c.Add(&ValidationError{
				Field:   fmt.Sprintf("entries[%s].size", path),
				Message: "must not be negative",
			})
		}
	}
	return c.Errors()
}

package notion

import (
	"time"
)

// dateLayouts are tried in order when parsing a date property start.
var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// Property returns the named property of a page, or nil when absent.
func Property(page *Page, name string) *PropertyValue {
	if page == nil || page.Properties == nil {
		return nil
	}
	p, ok := page.Properties[name]
	if !ok {
		return nil
	}
	return &p
}

// ExtractText returns the plain text of the first title or rich_text fragment.
func ExtractText(p *PropertyValue) string {
	if p == nil {
		return ""
	}
	var fragments []RichText
	switch p.Type {
	case TypeTitle:
		fragments = p.Title
	case TypeRichText:
		fragments = p.RichText
	default:
		return ""
	}
	if len(fragments) == 0 {
		return ""
	}
	if fragments[0].PlainText != "" {
		return fragments[0].PlainText
	}
	if fragments[0].Text != nil {
		return fragments[0].Text.Content
	}
	return ""
}

// ExtractEmail returns the value of an email property.
func ExtractEmail(p *PropertyValue) string {
	if p == nil || p.Type != TypeEmail || p.Email == nil {
		return ""
	}
	return *p.Email
}

// ExtractNumber returns the value of a number property.
func ExtractNumber(p *PropertyValue) float64 {
	if p == nil || p.Type != TypeNumber || p.Number == nil {
		return 0
	}
	return *p.Number
}

// ExtractSelect returns the option name of a select property, or nil.
func ExtractSelect(p *PropertyValue) *string {
	if p == nil || p.Type != TypeSelect || p.Select == nil {
		return nil
	}
	name := p.Select.Name
	return &name
}

// ExtractDate returns the start of a date property, or nil when absent or
// unparseable.
func ExtractDate(p *PropertyValue) *time.Time {
	if p == nil || p.Type != TypeDate || p.Date == nil || p.Date.Start == "" {
		return nil
	}
	return parseTime(p.Date.Start)
}

// ExtractRelation returns the referenced page ids, skipping empty references.
func ExtractRelation(p *PropertyValue) []string {
	ids := []string{}
	if p == nil || p.Type != TypeRelation {
		return ids
	}
	for _, ref := range p.Relation {
		if ref.ID != "" {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}

// ExtractTextOrSelect reads a property that may be stored either as text or
// as a select option.
func ExtractTextOrSelect(p *PropertyValue) string {
	if s := ExtractSelect(p); s != nil {
		return *s
	}
	return ExtractText(p)
}

func parseTime(s string) *time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func textFragments(s string) []map[string]any {
	if s == "" {
		return []map[string]any{}
	}
	return []map[string]any{{"text": map[string]any{"content": s}}}
}

// TitleProp builds a title property value.
func TitleProp(s string) map[string]any {
	return map[string]any{"title": textFragments(s)}
}

// RichTextProp builds a rich_text property value. An empty string clears it.
func RichTextProp(s string) map[string]any {
	return map[string]any{"rich_text": textFragments(s)}
}

// EmailProp builds an email property value. An empty string clears it.
func EmailProp(s string) map[string]any {
	if s == "" {
		return map[string]any{"email": nil}
	}
	return map[string]any{"email": s}
}

// NumberProp builds a number property value.
func NumberProp(f float64) map[string]any {
	return map[string]any{"number": f}
}

// SelectProp builds a select property value.
func SelectProp(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

// DateProp builds a date property value.
func DateProp(t time.Time) map[string]any {
	return map[string]any{"date": map[string]any{"start": t.Format(time.RFC3339)}}
}

// DayProp builds a date property value holding only the calendar day of t
// in UTC.
func DayProp(t time.Time) map[string]any {
	return map[string]any{"date": map[string]any{"start": t.UTC().Format("2006-01-02")}}
}

// RelationProp builds a relation property value.
func RelationProp(ids ...string) map[string]any {
	refs := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, map[string]any{"id": id})
	}
	return map[string]any{"relation": refs}
}

package notion

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Page is a Notion page as returned by the REST API.
type Page struct {
	Object         string                   `json:"object"`
	ID             string                   `json:"id"`
	CreatedTime    string                   `json:"created_time,omitempty"`
	LastEditedTime string                   `json:"last_edited_time,omitempty"`
	Archived       bool                     `json:"archived,omitempty"`
	Properties     map[string]PropertyValue `json:"properties"`
}

// PropertyValue is the tagged union of page property shapes. Only the member
// named by Type is meaningful.
type PropertyValue struct {
	ID       string        `json:"id,omitempty"`
	Type     string        `json:"type"`
	Title    []RichText    `json:"title,omitempty"`
	RichText []RichText    `json:"rich_text,omitempty"`
	Email    *string       `json:"email,omitempty"`
	Number   *float64      `json:"number,omitempty"`
	Select   *SelectOption `json:"select,omitempty"`
	Date     *DateValue    `json:"date,omitempty"`
	Relation []Reference   `json:"relation,omitempty"`
}

// UnmarshalJSON decodes each member on its own. A member with an unexpected
// shape is left empty instead of failing the enclosing page or query result,
// so the extractors fall back to their defaults for it.
func (p *PropertyValue) UnmarshalJSON(data []byte) error {
	*p = PropertyValue{}

	v := gjson.ParseBytes(data)
	if !v.IsObject() {
		return nil
	}

	if id := v.Get("id"); id.Type == gjson.String {
		p.ID = id.String()
	}
	if typ := v.Get("type"); typ.Type == gjson.String {
		p.Type = typ.String()
	}
	p.Title = decodeMember[[]RichText](v, "title")
	p.RichText = decodeMember[[]RichText](v, "rich_text")
	p.Email = decodeMember[*string](v, "email")
	p.Number = decodeMember[*float64](v, "number")
	p.Select = decodeMember[*SelectOption](v, "select")
	p.Date = decodeMember[*DateValue](v, "date")
	p.Relation = decodeMember[[]Reference](v, "relation")
	return nil
}

// decodeMember returns the zero value when key is absent or malformed
func decodeMember[T any](v gjson.Result, key string) T {
	var out T
	member := v.Get(key)
	if !member.Exists() {
		return out
	}
	if err := json.Unmarshal([]byte(member.Raw), &out); err != nil {
		var zero T
		return zero
	}
	return out
}

// RichText is one fragment of a title or rich_text property.
type RichText struct {
	Type      string       `json:"type,omitempty"`
	PlainText string       `json:"plain_text"`
	Text      *TextContent `json:"text,omitempty"`
}

// TextContent is the editable body of a text fragment.
type TextContent struct {
	Content string `json:"content"`
}

// SelectOption is the chosen option of a select property.
type SelectOption struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// DateValue is the value of a date property.
type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// Reference points at another page.
type Reference struct {
	ID string `json:"id"`
}

// Property type tags
const (
	TypeTitle    = "title"
	TypeRichText = "rich_text"
	TypeEmail    = "email"
	TypeNumber   = "number"
	TypeSelect   = "select"
	TypeDate     = "date"
	TypeRelation = "relation"
)

// Filter is a database query filter. Compound filters use And.
type Filter struct {
	Property string     `json:"property,omitempty"`
	Text     *Condition `json:"text,omitempty"`
	Email    *Condition `json:"email,omitempty"`
	Select   *Condition `json:"select,omitempty"`
	Relation *Condition `json:"relation,omitempty"`
	And      []Filter   `json:"and,omitempty"`
}

// Condition is the comparison applied by a Filter.
type Condition struct {
	Equals   string `json:"equals,omitempty"`
	Contains string `json:"contains,omitempty"`
}

// Sort orders query results by one property.
type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

// Sort directions
const (
	Ascending  = "ascending"
	Descending = "descending"
)

// QueryRequest is the body of POST /databases/{id}/query.
type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
}

// QueryResponse is one page of query results.
type QueryResponse struct {
	Object     string  `json:"object"`
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// Properties is a write payload keyed by property name. Values are built by
// the helpers in properties.go so that clearing values (empty rich_text,
// null email) survive JSON encoding.
type Properties map[string]any

// Parent identifies the database a new page belongs to.
type Parent struct {
	DatabaseID string `json:"database_id"`
}

// CreatePageRequest is the body of POST /pages.
type CreatePageRequest struct {
	Parent     Parent     `json:"parent"`
	Properties Properties `json:"properties"`
}

// UpdatePageRequest is the body of PATCH /pages/{id}.
type UpdatePageRequest struct {
	Properties Properties `json:"properties,omitempty"`
	Archived   *bool      `json:"archived,omitempty"`
}

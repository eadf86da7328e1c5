// Package notiontest provides an in-memory Notion API for tests. It speaks
// enough of the REST protocol for the invoice and user gateways: database
// queries with filters and sorts, page create, update, archive and get.
package notiontest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/notion-invoice/internal/infrastructure/external/notion"
)

// Token is the API key the server accepts.
const Token = "secret_test_token"

// Request is a recorded inbound request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type failure struct {
	status int
	code   string
	path   string
	skip   int
}

type storedPage struct {
	databaseID string
	page       notion.Page
}

// Server is a fake Notion API backed by memory.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	pages    map[string]*storedPage
	order    []string
	requests []Request
	failures []failure
}

// NewServer starts a fake Notion server. Close it when done.
func NewServer() *Server {
	s := &Server{pages: make(map[string]*storedPage)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Config returns a client config pointing at the fake server.
func (s *Server) Config() notion.Config {
	return notion.Config{
		APIKey:            Token,
		BaseURL:           s.URL,
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             1000,
	}
}

// Fail makes the next n requests fail with the given status and error code.
func (s *Server) Fail(n, status int, code string) {
	s.FailPath("", n, status, code)
}

// FailPath makes the next n requests whose path starts with prefix fail.
func (s *Server) FailPath(prefix string, n, status int, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, failure{status: status, code: code, path: prefix})
	}
}

// FailAfter lets skip matching requests through and then fails the next one.
func (s *Server) FailAfter(prefix string, skip, status int, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, code: code, path: prefix, skip: skip})
}

// AddPage seeds a page into a database and returns its id.
func (s *Server) AddPage(databaseID string, page notion.Page) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page.ID == "" {
		page.ID = uuid.NewString()
	}
	page.Object = "page"
	if page.CreatedTime == "" {
		page.CreatedTime = time.Now().UTC().Format(time.RFC3339)
	}
	if page.LastEditedTime == "" {
		page.LastEditedTime = page.CreatedTime
	}
	s.pages[page.ID] = &storedPage{databaseID: databaseID, page: page}
	s.order = append(s.order, page.ID)
	return page.ID
}

// Page returns a stored page, including archived ones.
func (s *Server) Page(id string) (notion.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return notion.Page{}, false
	}
	return p.page, true
}

// Pages returns the live pages of a database in insertion order.
func (s *Server) Pages(databaseID string) []notion.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notion.Page
	for _, id := range s.order {
		p := s.pages[id]
		if p.databaseID == databaseID && !p.page.Archived {
			out = append(out, p.page)
		}
	}
	return out
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})

	if r.Header.Get("Authorization") != "Bearer "+Token {
		writeError(w, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
		return
	}
	if f, ok := s.takeFailure(r.URL.Path); ok {
		writeError(w, f.status, f.code, "injected failure")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "databases" && parts[2] == "query":
		s.query(w, parts[1], body)
	case r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "pages":
		s.create(w, body)
	case r.Method == http.MethodPatch && len(parts) == 2 && parts[0] == "pages":
		s.update(w, parts[1], body)
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "pages":
		s.get(w, parts[1])
	default:
		writeError(w, http.StatusBadRequest, "invalid_request_url", "Invalid request URL.")
	}
}

func (s *Server) takeFailure(path string) (failure, bool) {
	for i := range s.failures {
		f := &s.failures[i]
		if f.path != "" && !strings.HasPrefix(path, f.path) {
			continue
		}
		if f.skip > 0 {
			f.skip--
			return failure{}, false
		}
		taken := *f
		s.failures = append(s.failures[:i], s.failures[i+1:]...)
		return taken, true
	}
	return failure{}, false
}

func (s *Server) query(w http.ResponseWriter, databaseID string, body []byte) {
	var req notion.QueryRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
	}

	results := []notion.Page{}
	for _, id := range s.order {
		p := s.pages[id]
		if p.databaseID != databaseID || p.page.Archived {
			continue
		}
		if req.Filter != nil && !matches(p.page, *req.Filter) {
			continue
		}
		results = append(results, p.page)
	}
	for i := len(req.Sorts) - 1; i >= 0; i-- {
		srt := req.Sorts[i]
		sort.SliceStable(results, func(a, b int) bool {
			c := compare(results[a].Properties[srt.Property], results[b].Properties[srt.Property])
			if srt.Direction == notion.Descending {
				return c > 0
			}
			return c < 0
		})
	}

	writeJSON(w, http.StatusOK, notion.QueryResponse{Object: "list", Results: results})
}

func (s *Server) create(w http.ResponseWriter, body []byte) {
	var req struct {
		Parent     notion.Parent              `json:"parent"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Parent.DatabaseID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "body failed validation")
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	page := notion.Page{
		Object:         "page",
		ID:             uuid.NewString(),
		CreatedTime:    now,
		LastEditedTime: now,
		Properties:     map[string]notion.PropertyValue{},
	}
	for name, raw := range req.Properties {
		pv, ok := decodeWrite(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid property "+name)
			return
		}
		page.Properties[name] = pv
	}

	s.pages[page.ID] = &storedPage{databaseID: req.Parent.DatabaseID, page: page}
	s.order = append(s.order, page.ID)
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) update(w http.ResponseWriter, id string, body []byte) {
	p, ok := s.pages[id]
	if !ok {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find page with ID: "+id)
		return
	}

	var req struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Archived   *bool                      `json:"archived"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if p.page.Properties == nil {
		p.page.Properties = map[string]notion.PropertyValue{}
	}
	for name, raw := range req.Properties {
		pv, ok := decodeWrite(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid property "+name)
			return
		}
		p.page.Properties[name] = pv
	}
	if req.Archived != nil {
		p.page.Archived = *req.Archived
	}
	p.page.LastEditedTime = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, p.page)
}

func (s *Server) get(w http.ResponseWriter, id string) {
	p, ok := s.pages[id]
	if !ok {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find page with ID: "+id)
		return
	}
	writeJSON(w, http.StatusOK, p.page)
}

// decodeWrite turns a write-side property value ({"title":[{"text":...}]})
// into the read-side shape.
func decodeWrite(raw json.RawMessage) (notion.PropertyValue, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || len(m) != 1 {
		return notion.PropertyValue{}, false
	}
	for typ, v := range m {
		pv := notion.PropertyValue{Type: typ}
		switch typ {
		case notion.TypeTitle, notion.TypeRichText:
			var frags []struct {
				Text notion.TextContent `json:"text"`
			}
			if err := json.Unmarshal(v, &frags); err != nil {
				return pv, false
			}
			rt := make([]notion.RichText, 0, len(frags))
			for _, f := range frags {
				content := f.Text
				rt = append(rt, notion.RichText{Type: "text", PlainText: f.Text.Content, Text: &content})
			}
			if typ == notion.TypeTitle {
				pv.Title = rt
			} else {
				pv.RichText = rt
			}
		case notion.TypeEmail:
			if err := json.Unmarshal(v, &pv.Email); err != nil {
				return pv, false
			}
		case notion.TypeNumber:
			if err := json.Unmarshal(v, &pv.Number); err != nil {
				return pv, false
			}
		case notion.TypeSelect:
			if err := json.Unmarshal(v, &pv.Select); err != nil {
				return pv, false
			}
		case notion.TypeDate:
			if err := json.Unmarshal(v, &pv.Date); err != nil {
				return pv, false
			}
		case notion.TypeRelation:
			if err := json.Unmarshal(v, &pv.Relation); err != nil {
				return pv, false
			}
		default:
			return pv, false
		}
		return pv, true
	}
	return notion.PropertyValue{}, false
}

func matches(page notion.Page, f notion.Filter) bool {
	if len(f.And) > 0 {
		for _, sub := range f.And {
			if !matches(page, sub) {
				return false
			}
		}
		return true
	}

	prop := notion.Property(&page, f.Property)
	switch {
	case f.Text != nil:
		return cond(notion.ExtractText(prop), *f.Text)
	case f.Email != nil:
		return cond(notion.ExtractEmail(prop), *f.Email)
	case f.Select != nil:
		name := ""
		if s := notion.ExtractSelect(prop); s != nil {
			name = *s
		}
		return cond(name, *f.Select)
	case f.Relation != nil:
		for _, id := range notion.ExtractRelation(prop) {
			if id == f.Relation.Contains {
				return true
			}
		}
		return false
	}
	return true
}

func cond(value string, c notion.Condition) bool {
	if c.Equals != "" && value != c.Equals {
		return false
	}
	if c.Contains != "" && !strings.Contains(strings.ToLower(value), strings.ToLower(c.Contains)) {
		return false
	}
	return true
}

func compare(a, b notion.PropertyValue) int {
	if a.Type == notion.TypeNumber || b.Type == notion.TypeNumber {
		x, y := notion.ExtractNumber(&a), notion.ExtractNumber(&b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	if a.Type == notion.TypeDate || b.Type == notion.TypeDate {
		x, y := notion.ExtractDate(&a), notion.ExtractDate(&b)
		switch {
		case x == nil && y == nil:
			return 0
		case x == nil:
			return -1
		case y == nil:
			return 1
		case x.Before(*y):
			return -1
		case x.After(*y):
			return 1
		}
		return 0
	}
	return strings.Compare(notion.ExtractText(&a), notion.ExtractText(&b))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"object":  "error",
		"status":  status,
		"code":    code,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

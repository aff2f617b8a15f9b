package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"folio/api/internal/blob"
	"folio/api/internal/config"
	"folio/api/internal/quill"
	"folio/api/internal/search"
	"folio/api/internal/section"
	"folio/api/internal/session"
	"folio/api/internal/store"
	"folio/api/internal/util"
)

// Categories is the fixed page classification enum. Pages must carry exactly
// one of these.
var Categories = []string{
	"Cardiologie",
	"Pneumologie",
	"Neurologie",
	"Gastroentérologie",
	"Endocrinologie",
	"Rhumatologie",
	"Dermatologie",
	"Urologie",
}

func validCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type dataStore interface {
	Ping(ctx context.Context) error
	InsertPage(ctx context.Context, page store.Page, rows []store.SectionRow) error
	UpdatePage(ctx context.Context, page store.Page, rows []store.SectionRow) error
	GetPage(ctx context.Context, id string) (store.Page, error)
	ListSections(ctx context.Context, pageID string) ([]store.SectionRow, error)
	ListPages(ctx context.Context) ([]store.Page, error)
	DeletePage(ctx context.Context, id string) error
}

type blobStore interface {
	PutImage(ctx context.Context, pageID, sectionID, filename, contentType string, data []byte) (string, error)
	ImageURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

type expansionStore interface {
	Save(ctx context.Context, sessionID, pageID string, e section.Expansion) error
	Load(ctx context.Context, sessionID, pageID string) (section.Expansion, bool, error)
}

// Service implements the page aggregate: metadata plus the section tree,
// saved and loaded as a unit. blobs and expansions may be nil when object
// storage or Redis are not configured; the service degrades rather than
// failing.
type Service struct {
	store      dataStore
	blobs      blobStore
	search     *search.Service
	expansions expansionStore
	imageTTL   time.Duration
}

func NewService(cfg config.Config, data dataStore, blobs *blob.Store, searchSvc *search.Service, expansions *session.ExpansionStore) *Service {
	s := &Service{
		store:    data,
		search:   searchSvc,
		imageTTL: cfg.ImageURLTTL,
	}
	// A typed nil must not end up behind the interface: the service checks
	// s.blobs != nil to decide whether storage is configured.
	if blobs != nil {
		s.blobs = blobs
	}
	if expansions != nil {
		s.expansions = expansions
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SectionInput is one flat section as the editor sends it. ContentDelta is
// the structured rich-text source; rendered markup is never accepted on the
// wire. A nil Order means "use my position among my siblings in the array".
type SectionInput struct {
	FrontendID      string          `json:"frontendId"`
	Type            string          `json:"type"`
	Title           string          `json:"title"`
	ContentDelta    json.RawMessage `json:"contentDelta"`
	ParentID        *string         `json:"parentId"`
	Order           *int            `json:"order"`
	BackgroundColor string          `json:"backgroundColor"`
	HighlightColor  string          `json:"highlightColor"`
	TitleTextColor  string          `json:"titleTextColor"`
	BorderWidth     *int            `json:"borderWidth"`
	BorderStyle     string          `json:"borderStyle"`
	BorderColor     string          `json:"borderColor"`
	Width           string          `json:"width"`
	Alignment       string          `json:"alignment"`
	IsExpanded      bool            `json:"isExpanded"`
}

// PageInput is the save payload: page metadata plus the flat section array.
type PageInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Tags        []string       `json:"tags"`
	Sections    []SectionInput `json:"sections"`
}

// ImageUpload is one pending image from the save side channel, paired with
// its section by id.
type ImageUpload struct {
	SectionID   string
	Filename    string
	ContentType string
	Data        []byte
}

// SectionNode is the nested wire form of a section on load responses.
// ContentHTML is hydrated from the stored delta; ImageURL is a presigned
// read link for image sections.
type SectionNode struct {
	ID              string          `json:"frontendId"`
	Type            string          `json:"type"`
	Title           string          `json:"title"`
	ContentDelta    json.RawMessage `json:"contentDelta,omitempty"`
	ContentHTML     string          `json:"contentHtml,omitempty"`
	ParentID        *string         `json:"parentId"`
	Order           int             `json:"order"`
	BackgroundColor string          `json:"backgroundColor"`
	HighlightColor  string          `json:"highlightColor"`
	TitleTextColor  string          `json:"titleTextColor"`
	BorderWidth     int             `json:"borderWidth"`
	BorderStyle     string          `json:"borderStyle"`
	BorderColor     string          `json:"borderColor"`
	Width           string          `json:"width"`
	Alignment       string          `json:"alignment"`
	ImageURL        string          `json:"imageUrl,omitempty"`
	Filename        string          `json:"filename,omitempty"`
	IsExpanded      bool            `json:"isExpanded"`
	Children        []SectionNode   `json:"children"`
}

type PageView struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Tags        []string      `json:"tags"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Sections    []SectionNode `json:"sections"`
}

type PageSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreatePage validates and stores a new page with its section tree and any
// pending image uploads. Validation failures never touch the store.
func (s *Service) CreatePage(ctx context.Context, input PageInput, uploads []ImageUpload) (PageView, error) {
	if err := validatePageInput(input); err != nil {
		return PageView{}, err
	}
	sections, err := sectionsFromInputs(input.Sections)
	if err != nil {
		return PageView{}, err
	}
	tree, err := section.FromFlat(sections)
	if err != nil {
		return PageView{}, asDomainError(err)
	}

	pageID := util.NewPageID()
	rows, err := s.buildRows(ctx, pageID, tree.Sections(), nil, uploads)
	if err != nil {
		return PageView{}, err
	}

	page := store.Page{
		ID:          pageID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Category:    input.Category,
		Tags:        nonNilTags(input.Tags),
	}
	if err := s.store.InsertPage(ctx, page, rows); err != nil {
		return PageView{}, asDomainError(err)
	}
	s.indexPage(page)
	return s.GetPage(ctx, pageID)
}

// UpdatePage replaces a page's metadata and its whole section set. Sections
// omitted from the payload are deleted; image sections without a new upload
// keep the payload they had.
func (s *Service) UpdatePage(ctx context.Context, pageID string, input PageInput, uploads []ImageUpload) (PageView, error) {
	if err := validatePageInput(input); err != nil {
		return PageView{}, err
	}
	sections, err := sectionsFromInputs(input.Sections)
	if err != nil {
		return PageView{}, err
	}
	tree, err := section.FromFlat(sections)
	if err != nil {
		return PageView{}, asDomainError(err)
	}

	existing, err := s.store.ListSections(ctx, pageID)
	if err != nil {
		return PageView{}, asDomainError(err)
	}
	previous := make(map[string]store.SectionRow, len(existing))
	for _, row := range existing {
		previous[row.FrontendID] = row
	}

	rows, err := s.buildRows(ctx, pageID, tree.Sections(), previous, uploads)
	if err != nil {
		return PageView{}, err
	}

	page := store.Page{
		ID:          pageID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Category:    input.Category,
		Tags:        nonNilTags(input.Tags),
	}
	if err := s.store.UpdatePage(ctx, page, rows); err != nil {
		return PageView{}, asDomainError(err)
	}

	s.cleanupOrphanedImages(ctx, existing, rows)
	s.indexPage(page)
	return s.GetPage(ctx, pageID)
}

// GetPage loads a page with its nested, hydrated section tree.
func (s *Service) GetPage(ctx context.Context, pageID string) (PageView, error) {
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return PageView{}, asDomainError(err)
	}
	rows, err := s.store.ListSections(ctx, pageID)
	if err != nil {
		return PageView{}, asDomainError(err)
	}
	sections, err := sectionsFromRows(rows)
	if err != nil {
		return PageView{}, asDomainError(err)
	}
	nodes, err := section.Nest(sections)
	if err != nil {
		return PageView{}, asDomainError(err)
	}
	return PageView{
		ID:          page.ID,
		Title:       page.Title,
		Description: page.Description,
		Category:    page.Category,
		Tags:        nonNilTags(page.Tags),
		CreatedAt:   page.CreatedAt,
		UpdatedAt:   page.UpdatedAt,
		Sections:    s.wireNodes(ctx, nodes),
	}, nil
}

func (s *Service) ListPages(ctx context.Context) ([]PageSummary, error) {
	pages, err := s.store.ListPages(ctx)
	if err != nil {
		return nil, asDomainError(err)
	}
	out := make([]PageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, PageSummary{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Category:    p.Category,
			Tags:        nonNilTags(p.Tags),
			UpdatedAt:   p.UpdatedAt,
		})
	}
	return out, nil
}

// DeletePage removes the page, its search index entry and, best effort, its
// stored image payloads.
func (s *Service) DeletePage(ctx context.Context, pageID string) error {
	rows, err := s.store.ListSections(ctx, pageID)
	if err != nil {
		return asDomainError(err)
	}
	if err := s.store.DeletePage(ctx, pageID); err != nil {
		return asDomainError(err)
	}
	if s.blobs != nil {
		for _, row := range rows {
			if row.ImageKey == "" {
				continue
			}
			if err := s.blobs.Remove(ctx, row.ImageKey); err != nil {
				log.Printf("delete page %s: remove image %s: %v", pageID, row.ImageKey, err)
			}
		}
	}
	if s.search != nil {
		s.search.DeletePage(pageID)
	}
	return nil
}

// Search answers a page query. An unknown category is rejected before any
// backend is consulted.
func (s *Service) Search(ctx context.Context, q search.Query) (search.Response, error) {
	if q.Category != "" && !validCategory(q.Category) {
		return search.Response{}, validationError("unknown category " + q.Category)
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}
	return s.search.Search(ctx, q), nil
}

// ExpansionView is the wire form of one session's expansion state for a page.
type ExpansionView struct {
	PageID   string   `json:"pageId"`
	Expanded []string `json:"expanded"`
}

// PageExpansion returns the session's expansion set for a page, applying the
// initialization rule on first access and persisting the result when Redis is
// available. The editor rule pre-expands every section with children; viewer
// sessions instead honor the persisted isExpanded flags.
func (s *Service) PageExpansion(ctx context.Context, sessionID, pageID string, viewer bool) (ExpansionView, error) {
	tree, err := s.loadTree(ctx, pageID)
	if err != nil {
		return ExpansionView{}, err
	}

	var expansion section.Expansion
	if s.expansions != nil {
		stored, ok, err := s.expansions.Load(ctx, sessionID, pageID)
		if err != nil {
			return ExpansionView{}, asDomainError(err)
		}
		if ok {
			expansion = stored
		}
	}
	if expansion == nil {
		if viewer {
			nodes, err := section.Nest(tree.Sections())
			if err != nil {
				return ExpansionView{}, asDomainError(err)
			}
			expansion = section.InitExpansionFromFlags(nodes)
		} else {
			expansion = section.InitExpansion(tree)
		}
		if s.expansions != nil {
			if err := s.expansions.Save(ctx, sessionID, pageID, expansion); err != nil {
				log.Printf("expansion: save initial set for page %s: %v", pageID, err)
			}
		}
	}
	return ExpansionView{PageID: pageID, Expanded: expansion.IDs()}, nil
}

// ToggleExpansion flips one section's expansion state for the session.
// Descendants keep their own stored state.
func (s *Service) ToggleExpansion(ctx context.Context, sessionID, pageID, sectionID string) (ExpansionView, error) {
	tree, err := s.loadTree(ctx, pageID)
	if err != nil {
		return ExpansionView{}, err
	}
	if _, ok := tree.Get(sectionID); !ok {
		return ExpansionView{}, notFoundError("section " + sectionID + " not found")
	}

	var expansion section.Expansion
	if s.expansions != nil {
		stored, ok, err := s.expansions.Load(ctx, sessionID, pageID)
		if err != nil {
			return ExpansionView{}, asDomainError(err)
		}
		if ok {
			expansion = stored
		}
	}
	if expansion == nil {
		expansion = section.InitExpansion(tree)
	}
	expansion.Toggle(sectionID)
	if s.expansions != nil {
		if err := s.expansions.Save(ctx, sessionID, pageID, expansion); err != nil {
			return ExpansionView{}, asDomainError(err)
		}
	}
	return ExpansionView{PageID: pageID, Expanded: expansion.IDs()}, nil
}

// ReindexSearch pushes every page into the search index, typically at boot.
func (s *Service) ReindexSearch(ctx context.Context) error {
	if s.search == nil {
		return nil
	}
	pages, err := s.store.ListPages(ctx)
	if err != nil {
		return fmt.Errorf("list pages for reindex: %w", err)
	}
	records := make([]search.PageRecord, 0, len(pages))
	for _, p := range pages {
		records = append(records, pageRecord(p))
	}
	s.search.Reindex(records)
	return nil
}

func (s *Service) loadTree(ctx context.Context, pageID string) (*section.Store, error) {
	if _, err := s.store.GetPage(ctx, pageID); err != nil {
		return nil, asDomainError(err)
	}
	rows, err := s.store.ListSections(ctx, pageID)
	if err != nil {
		return nil, asDomainError(err)
	}
	sections, err := sectionsFromRows(rows)
	if err != nil {
		return nil, asDomainError(err)
	}
	tree, err := section.FromFlat(sections)
	if err != nil {
		return nil, asDomainError(err)
	}
	return tree, nil
}

func validatePageInput(input PageInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return validationError("title is required")
	}
	if input.Category == "" {
		return validationError("category is required")
	}
	if !validCategory(input.Category) {
		return validationError("unknown category " + input.Category)
	}
	seen := make(map[string]bool, len(input.Sections))
	for _, in := range input.Sections {
		if strings.TrimSpace(in.FrontendID) == "" {
			return validationError("every section needs a frontendId")
		}
		if seen[in.FrontendID] {
			return validationError("duplicate section id " + in.FrontendID)
		}
		seen[in.FrontendID] = true
		if !section.Type(in.Type).Valid() {
			return validationError("unknown section type " + in.Type)
		}
	}
	return nil
}

// sectionsFromInputs converts the wire form into core sections. A missing
// order is filled from the section's position among its siblings in the
// array; explicit orders pass through and FromFlat rejects collisions.
func sectionsFromInputs(inputs []SectionInput) ([]section.Section, error) {
	counts := make(map[string]int)
	out := make([]section.Section, 0, len(inputs))
	for _, in := range inputs {
		parentID := ""
		if in.ParentID != nil {
			parentID = *in.ParentID
		}
		order := counts[parentID]
		if in.Order != nil {
			order = *in.Order
		}
		counts[parentID]++

		delta, err := quill.Parse(in.ContentDelta)
		if err != nil {
			return nil, validationError("section " + in.FrontendID + ": invalid content delta")
		}

		sec := section.Section{
			ID:              in.FrontendID,
			Type:            section.Type(in.Type),
			ParentID:        parentID,
			Order:           order,
			Title:           in.Title,
			ContentSource:   delta,
			ContentRendered: quill.Render(delta),
			BackgroundColor: defaultString(in.BackgroundColor, section.DefaultBackgroundColor),
			HighlightColor:  defaultString(in.HighlightColor, section.DefaultHighlightColor),
			TitleTextColor:  defaultString(in.TitleTextColor, section.DefaultTitleTextColor),
			BorderWidth:     1,
			BorderStyle:     defaultString(in.BorderStyle, section.DefaultBorderStyle),
			BorderColor:     defaultString(in.BorderColor, section.DefaultBorderColor),
			Width:           defaultString(in.Width, section.DefaultWidth),
			Alignment:       defaultString(in.Alignment, section.DefaultAlignment),
			IsExpanded:      in.IsExpanded,
		}
		if in.BorderWidth != nil {
			sec.BorderWidth = *in.BorderWidth
		}
		out = append(out, sec)
	}
	return out, nil
}

// sectionsFromRows hydrates persisted rows into core sections, regenerating
// the rendered markup from the stored delta.
func sectionsFromRows(rows []store.SectionRow) ([]section.Section, error) {
	out := make([]section.Section, 0, len(rows))
	for _, row := range rows {
		delta, err := quill.Parse(row.ContentSource)
		if err != nil {
			return nil, fmt.Errorf("section %s: decode content: %w", row.FrontendID, err)
		}
		parentID := ""
		if row.ParentID != nil {
			parentID = *row.ParentID
		}
		out = append(out, section.Section{
			ID:              row.FrontendID,
			Type:            section.Type(row.Type),
			ParentID:        parentID,
			Order:           row.SortOrder,
			Title:           row.Title,
			ContentSource:   delta,
			ContentRendered: quill.Render(delta),
			BackgroundColor: row.BackgroundColor,
			HighlightColor:  row.HighlightColor,
			TitleTextColor:  row.TitleTextColor,
			BorderWidth:     row.BorderWidth,
			BorderStyle:     row.BorderStyle,
			BorderColor:     row.BorderColor,
			Width:           row.Width,
			Alignment:       row.Alignment,
			ImageData:       row.ImageKey,
			Filename:        row.Filename,
			IsExpanded:      row.IsExpanded,
		})
	}
	return out, nil
}

// buildRows converts core sections into persistence rows, resolving image
// payloads: a pending upload wins, otherwise the section keeps the key it
// had before this save.
func (s *Service) buildRows(ctx context.Context, pageID string, sections []section.Section, previous map[string]store.SectionRow, uploads []ImageUpload) ([]store.SectionRow, error) {
	pending := make(map[string]ImageUpload, len(uploads))
	for _, up := range uploads {
		pending[up.SectionID] = up
	}

	rows := make([]store.SectionRow, 0, len(sections))
	for _, sec := range sections {
		row := store.SectionRow{
			PageID:          pageID,
			FrontendID:      sec.ID,
			Type:            string(sec.Type),
			Title:           sec.Title,
			SortOrder:       sec.Order,
			BackgroundColor: sec.BackgroundColor,
			HighlightColor:  sec.HighlightColor,
			TitleTextColor:  sec.TitleTextColor,
			BorderWidth:     sec.BorderWidth,
			BorderStyle:     sec.BorderStyle,
			BorderColor:     sec.BorderColor,
			Width:           sec.Width,
			Alignment:       sec.Alignment,
			IsExpanded:      sec.IsExpanded,
		}
		if sec.ParentID != "" {
			parentID := sec.ParentID
			row.ParentID = &parentID
		}
		if !sec.ContentSource.IsZero() {
			data, err := json.Marshal(sec.ContentSource)
			if err != nil {
				return nil, fmt.Errorf("section %s: encode content: %w", sec.ID, err)
			}
			row.ContentSource = data
		}

		if sec.Type == section.TypeImage {
			if up, ok := pending[sec.ID]; ok {
				if s.blobs == nil {
					return nil, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "image storage is not configured", nil)
				}
				key, err := s.blobs.PutImage(ctx, pageID, sec.ID, up.Filename, up.ContentType, up.Data)
				if err != nil {
					return nil, asDomainError(err)
				}
				row.ImageKey = key
				row.Filename = up.Filename
			} else if prev, ok := previous[sec.ID]; ok && prev.ImageKey != "" {
				row.ImageKey = prev.ImageKey
				row.Filename = prev.Filename
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// cleanupOrphanedImages removes blob objects whose sections no longer exist
// or were replaced. Best effort: a failed removal only logs.
func (s *Service) cleanupOrphanedImages(ctx context.Context, before, after []store.SectionRow) {
	if s.blobs == nil {
		return
	}
	kept := make(map[string]bool, len(after))
	for _, row := range after {
		if row.ImageKey != "" {
			kept[row.ImageKey] = true
		}
	}
	for _, row := range before {
		if row.ImageKey == "" || kept[row.ImageKey] {
			continue
		}
		if err := s.blobs.Remove(ctx, row.ImageKey); err != nil {
			log.Printf("cleanup image %s: %v", row.ImageKey, err)
		}
	}
}

// wireNodes converts the nested tree into its wire form, resolving image
// keys to presigned URLs.
func (s *Service) wireNodes(ctx context.Context, nodes []section.Node) []SectionNode {
	out := make([]SectionNode, 0, len(nodes))
	for _, node := range nodes {
		wire := SectionNode{
			ID:              node.ID,
			Type:            string(node.Type),
			Title:           node.Title,
			Order:           node.Order,
			BackgroundColor: node.BackgroundColor,
			HighlightColor:  node.HighlightColor,
			TitleTextColor:  node.TitleTextColor,
			BorderWidth:     node.BorderWidth,
			BorderStyle:     node.BorderStyle,
			BorderColor:     node.BorderColor,
			Width:           node.Width,
			Alignment:       node.Alignment,
			Filename:        node.Filename,
			IsExpanded:      node.IsExpanded,
			Children:        s.wireNodes(ctx, node.Children),
		}
		if node.ParentID != "" {
			parentID := node.ParentID
			wire.ParentID = &parentID
		}
		if node.Type == section.TypeImage {
			if node.ImageData != "" && s.blobs != nil {
				url, err := s.blobs.ImageURL(ctx, node.ImageData, s.imageTTL)
				if err != nil {
					log.Printf("presign image %s: %v", node.ImageData, err)
				} else {
					wire.ImageURL = url
				}
			}
		} else {
			if data, err := json.Marshal(node.ContentSource); err == nil {
				wire.ContentDelta = data
			}
			wire.ContentHTML = node.ContentRendered
		}
		out = append(out, wire)
	}
	return out
}

func (s *Service) indexPage(page store.Page) {
	if s.search == nil {
		return
	}
	if page.UpdatedAt.IsZero() {
		page.UpdatedAt = time.Now()
	}
	s.search.IndexPage(pageRecord(page))
}

func pageRecord(p store.Page) search.PageRecord {
	return search.PageRecord{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Tags:        p.Tags,
		UpdatedAt:   p.UpdatedAt.Unix(),
	}
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

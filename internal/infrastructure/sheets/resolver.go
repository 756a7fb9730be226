package sheets

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/skillmint/regsync/pkg/logger"
	"go.uber.org/zap"
)

// Name normalization is versioned because the canonical naming rule has
// drifted over time and externally-created sinks may still carry an older
// form. Lookup tries every historical variant; creation and rename always
// use the current canonical form, so repeated resolutions converge on it.
//
//	v2 (current): trimmed, whitespace-collapsed, drive-safe, capped
//	v1: raw name, trimmed
//	v0: lowercase hyphenated slug
const maxNameLength = 80

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	hostileChars  = regexp.MustCompile(`[\[\]/\\?*:'"<>|#]`)
	slugCleaner   = regexp.MustCompile(`[^a-z0-9]+`)
)

// CanonicalName is the v2 display name an event's sink containers carry.
func CanonicalName(eventName string) string {
	name := strings.TrimSpace(eventName)
	name = hostileChars.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	if len(name) > maxNameLength {
		runes := []rune(name)
		if len(runes) > maxNameLength {
			name = strings.TrimSpace(string(runes[:maxNameLength]))
		}
	}
	return name
}

// Slug is the legacy v0 container name.
func Slug(eventName string) string {
	s := strings.ToLower(strings.TrimSpace(eventName))
	s = slugCleaner.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeKey is the cache key for an event name: the canonical name,
// case-folded.
func NormalizeKey(eventName string) string {
	return strings.ToLower(CanonicalName(eventName))
}

// LookupCandidates returns the names to try when searching for an existing
// sink, newest normalization first. Used only for lookup, never creation.
func LookupCandidates(eventName string) []string {
	candidates := []string{
		CanonicalName(eventName),
		strings.TrimSpace(eventName),
		Slug(eventName),
	}

	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// provider is the slice of the client the resolver needs to locate,
// rename, and create sink containers.
type provider interface {
	searchByName(ctx context.Context, name, mime, parentFolder string) (string, error)
	rename(ctx context.Context, fileID, name string) error
	createSpreadsheet(ctx context.Context, name, parentFolder string) (string, error)
	createDocument(ctx context.Context, name, parentFolder string) (string, error)
	WriteHeader(ctx context.Context, m *Mapping, header []string) error
	WriteMetadata(ctx context.Context, m *Mapping, rows [][]interface{}) error
}

// Resolver locates or creates the sink pair for an event and caches the
// mapping for the process lifetime. The cache is an optimization, not a
// source of truth: the external provider stays authoritative and a stale
// entry self-corrects on the next lookup miss.
type Resolver struct {
	client       provider
	parentFolder string
	cache        sync.Map // NormalizeKey(eventName) -> *Mapping
	logger       *logger.Logger
}

func NewResolver(client provider, parentFolder string, log *logger.Logger) *Resolver {
	return &Resolver{
		client:       client,
		parentFolder: parentFolder,
		logger:       log,
	}
}

// Resolve returns the sink mapping for an event name, creating the
// spreadsheet (header written, metadata tab filled when metaRows is
// non-nil) and log document on first use. Provider errors propagate to the
// caller; individual calls are already retry-wrapped by the client.
func (r *Resolver) Resolve(ctx context.Context, eventName string, metaRows [][]interface{}) (*Mapping, error) {
	key := NormalizeKey(eventName)
	if cached, ok := r.cache.Load(key); ok {
		return cached.(*Mapping), nil
	}

	canonical := CanonicalName(eventName)
	mapping, err := r.lookup(ctx, eventName, canonical)
	if err != nil {
		return nil, err
	}

	if mapping == nil {
		mapping, err = r.create(ctx, canonical, metaRows)
		if err != nil {
			return nil, err
		}
	}

	r.cache.Store(key, mapping)
	return mapping, nil
}

// Cached reports whether a mapping for the event name is already resolved.
func (r *Resolver) Cached(eventName string) bool {
	_, ok := r.cache.Load(NormalizeKey(eventName))
	return ok
}

func (r *Resolver) lookup(ctx context.Context, eventName, canonical string) (*Mapping, error) {
	for _, candidate := range LookupCandidates(eventName) {
		id, err := r.client.searchByName(ctx, candidate, spreadsheetMime, r.parentFolder)
		if err != nil {
			return nil, err
		}
		if id == "" {
			continue
		}

		// Found under a stale name: rename so future lookups converge on
		// the canonical candidate. Best-effort only.
		if candidate != canonical {
			if err := r.client.rename(ctx, id, canonical); err != nil {
				r.logger.Warn("Failed to rename sink to canonical name",
					zap.String("event", eventName),
					zap.String("stale_name", candidate),
					zap.Error(err),
				)
			}
		}

		docID, err := r.resolveDocument(ctx, canonical)
		if err != nil {
			r.logger.Warn("Failed to resolve log document",
				zap.String("event", eventName),
				zap.Error(err),
			)
		}

		return &Mapping{
			SpreadsheetID: id,
			DocumentID:    docID,
			DataTabName:   DataTabName,
			MetaTabName:   MetaTabName,
			DisplayName:   canonical,
		}, nil
	}
	return nil, nil
}

func (r *Resolver) create(ctx context.Context, canonical string, metaRows [][]interface{}) (*Mapping, error) {
	id, err := r.client.createSpreadsheet(ctx, canonical, r.parentFolder)
	if err != nil {
		return nil, err
	}

	mapping := &Mapping{
		SpreadsheetID: id,
		DataTabName:   DataTabName,
		MetaTabName:   MetaTabName,
		DisplayName:   canonical,
	}

	if err := r.client.WriteHeader(ctx, mapping, RowHeader); err != nil {
		return nil, err
	}

	if metaRows != nil {
		// Metadata is best-effort on creation; the next event update
		// refreshes it.
		if err := r.client.WriteMetadata(ctx, mapping, metaRows); err != nil {
			r.logger.Warn("Failed to write metadata tab",
				zap.String("spreadsheet", id),
				zap.Error(err),
			)
		}
	}

	docID, err := r.client.createDocument(ctx, canonical+" Log", r.parentFolder)
	if err != nil {
		// The sheet is the primary sink; a missing log document only
		// drops audit entries until the next resolution.
		r.logger.Warn("Failed to create log document",
			zap.String("event", canonical),
			zap.Error(err),
		)
	} else {
		mapping.DocumentID = docID
	}

	return mapping, nil
}

func (r *Resolver) resolveDocument(ctx context.Context, canonical string) (string, error) {
	docName := canonical + " Log"
	id, err := r.client.searchByName(ctx, docName, documentMime, r.parentFolder)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	return r.client.createDocument(ctx, docName, r.parentFolder)
}

// RowHeader is the fixed data-tab header. Order and count are part of the
// external contract and must not change without a header migration.
var RowHeader = []string{"Name", "Email", "Phone", "State", "Qualification", "Event", "Submitted"}

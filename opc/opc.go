// Package opc implements the Open Packaging Conventions layer shared by
// every part of an .xlsx file: parts keyed by normalized path,
// content-type dispatch (default-extension table plus per-part
// overrides), and the relationship graph linking parts together.
//
// Generalized from adnsv-go-xl/xl/writer.go's GlobalRels/WorkbookRels/
// DefaultContentTypes/PartContentTypes maps and nextGlobalID/
// nextWorkbookID counters, which were write-only and scoped to a single
// Writer; here the same shape serves both the reader and the builder.
package opc

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"

	"github.com/openxlgo/xlcore/xlerrors"
)

// TargetMode distinguishes a relationship that points inside the package
// from one that points to an external URI.
type TargetMode int

const (
	Internal TargetMode = iota
	External
)

// Relationship is one edge of the relationship graph: an id unique
// within its owning part, a type URI, and a target (stored exactly as it
// appears in the XML, resolved against the owner's directory on demand).
type Relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode TargetMode
}

// Part is one named byte blob inside the package.
type Part struct {
	ContentType string
	Data        []byte
}

// Package is the in-memory model of an OPC container: every part plus
// every relationship, independent of how it was read or how it will be
// written (ZIP, directory, whatever).
type Package struct {
	Parts         map[string]*Part          // normalized path -> part
	Relationships map[string][]Relationship // owning part path -> rels

	DefaultContentTypes map[string]string // extension -> content-type
	PartContentTypes    map[string]string // normalized path -> content-type override

	lastID map[string]int // owning part path -> last numeric rId allocated
}

// New returns an empty Package with the two default content types every
// OPC package requires (rels, xml), per spec.md §4.4.
func New() *Package {
	return &Package{
		Parts:         map[string]*Part{},
		Relationships: map[string][]Relationship{},
		DefaultContentTypes: map[string]string{
			"rels": "application/vnd.openxmlformats-package.relationships+xml",
			"xml":  "application/xml",
		},
		PartContentTypes: map[string]string{},
		lastID:           map[string]int{},
	}
}

// NormalizePath ensures a part path starts with exactly one leading '/'
// and uses forward slashes, preserving case per spec.md §3.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// AddPart stores a part's bytes under the given path, recording its
// content type as an override (parts with a declared content type always
// need one — the default-extension table alone can't name an override
// content type like the workbook's ".main+xml" variant).
func (p *Package) AddPart(partPath, contentType string, data []byte) {
	np := NormalizePath(partPath)
	p.Parts[np] = &Part{ContentType: contentType, Data: data}
	if contentType != "" {
		p.PartContentTypes[np] = contentType
	}
}

// Part looks up a part by path, normalizing first.
func (p *Package) Part(partPath string) (*Part, bool) {
	part, ok := p.Parts[NormalizePath(partPath)]
	return part, ok
}

// AddRelationship appends a relationship to owner's list, returning the
// assigned id if id is empty (auto-assigned sequentially as rId1, rId2,
// ... per spec.md §3's invariant).
func (p *Package) AddRelationship(owner, id, typeURI, target string, mode TargetMode) string {
	owner = NormalizePath(owner)
	if id == "" {
		id = p.nextRelID(owner)
	}
	p.Relationships[owner] = append(p.Relationships[owner], Relationship{
		ID: id, Type: typeURI, Target: target, TargetMode: mode,
	})
	return id
}

func (p *Package) nextRelID(owner string) string {
	p.lastID[owner]++
	return "rId" + strconv.Itoa(p.lastID[owner])
}

// bumpRelID raises owner's auto-increment counter so a later
// nextRelID(owner) call never reissues an id already read from disk.
// Called by ReadPackage for every explicit rId it parses out of a
// .rels file.
func (p *Package) bumpRelID(owner, id string) {
	n, ok := relIDNum(id)
	if !ok {
		return
	}
	if n > p.lastID[owner] {
		p.lastID[owner] = n
	}
}

// RelationshipsFor returns the relationships owned by the given part, in
// a stable order (by numeric suffix of rId when present, else
// lexical).
func (p *Package) RelationshipsFor(owner string) []Relationship {
	rels := append([]Relationship(nil), p.Relationships[NormalizePath(owner)]...)
	sort.Slice(rels, func(i, j int) bool { return relIDLess(rels[i].ID, rels[j].ID) })
	return rels
}

func relIDLess(a, b string) bool {
	an, aok := relIDNum(a)
	bn, bok := relIDNum(b)
	if aok && bok {
		return an < bn
	}
	return a < b
}

func relIDNum(id string) (int, bool) {
	if !strings.HasPrefix(id, "rId") {
		return 0, false
	}
	n, err := strconv.Atoi(id[3:])
	return n, err == nil
}

// Resolve resolves a relationship's target against its owner's directory,
// returning the absolute, normalized part path. External targets are
// returned unresolved (they are not package parts).
func Resolve(owner, target string) string {
	dir := path.Dir(NormalizePath(owner))
	if strings.HasPrefix(target, "/") {
		return NormalizePath(target)
	}
	return NormalizePath(path.Join(dir, target))
}

// FindByType returns the first relationship of the given type owned by
// owner, and the resolved absolute path of its target. ok is false if
// none exists.
func (p *Package) FindByType(owner, typeURI string) (Relationship, string, bool) {
	for _, r := range p.RelationshipsFor(owner) {
		if r.Type == typeURI {
			return r, Resolve(owner, r.Target), true
		}
	}
	return Relationship{}, "", false
}

// ResolveRelationship looks up a single relationship by owner+id and
// returns it together with its resolved target path. Returns
// InvalidRelationship if the id is unknown to the owner.
func (p *Package) ResolveRelationship(owner, id string) (Relationship, string, error) {
	for _, r := range p.RelationshipsFor(owner) {
		if r.ID == id {
			return r, Resolve(owner, r.Target), nil
		}
	}
	return Relationship{}, "", xlerrors.InvalidRelationship(owner, id, "relationship id not found")
}

// ContentTypeFor computes the effective content type for a part: an
// explicit override wins, else the default-extension table, per
// spec.md §4.4.
func (p *Package) ContentTypeFor(partPath string) (string, bool) {
	np := NormalizePath(partPath)
	if ct, ok := p.PartContentTypes[np]; ok {
		return ct, true
	}
	ext := strings.TrimPrefix(path.Ext(np), ".")
	ct, ok := p.DefaultContentTypes[ext]
	return ct, ok
}

// Enumerate walks an ordered map deterministically, exactly as
// adnsv-go-xl/xl/writer.go's enumerate() does for rels/content-type
// emission — reused here for every deterministic-order part walk the
// codec and builder need (content types, relationships, shared strings
// dedup maps).
func Enumerate[M ~map[K]V, K constraints.Ordered, V any](m M, fn func(k K, v V) error) error {
	keys := maps.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		if err := fn(k, m[k]); err != nil {
			return err
		}
	}
	return nil
}

// Package yupdate reads and writes the Yjs v1 binary update format: struct
// groups keyed by client followed by a delete set.
package yupdate

import (
	"fmt"

	"github.com/iksnae/doc-history/internal/lib0"
)

// Info byte layout of an encoded struct
const (
	infoContentMask = 0x1f
	infoParentSub   = 0x20
	infoRightOrigin = 0x40
	infoOrigin      = 0x80
)

// StructKind identifies which record a Struct was decoded from
type StructKind int

const (
	KindItem StructKind = iota
	KindGC
	KindSkip
)

// String returns the record name used in timeline summaries
func (k StructKind) String() string {
	switch k {
	case KindItem:
		return "Item"
	case KindGC:
		return "GC"
	case KindSkip:
		return "Skip"
	default:
		return fmt.Sprintf("StructKind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON and YAML output
func (k StructKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ID addresses a single clock position of a client
type ID struct {
	Client uint64 `json:"client"`
	Clock  uint64 `json:"clock"`
}

// Struct is one decoded change unit. Item is nil for GC and Skip records.
type Struct struct {
	Kind   StructKind `json:"kind"`
	Client uint64     `json:"client"`
	Clock  uint64     `json:"clock"`
	Length uint64     `json:"length"`
	Item   *Item      `json:"item,omitempty"`
}

// Item carries the placement and content of an inserted struct
type Item struct {
	Origin      *ID     `json:"origin,omitempty"`
	RightOrigin *ID     `json:"rightOrigin,omitempty"`
	ParentKey   string  `json:"parentKey,omitempty"` // root type name
	ParentID    *ID     `json:"parentId,omitempty"`
	ParentSub   *string `json:"parentSub,omitempty"`
	Content     Content `json:"content"`
}

// DeleteItem is a deleted clock range of one client
type DeleteItem struct {
	Clock  uint64 `json:"clock"`
	Length uint64 `json:"length"`
}

// Update is the decoded form of a v1 update. DeleteClients keeps the
// encoded client order of DeleteSet.
type Update struct {
	Structs       []Struct                `json:"structs"`
	DeleteSet     map[uint64][]DeleteItem `json:"deleteSet"`
	DeleteClients []uint64                `json:"-"`
}

// ContentRef is the content type number stored in the low five info bits
type ContentRef uint8

const (
	RefGC      ContentRef = 0
	RefDeleted ContentRef = 1
	RefJSON    ContentRef = 2
	RefBinary  ContentRef = 3
	RefString  ContentRef = 4
	RefEmbed   ContentRef = 5
	RefFormat  ContentRef = 6
	RefType    ContentRef = 7
	RefAny     ContentRef = 8
	RefDoc     ContentRef = 9
	RefSkip    ContentRef = 10
)

// Type refs of ContentType
const (
	TypeRefArray       uint64 = 0
	TypeRefMap         uint64 = 1
	TypeRefText        uint64 = 2
	TypeRefXMLElement  uint64 = 3
	TypeRefXMLFragment uint64 = 4
	TypeRefXMLHook     uint64 = 5
	TypeRefXMLText     uint64 = 6
)

// Content is the payload of an Item
type Content interface {
	Ref() ContentRef
	// Length is the number of clock ticks the content occupies
	Length() uint64
	// Name is the content kind name, e.g. "ContentString"
	Name() string
}

type ContentDeleted struct {
	Len uint64 `json:"len"`
}

func (c *ContentDeleted) Ref() ContentRef { return RefDeleted }
func (c *ContentDeleted) Length() uint64  { return c.Len }
func (c *ContentDeleted) Name() string    { return "ContentDeleted" }

// ContentJSON holds legacy JSON-encoded values. lib0.Undefined marks an
// "undefined" entry.
type ContentJSON struct {
	Values []interface{} `json:"values"`
}

func (c *ContentJSON) Ref() ContentRef { return RefJSON }
func (c *ContentJSON) Length() uint64  { return uint64(len(c.Values)) }
func (c *ContentJSON) Name() string    { return "ContentJSON" }

type ContentBinary struct {
	Data []byte `json:"data"`
}

func (c *ContentBinary) Ref() ContentRef { return RefBinary }
func (c *ContentBinary) Length() uint64  { return 1 }
func (c *ContentBinary) Name() string    { return "ContentBinary" }

// ContentString length is counted in UTF-16 code units
type ContentString struct {
	Str string `json:"str"`
	len uint64
}

func (c *ContentString) Ref() ContentRef { return RefString }
func (c *ContentString) Length() uint64  { return c.len }
func (c *ContentString) Name() string    { return "ContentString" }

type ContentEmbed struct {
	Embed interface{} `json:"embed"`
}

func (c *ContentEmbed) Ref() ContentRef { return RefEmbed }
func (c *ContentEmbed) Length() uint64  { return 1 }
func (c *ContentEmbed) Name() string    { return "ContentEmbed" }

type ContentFormat struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

func (c *ContentFormat) Ref() ContentRef { return RefFormat }
func (c *ContentFormat) Length() uint64  { return 1 }
func (c *ContentFormat) Name() string    { return "ContentFormat" }

// ContentType creates a nested shared type. NodeName is set for XML
// elements and hooks only.
type ContentType struct {
	TypeRef  uint64 `json:"typeRef"`
	NodeName string `json:"nodeName,omitempty"`
}

func (c *ContentType) Ref() ContentRef { return RefType }
func (c *ContentType) Length() uint64  { return 1 }
func (c *ContentType) Name() string    { return "ContentType" }

type ContentAny struct {
	Values []interface{} `json:"values"`
}

func (c *ContentAny) Ref() ContentRef { return RefAny }
func (c *ContentAny) Length() uint64  { return uint64(len(c.Values)) }
func (c *ContentAny) Name() string    { return "ContentAny" }

type ContentDoc struct {
	GUID string      `json:"guid"`
	Opts interface{} `json:"opts"`
}

func (c *ContentDoc) Ref() ContentRef { return RefDoc }
func (c *ContentDoc) Length() uint64  { return 1 }
func (c *ContentDoc) Name() string    { return "ContentDoc" }

// NewContentString builds a ContentString with its UTF-16 length computed
func NewContentString(s string) *ContentString {
	return &ContentString{Str: s, len: uint64(lib0.UTF16Length(s))}
}

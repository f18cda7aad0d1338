package yupdate

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iksnae/doc-history/internal/lib0"
)

// ErrMalformed matches every error returned by Decode
var ErrMalformed = errors.New("malformed update")

// FormatError reports where in the input decoding stopped
type FormatError struct {
	Offset int
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed update at offset %d: %v", e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformed) hold for any FormatError
func (e *FormatError) Is(target error) bool {
	return target == ErrMalformed
}

// Decoder turns canonical update bytes into structs and a delete set
type Decoder interface {
	Decode(content []byte) (*Update, error)
}

// V1Decoder decodes the Yjs v1 update encoding
type V1Decoder struct{}

var _ Decoder = V1Decoder{}

// Decode implements Decoder
func (V1Decoder) Decode(content []byte) (*Update, error) {
	return Decode(content)
}

// Decode parses a v1 update. Trailing bytes after the delete set are ignored.
func Decode(content []byte) (*Update, error) {
	r := &reader{d: lib0.NewDecoder(content)}

	structs, err := r.readStructs()
	if err != nil {
		return nil, r.fail(err)
	}

	clients, ds, err := r.readDeleteSet()
	if err != nil {
		return nil, r.fail(err)
	}

	return &Update{
		Structs:       structs,
		DeleteSet:     ds,
		DeleteClients: clients,
	}, nil
}

type reader struct {
	d *lib0.Decoder
}

func (r *reader) fail(err error) error {
	return &FormatError{Offset: r.d.Pos(), Err: err}
}

func (r *reader) readStructs() ([]Struct, error) {
	numClients, err := r.d.ReadVarUint()
	if err != nil {
		return nil, fmt.Errorf("client count: %w", err)
	}

	var structs []Struct
	for i := uint64(0); i < numClients; i++ {
		numStructs, err := r.d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("struct count: %w", err)
		}
		// each struct takes at least one info byte
		if numStructs > uint64(r.d.Remaining()) {
			return nil, fmt.Errorf("struct count %d exceeds input: %w", numStructs, lib0.ErrUnexpectedEnd)
		}
		client, err := r.d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("client id: %w", err)
		}
		clock, err := r.d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("clock of client %d: %w", client, err)
		}

		for j := uint64(0); j < numStructs; j++ {
			s, err := r.readStruct(client, clock)
			if err != nil {
				return nil, fmt.Errorf("struct %d of client %d: %w", j, client, err)
			}
			structs = append(structs, s)
			clock += s.Length
		}
	}

	return structs, nil
}

func (r *reader) readStruct(client, clock uint64) (Struct, error) {
	info, err := r.d.ReadUint8()
	if err != nil {
		return Struct{}, err
	}

	s := Struct{Client: client, Clock: clock}
	switch ContentRef(info & infoContentMask) {
	case RefGC:
		s.Kind = KindGC
		s.Length, err = r.d.ReadVarUint()
		return s, err
	case RefSkip:
		s.Kind = KindSkip
		s.Length, err = r.d.ReadVarUint()
		return s, err
	}

	item := &Item{}
	if info&infoOrigin != 0 {
		if item.Origin, err = r.readID(); err != nil {
			return Struct{}, fmt.Errorf("origin: %w", err)
		}
	}
	if info&infoRightOrigin != 0 {
		if item.RightOrigin, err = r.readID(); err != nil {
			return Struct{}, fmt.Errorf("right origin: %w", err)
		}
	}

	// parent info is only present when the item has no origin to copy it from
	if info&(infoOrigin|infoRightOrigin) == 0 {
		parentInfo, err := r.d.ReadVarUint()
		if err != nil {
			return Struct{}, fmt.Errorf("parent info: %w", err)
		}
		if parentInfo == 1 {
			if item.ParentKey, err = r.d.ReadVarString(); err != nil {
				return Struct{}, fmt.Errorf("parent key: %w", err)
			}
		} else {
			if item.ParentID, err = r.readID(); err != nil {
				return Struct{}, fmt.Errorf("parent id: %w", err)
			}
		}
		if info&infoParentSub != 0 {
			sub, err := r.d.ReadVarString()
			if err != nil {
				return Struct{}, fmt.Errorf("parent sub: %w", err)
			}
			item.ParentSub = &sub
		}
	}

	content, err := r.readContent(ContentRef(info & infoContentMask))
	if err != nil {
		return Struct{}, err
	}
	item.Content = content

	s.Kind = KindItem
	s.Item = item
	s.Length = content.Length()
	return s, nil
}

func (r *reader) readID() (*ID, error) {
	client, err := r.d.ReadVarUint()
	if err != nil {
		return nil, err
	}
	clock, err := r.d.ReadVarUint()
	if err != nil {
		return nil, err
	}
	return &ID{Client: client, Clock: clock}, nil
}

func (r *reader) readContent(ref ContentRef) (Content, error) {
	switch ref {
	case RefDeleted:
		n, err := r.d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("deleted length: %w", err)
		}
		return &ContentDeleted{Len: n}, nil

	case RefJSON:
		n, err := r.readCount()
		if err != nil {
			return nil, fmt.Errorf("json count: %w", err)
		}
		values := make([]interface{}, 0, n)
		for i := uint64(0); i < n; i++ {
			s, err := r.d.ReadVarString()
			if err != nil {
				return nil, fmt.Errorf("json value: %w", err)
			}
			if s == "undefined" {
				values = append(values, lib0.Undefined{})
				continue
			}
			v, err := parseJSON(s)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return &ContentJSON{Values: values}, nil

	case RefBinary:
		b, err := r.d.ReadVarUint8Array()
		if err != nil {
			return nil, fmt.Errorf("binary content: %w", err)
		}
		return &ContentBinary{Data: append([]byte(nil), b...)}, nil

	case RefString:
		s, err := r.d.ReadVarString()
		if err != nil {
			return nil, fmt.Errorf("string content: %w", err)
		}
		return NewContentString(s), nil

	case RefEmbed:
		s, err := r.d.ReadVarString()
		if err != nil {
			return nil, fmt.Errorf("embed content: %w", err)
		}
		v, err := parseJSON(s)
		if err != nil {
			return nil, err
		}
		return &ContentEmbed{Embed: v}, nil

	case RefFormat:
		key, err := r.d.ReadVarString()
		if err != nil {
			return nil, fmt.Errorf("format key: %w", err)
		}
		s, err := r.d.ReadVarString()
		if err != nil {
			return nil, fmt.Errorf("format value: %w", err)
		}
		v, err := parseJSON(s)
		if err != nil {
			return nil, err
		}
		return &ContentFormat{Key: key, Value: v}, nil

	case RefType:
		typeRef, err := r.d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("type ref: %w", err)
		}
		c := &ContentType{TypeRef: typeRef}
		switch typeRef {
		case TypeRefXMLElement, TypeRefXMLHook:
			if c.NodeName, err = r.d.ReadVarString(); err != nil {
				return nil, fmt.Errorf("node name: %w", err)
			}
		case TypeRefArray, TypeRefMap, TypeRefText, TypeRefXMLFragment, TypeRefXMLText:
		default:
			return nil, fmt.Errorf("unknown type ref %d", typeRef)
		}
		return c, nil

	case RefAny:
		n, err := r.readCount()
		if err != nil {
			return nil, fmt.Errorf("any count: %w", err)
		}
		values := make([]interface{}, 0, n)
		for i := uint64(0); i < n; i++ {
			v, err := r.d.ReadAny()
			if err != nil {
				return nil, fmt.Errorf("any value: %w", err)
			}
			values = append(values, v)
		}
		return &ContentAny{Values: values}, nil

	case RefDoc:
		guid, err := r.d.ReadVarString()
		if err != nil {
			return nil, fmt.Errorf("doc guid: %w", err)
		}
		opts, err := r.d.ReadAny()
		if err != nil {
			return nil, fmt.Errorf("doc opts: %w", err)
		}
		return &ContentDoc{GUID: guid, Opts: opts}, nil

	default:
		return nil, fmt.Errorf("unknown content ref %d", ref)
	}
}

// readCount reads an element count that must fit the remaining input
func (r *reader) readCount() (uint64, error) {
	n, err := r.d.ReadVarUint()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.d.Remaining()) {
		return 0, lib0.ErrUnexpectedEnd
	}
	return n, nil
}

func (r *reader) readDeleteSet() ([]uint64, map[uint64][]DeleteItem, error) {
	numClients, err := r.d.ReadVarUint()
	if err != nil {
		return nil, nil, fmt.Errorf("delete set client count: %w", err)
	}

	ds := make(map[uint64][]DeleteItem)
	var clients []uint64
	for i := uint64(0); i < numClients; i++ {
		client, err := r.d.ReadVarUint()
		if err != nil {
			return nil, nil, fmt.Errorf("delete set client: %w", err)
		}
		numDeletes, err := r.readCount()
		if err != nil {
			return nil, nil, fmt.Errorf("delete count of client %d: %w", client, err)
		}
		// clients without deletions are not materialized
		if numDeletes == 0 {
			continue
		}
		if _, seen := ds[client]; !seen {
			clients = append(clients, client)
		}
		for j := uint64(0); j < numDeletes; j++ {
			clock, err := r.d.ReadVarUint()
			if err != nil {
				return nil, nil, fmt.Errorf("delete clock of client %d: %w", client, err)
			}
			length, err := r.d.ReadVarUint()
			if err != nil {
				return nil, nil, fmt.Errorf("delete length of client %d: %w", client, err)
			}
			ds[client] = append(ds[client], DeleteItem{Clock: clock, Length: length})
		}
	}

	return clients, ds, nil
}

func parseJSON(s string) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("invalid json %q: %w", s, err)
	}
	return v, nil
}

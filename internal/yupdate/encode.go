package yupdate

import (
	"encoding/json"
	"slices"

	"github.com/iksnae/doc-history/internal/lib0"
)

// Encode writes u in the v1 update encoding. Structs are grouped by client
// in order of first appearance. Each group's starting clock is taken from
// its first struct.
func Encode(u *Update) ([]byte, error) {
	enc := lib0.NewEncoder()

	var order []uint64
	groups := make(map[uint64][]Struct)
	for _, s := range u.Structs {
		if _, ok := groups[s.Client]; !ok {
			order = append(order, s.Client)
		}
		groups[s.Client] = append(groups[s.Client], s)
	}

	enc.WriteVarUint(uint64(len(order)))
	for _, client := range order {
		structs := groups[client]
		enc.WriteVarUint(uint64(len(structs)))
		enc.WriteVarUint(client)
		enc.WriteVarUint(structs[0].Clock)
		for _, s := range structs {
			if err := writeStruct(enc, s); err != nil {
				return nil, err
			}
		}
	}

	clients := u.DeleteClients
	if len(clients) == 0 {
		for client := range u.DeleteSet {
			clients = append(clients, client)
		}
		slices.Sort(clients)
	}
	enc.WriteVarUint(uint64(len(clients)))
	for _, client := range clients {
		items := u.DeleteSet[client]
		enc.WriteVarUint(client)
		enc.WriteVarUint(uint64(len(items)))
		for _, item := range items {
			enc.WriteVarUint(item.Clock)
			enc.WriteVarUint(item.Length)
		}
	}

	return enc.Bytes(), nil
}

func writeStruct(enc *lib0.Encoder, s Struct) error {
	switch s.Kind {
	case KindGC:
		enc.WriteUint8(uint8(RefGC))
		enc.WriteVarUint(s.Length)
		return nil
	case KindSkip:
		enc.WriteUint8(uint8(RefSkip))
		enc.WriteVarUint(s.Length)
		return nil
	}

	item := s.Item
	info := uint8(item.Content.Ref()) & infoContentMask
	if item.Origin != nil {
		info |= infoOrigin
	}
	if item.RightOrigin != nil {
		info |= infoRightOrigin
	}
	if item.ParentSub != nil {
		info |= infoParentSub
	}
	enc.WriteUint8(info)

	if item.Origin != nil {
		writeID(enc, item.Origin)
	}
	if item.RightOrigin != nil {
		writeID(enc, item.RightOrigin)
	}
	if item.Origin == nil && item.RightOrigin == nil {
		if item.ParentID != nil {
			enc.WriteVarUint(0)
			writeID(enc, item.ParentID)
		} else {
			enc.WriteVarUint(1)
			enc.WriteVarString(item.ParentKey)
		}
		if item.ParentSub != nil {
			enc.WriteVarString(*item.ParentSub)
		}
	}

	return writeContent(enc, item.Content)
}

func writeID(enc *lib0.Encoder, id *ID) {
	enc.WriteVarUint(id.Client)
	enc.WriteVarUint(id.Clock)
}

func writeContent(enc *lib0.Encoder, c Content) error {
	switch content := c.(type) {
	case *ContentDeleted:
		enc.WriteVarUint(content.Len)
	case *ContentJSON:
		enc.WriteVarUint(uint64(len(content.Values)))
		for _, v := range content.Values {
			if _, ok := v.(lib0.Undefined); ok {
				enc.WriteVarString("undefined")
				continue
			}
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			enc.WriteVarString(string(b))
		}
	case *ContentBinary:
		enc.WriteVarUint8Array(content.Data)
	case *ContentString:
		enc.WriteVarString(content.Str)
	case *ContentEmbed:
		b, err := json.Marshal(content.Embed)
		if err != nil {
			return err
		}
		enc.WriteVarString(string(b))
	case *ContentFormat:
		enc.WriteVarString(content.Key)
		b, err := json.Marshal(content.Value)
		if err != nil {
			return err
		}
		enc.WriteVarString(string(b))
	case *ContentType:
		enc.WriteVarUint(content.TypeRef)
		if content.TypeRef == TypeRefXMLElement || content.TypeRef == TypeRefXMLHook {
			enc.WriteVarString(content.NodeName)
		}
	case *ContentAny:
		enc.WriteVarUint(uint64(len(content.Values)))
		for _, v := range content.Values {
			enc.WriteAny(v)
		}
	case *ContentDoc:
		enc.WriteVarString(content.GUID)
		enc.WriteAny(content.Opts)
	}
	return nil
}

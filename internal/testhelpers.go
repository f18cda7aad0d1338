package internal

import (
	"time"

	"github.com/google/uuid"

	"github.com/iksnae/doc-history/internal/yupdate"
)

// CreateTestUpdate encodes a v1 update in which client inserts text into
// the root type "text" starting at clock 0
func CreateTestUpdate(client uint64, text string) []byte {
	content := yupdate.NewContentString(text)
	data, err := yupdate.Encode(&yupdate.Update{
		Structs: []yupdate.Struct{{
			Kind:   yupdate.KindItem,
			Client: client,
			Length: content.Length(),
			Item:   &yupdate.Item{ParentKey: "text", Content: content},
		}},
	})
	if err != nil {
		panic(err)
	}
	return data
}

// CreateTestDeleteUpdate encodes a v1 update carrying only a delete set
func CreateTestDeleteUpdate(deletes map[uint64][]yupdate.DeleteItem) []byte {
	data, err := yupdate.Encode(&yupdate.Update{DeleteSet: deletes})
	if err != nil {
		panic(err)
	}
	return data
}

// CreateTestCompressedUpdate wraps content in the compression envelope
func CreateTestCompressedUpdate(content []byte) []byte {
	data, err := Compress(content)
	if err != nil {
		panic(err)
	}
	return data
}

// CreateTestMessage creates a message by author at the given millisecond timestamp
func CreateTestMessage(content []byte, timestamp int64, author string) Message {
	return Message{
		Content:       content,
		Timestamp:     timestamp,
		AuthorAddress: author,
	}
}

// CreateTestCommit creates a commit for documentID with a fresh id
func CreateTestCommit(documentID string, seq int64, messages ...Message) *Commit {
	return &Commit{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Seq:        seq,
		CreatedAt:  time.Now().UnixMilli(),
		Messages:   messages,
	}
}

package boltstore

import (
	"bytes"
	"encoding/gob"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

func init() {
	gob.Register(moodb.Object{})
	gob.Register(moodb.Verb{})
}

// encodeObject serializes an Object (verbs and code included) using gob.
func encodeObject(obj *moodb.Object) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeObject deserializes an Object from bytes.
func decodeObject(data []byte) (*moodb.Object, error) {
	var obj moodb.Object
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/rblogdb/rblog/model"
)

func encodeCursor(c model.Cursor) string {
	data, err := json.Marshal(c)
	if err != nil {
		// Cursor is two plain scalar fields; Marshal cannot fail on it.
		panic(fmt.Sprintf("query: encode cursor: %v", err))
	}
	return base64.StdEncoding.EncodeToString(data)
}

func decodeCursor(s string) (model.Cursor, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return model.Cursor{}, &model.InvalidQuery{Field: "cursor", Reason: "not valid base64"}
	}
	var c model.Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return model.Cursor{}, &model.InvalidQuery{Field: "cursor", Reason: "not a valid cursor payload"}
	}
	return c, nil
}

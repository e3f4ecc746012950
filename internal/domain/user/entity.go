package user

import (
	"bytes"
	"encoding/json"
	"sort"
)

// User represents a user record in the collection.
//
// Records read from storage are kept as stored: a known key whose value does
// not fit its typed field is held in Extra under that key, a known key absent
// from the record stays absent, and an element that is not an object is kept
// verbatim. Users built in code carry every known field.
type User struct {
	ID         int64   // ID is the system-assigned unique identifier
	FirstName  string  // FirstName is the user's first name
	SecondName string  // SecondName is the user's second name
	Age        int     // Age is the user's age in years
	City       *string // City is optional; nil means the field is absent

	// Extra holds payload fields outside the known schema, plus known keys
	// whose stored value does not fit the typed field. They are stored and
	// returned verbatim.
	Extra map[string]json.RawMessage

	missing fieldSet        // known keys absent from the stored record
	opaque  json.RawMessage // stored element that is not a JSON object
}

type fieldSet uint8

const (
	fieldID fieldSet = 1 << iota
	fieldFirstName
	fieldSecondName
	fieldAge
)

// schema lists the known keys in output order. City has no bit: a nil City
// already means absent.
var schema = []struct {
	key string
	bit fieldSet
}{
	{"id", fieldID},
	{"firstName", fieldFirstName},
	{"secondName", fieldSecondName},
	{"age", fieldAge},
	{"city", 0},
}

// IsKnownField reports whether key is part of the fixed user schema.
func IsKnownField(key string) bool {
	for _, f := range schema {
		if f.key == key {
			return true
		}
	}
	return false
}

// Has reports whether the record carries key, typed or verbatim.
func (u User) Has(key string) bool {
	if u.opaque != nil {
		return false
	}
	if _, ok := u.Extra[key]; ok {
		return true
	}
	for _, f := range schema {
		if f.key != key {
			continue
		}
		if f.bit == 0 {
			return u.City != nil
		}
		return u.missing&f.bit == 0
	}
	return false
}

// HasID reports whether the record carries an integer id that can be matched
// and counted towards the next id.
func (u User) HasID() bool {
	if u.opaque != nil || u.missing&fieldID != 0 {
		return false
	}
	_, verbatim := u.Extra["id"]
	return !verbatim
}

func (u User) typedValue(key string) any {
	switch key {
	case "id":
		return u.ID
	case "firstName":
		return u.FirstName
	case "secondName":
		return u.SecondName
	case "age":
		return u.Age
	default:
		return u.City
	}
}

// MarshalJSON writes the known fields first, followed by extra fields in key order.
func (u User) MarshalJSON() ([]byte, error) {
	if u.opaque != nil {
		return u.opaque, nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, value []byte) error {
		name, err := json.Marshal(key)
		if err != nil {
			return err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
		return nil
	}

	for _, f := range schema {
		if raw, ok := u.Extra[f.key]; ok {
			if err := write(f.key, raw); err != nil {
				return nil, err
			}
			continue
		}
		if !u.Has(f.key) {
			continue
		}
		value, err := json.Marshal(u.typedValue(f.key))
		if err != nil {
			return nil, err
		}
		if err := write(f.key, value); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(u.Extra))
	for k := range u.Extra {
		if !IsKnownField(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, u.Extra[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the known fields and keeps everything else in Extra.
// It never rejects well-formed JSON.
func (u *User) UnmarshalJSON(data []byte) error {
	compacted, err := compact(data)
	if err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(compacted, &fields); err != nil || fields == nil {
		*u = User{opaque: compacted}
		return nil
	}

	*u = User{}
	for _, f := range schema {
		raw, ok := fields[f.key]
		if !ok {
			u.missing |= f.bit
			continue
		}
		if !u.setKnown(f.key, raw) {
			u.setExtra(f.key, raw)
		}
	}
	for k, v := range fields {
		if !IsKnownField(k) {
			u.setExtra(k, v)
		}
	}
	return nil
}

// setKnown decodes raw into the typed field for key and reports whether it fit.
// null never fits, so it is kept verbatim.
func (u *User) setKnown(key string, raw json.RawMessage) bool {
	if bytes.Equal(raw, []byte("null")) {
		return false
	}
	switch key {
	case "id":
		var id int64
		if json.Unmarshal(raw, &id) != nil {
			return false
		}
		u.ID = id
	case "firstName":
		return json.Unmarshal(raw, &u.FirstName) == nil
	case "secondName":
		return json.Unmarshal(raw, &u.SecondName) == nil
	case "age":
		var age int
		if json.Unmarshal(raw, &age) != nil {
			return false
		}
		u.Age = age
	case "city":
		var city string
		if json.Unmarshal(raw, &city) != nil {
			return false
		}
		u.City = &city
	}
	return true
}

func (u *User) setExtra(key string, raw json.RawMessage) {
	if u.Extra == nil {
		u.Extra = make(map[string]json.RawMessage)
	}
	u.Extra[key] = raw
}

func compact(data []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	c := u
	if u.City != nil {
		city := *u.City
		c.City = &city
	}
	if u.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(u.Extra))
		for k, v := range u.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	if u.opaque != nil {
		c.opaque = append(json.RawMessage(nil), u.opaque...)
	}
	return c
}

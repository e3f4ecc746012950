package user

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_MarshalJSON(t *testing.T) {
	city := "Oslo"

	tests := []struct {
		name string
		user User
		want string
	}{
		{
			name: "without city",
			user: User{ID: 1, FirstName: "Ann", SecondName: "Lee", Age: 30},
			want: `{"id":1,"firstName":"Ann","secondName":"Lee","age":30}`,
		},
		{
			name: "with city",
			user: User{ID: 2, FirstName: "Bob", SecondName: "Ray", Age: 0, City: &city},
			want: `{"id":2,"firstName":"Bob","secondName":"Ray","age":0,"city":"Oslo"}`,
		},
		{
			name: "with extra fields in key order",
			user: User{ID: 3, FirstName: "C", SecondName: "D", Age: 5, Extra: map[string]json.RawMessage{
				"zeta":  json.RawMessage(`true`),
				"alpha": json.RawMessage(`{"k":1}`),
			}},
			want: `{"id":3,"firstName":"C","secondName":"D","age":5,"alpha":{"k":1},"zeta":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestUser_MarshalJSON_KnownKeyInExtraKeepsItsPlace(t *testing.T) {
	u := User{ID: 1, FirstName: "A", SecondName: "B", Age: 2, Extra: map[string]json.RawMessage{
		"age": json.RawMessage(`"2"`),
	}}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"firstName":"A","secondName":"B","age":"2"}`, string(data))
}

func TestUser_UnmarshalJSON(t *testing.T) {
	var u User
	err := json.Unmarshal([]byte(`{"id":7,"firstName":"Ann","secondName":"Lee","age":30,"city":"Rome","hobbies":[ "chess", "go" ]}`), &u)
	require.NoError(t, err)

	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "Ann", u.FirstName)
	assert.Equal(t, "Lee", u.SecondName)
	assert.Equal(t, 30, u.Age)
	require.NotNil(t, u.City)
	assert.Equal(t, "Rome", *u.City)
	assert.Equal(t, `["chess","go"]`, string(u.Extra["hobbies"]))
}

func TestUser_UnmarshalJSON_KeepsStoredShape(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		hasID  bool
		id     int64
		absent []string
	}{
		{name: "string id", in: `{"id":"7","firstName":"Ann","secondName":"Lee","age":30}`},
		{name: "null id", in: `{"id":null,"firstName":"Ann","secondName":"Lee","age":30}`},
		{name: "string age", in: `{"id":2,"firstName":"Bo","secondName":"Ray","age":"41"}`, hasID: true, id: 2},
		{name: "fractional age", in: `{"id":3,"firstName":"Cy","secondName":"Di","age":30.5}`, hasID: true, id: 3},
		{name: "numeric name and null city", in: `{"id":4,"firstName":12,"secondName":"Di","age":1,"city":null}`, hasID: true, id: 4},
		{name: "missing fields", in: `{"id":5,"firstName":"Ann"}`, hasID: true, id: 5, absent: []string{"secondName", "age", "city"}},
		{name: "missing id", in: `{"firstName":"Ann","secondName":"Lee","age":30}`, absent: []string{"id"}},
		{name: "null element", in: `null`},
		{name: "array element", in: `[1,2]`},
		{name: "string element", in: `"x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u User
			require.NoError(t, json.Unmarshal([]byte(tt.in), &u))
			assert.Equal(t, tt.hasID, u.HasID())
			if tt.hasID {
				assert.Equal(t, tt.id, u.ID)
			}
			for _, key := range tt.absent {
				assert.False(t, u.Has(key), key)
			}

			data, err := json.Marshal(u)
			require.NoError(t, err)
			assert.Equal(t, tt.in, string(data), "written back as read")
		})
	}
}

func TestUser_UnmarshalJSON_InvalidJSON(t *testing.T) {
	var u User
	assert.Error(t, u.UnmarshalJSON([]byte(`{"id":`)))
}

func TestUser_Clone(t *testing.T) {
	city := "Oslo"
	u := User{ID: 1, City: &city, Extra: map[string]json.RawMessage{"k": json.RawMessage(`1`)}}

	c := u.Clone()
	*c.City = "Rome"
	c.Extra["k"][0] = '2'

	assert.Equal(t, "Oslo", *u.City)
	assert.Equal(t, `1`, string(u.Extra["k"]))
}

func TestCollection_NextID(t *testing.T) {
	assert.Equal(t, int64(1), Collection{}.NextID())
	assert.Equal(t, int64(1), Collection(nil).NextID())
	assert.Equal(t, int64(8), Collection{{ID: 3}, {ID: 7}, {ID: 2}}.NextID())
}

func TestCollection_IndexOf(t *testing.T) {
	c := Collection{{ID: 3}, {ID: 7}}

	assert.Equal(t, 1, c.IndexOf(7))
	assert.Equal(t, -1, c.IndexOf(4))
	assert.Equal(t, -1, c.IndexOf(-1))
}

func TestCollection_SkipsRecordsWithoutUsableID(t *testing.T) {
	var c Collection
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"9"},{"firstName":"A"},{"id":2},0]`), &c))

	assert.Equal(t, int64(3), c.NextID())
	assert.Equal(t, 2, c.IndexOf(2))
	assert.Equal(t, -1, c.IndexOf(0), "records without an id do not match id 0")
}

func TestCollection_Remove(t *testing.T) {
	c := Collection{{ID: 1}, {ID: 2}, {ID: 3}}

	out := c.Remove(1)

	assert.Equal(t, Collection{{ID: 1}, {ID: 3}}, out)
	assert.Equal(t, int64(2), c[1].ID, "original slice is not modified")
}

func TestCollection_Clone(t *testing.T) {
	assert.NotNil(t, Collection(nil).Clone())
	assert.Empty(t, Collection(nil).Clone())
}

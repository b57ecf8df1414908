package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostMatches(t *testing.T) {
	post := Post{Title: "qui est esse", Body: "est rerum tempore vitae"}

	tests := []struct {
		term string
		want bool
	}{
		{"", true},
		{"esse", true},
		{"tempore", true},
		{"Esse", false},
		{"dolor", false},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, post.Matches(tt.term))
		})
	}
}

func TestPostJSONOmitsMissingComments(t *testing.T) {
	data, err := json.Marshal(Post{UserID: 1, ID: 2, Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":1,"id":2,"title":"t","body":"b"}`, string(data))

	data, err = json.Marshal(Post{ID: 2, Comments: []Comment{{PostID: 2, ID: 9, Email: "a@b.c"}}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"comments":[{"postId":2,"id":9,"name":"","email":"a@b.c","body":""}]`)
}

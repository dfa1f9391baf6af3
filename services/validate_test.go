package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	id, err := NewID()
	require.NoError(t, err)

	assert.True(t, ValidateID(id))
	assert.False(t, ValidateID(""))
	assert.False(t, ValidateID("123"))
	assert.False(t, ValidateID("{"+id+"}"))
	assert.False(t, ValidateID("zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"))
}

func TestParseVisible(t *testing.T) {
	cases := []struct {
		in   interface{}
		want bool
		ok   bool
	}{
		{true, true, true},
		{false, false, true},
		{"true", true, true},
		{"0", false, true},
		{" FALSE ", false, true},
		{float64(1), true, true},
		{float64(0), false, true},
		{json.Number("1"), true, true},
		{float64(2), false, false},
		{"yes", false, false},
		{[]int{1}, false, false},
	}
	for _, tc := range cases {
		got, err := ParseVisible(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrValidationFailed, "%v", tc.in)
			continue
		}
		require.NoError(t, err, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}
}

func TestCheckIDsMessages(t *testing.T) {
	id, err := NewID()
	require.NoError(t, err)

	assert.Equal(t, "Provided postId: a and commentId: b are both invalid.", Message(checkIDs("a", "b")))
	assert.Equal(t, "Provided postId: a is invalid.", Message(checkIDs("a", id)))
	assert.Equal(t, "Provided commentId: b is invalid.", Message(checkIDs(id, "b")))
	assert.NoError(t, checkIDs(id, id))
}

func TestCommentInputNormalize(t *testing.T) {
	in := CommentInput{FirstName: " <b>Ada</b> ", LastName: "Lovelace", Text: "<script>alert(1)</script>hi"}
	in.normalize()
	assert.Equal(t, "Ada", in.FirstName)
	assert.Equal(t, "hi", in.Text)
	assert.NoError(t, checkFields("x", &in))
}

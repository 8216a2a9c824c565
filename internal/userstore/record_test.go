package userstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userfeed/internal/domain"
)

func TestUserEncodesOnOneLine(t *testing.T) {
	cases := []domain.User{
		testUser("Ann", "a@x.com", 30),
		testUser("", "", 0),
		testUser("Zoë \"Z\" O'Neil", "not-an-email", -3.5),
		testUser("line\nbreak", "tab\tchar", 1e9),
		{Email: json.RawMessage("{\n  \"work\": \"w@x.com\"\n}")},
	}

	for _, u := range cases {
		data, err := json.Marshal(u)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "\n")

		var got domain.User
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, u.NameText(), got.NameText())
		assert.Equal(t, u.EmailText() != "", got.EmailText() != "")
	}
}

package domain

import "encoding/json"

// User is the persisted record of one created user. Each field holds the
// JSON value received for that key, whatever its type. Absent keys stay
// empty and are left out when the record is encoded.
type User struct {
	Name  json.RawMessage `json:"name,omitempty"`
	Email json.RawMessage `json:"email,omitempty"`
	Age   json.RawMessage `json:"age,omitempty"`
}

// UserFromFields picks the record keys out of a decoded request body.
func UserFromFields(fields map[string]json.RawMessage) User {
	return User{
		Name:  fields["name"],
		Email: fields["email"],
		Age:   fields["age"],
	}
}

// NameText renders the name for logs and the run journal.
func (u User) NameText() string { return fieldText(u.Name) }

// EmailText renders the email for logs and the run journal.
func (u User) EmailText() string { return fieldText(u.Email) }

func fieldText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Activity is the opaque value returned by the remote activity service.
type Activity = json.RawMessage

// CreatedUser combines a stored user with the activity fetched for the request.
type CreatedUser struct {
	User     User     `json:"user"`
	Activity Activity `json:"activity"`
}

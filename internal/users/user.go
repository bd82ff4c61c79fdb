// Package users tracks the logged-in user and its session token.
package users

import (
	"encoding/json"
	"fmt"
)

// User is the locally cached view of a server user. Fields the SDK does not
// know about are kept in Extra and written back unchanged.
type User struct {
	ID       string
	Username string
	Token    string
	Extra    map[string]any
}

const (
	fieldID       = "objectId"
	fieldUsername = "username"
	fieldToken    = "sessionToken"
)

// SessionToken is safe to call on a nil user.
func (u *User) SessionToken() string {
	if u == nil {
		return ""
	}
	return u.Token
}

func (u User) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(u.Extra)+3)
	for k, v := range u.Extra {
		m[k] = v
	}
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	put(fieldID, u.ID)
	put(fieldUsername, u.Username)
	put(fieldToken, u.Token)
	return json.Marshal(m)
}

func (u *User) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	take := func(k string) (string, error) {
		v, ok := m[k]
		if !ok || v == nil {
			return "", nil
		}
		delete(m, k)
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("user field %s: want string, got %T", k, v)
		}
		return s, nil
	}

	var err error
	if u.ID, err = take(fieldID); err != nil {
		return err
	}
	if u.Username, err = take(fieldUsername); err != nil {
		return err
	}
	if u.Token, err = take(fieldToken); err != nil {
		return err
	}
	u.Extra = nil
	if len(m) > 0 {
		u.Extra = m
	}
	return nil
}

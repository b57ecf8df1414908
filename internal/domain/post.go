// Package domain holds the resources served by the API.
package domain

import "strings"

// Post is a post as returned by the upstream API.
type Post struct {
	UserID   int       `json:"userId"`
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Comments []Comment `json:"comments,omitempty"`
}

// Comment is a comment left on a post.
type Comment struct {
	PostID int    `json:"postId"`
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

// Matches reports whether the post's title or body contains term.
// An empty term matches every post.
func (p Post) Matches(term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(p.Title, term) || strings.Contains(p.Body, term)
}

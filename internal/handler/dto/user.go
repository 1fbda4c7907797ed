// Package dto holds the JSON shapes of the HTTP API.
package dto

import (
	"encoding/json"

	"github.com/dotsalary/dotsalary/internal/model"
)

// UploadResponse is the body of POST /upload.
type UploadResponse struct {
	Success int    `json:"success"`
	Error   string `json:"error,omitempty"`
}

// UserResponse is a single query result.
type UserResponse struct {
	Name string `json:"name"`
	// Salary is emitted as a JSON number with the stored precision.
	Salary json.Number `json:"salary"`
}

// UsersResponse is the body of GET /users.
type UsersResponse struct {
	Results []UserResponse `json:"results"`
}

// ErrorResponse is the body of query and generic errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToUserResponse converts a user to its response shape.
func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{
		Name:   u.Name,
		Salary: json.Number(u.Salary.String()),
	}
}

// ToUsersResponse converts users to the query response. Results is never nil.
func ToUsersResponse(users []*model.User) UsersResponse {
	results := make([]UserResponse, 0, len(users))
	for _, u := range users {
		results = append(results, ToUserResponse(u))
	}
	return UsersResponse{Results: results}
}

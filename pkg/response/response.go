// Package response writes the storefront's JSON envelope:
//
//	{"success": true,  "message": "Cart retrieved successfully", "data": {...}}
//	{"success": false, "message": "Item not found in cart"}
//
// success is derived from the status code (< 400).
package response

import (
	"encoding/json"
	"net/http"
)

// Body is the envelope every API response uses.
type Body struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// JSON writes status with the envelope around data.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Body{Success: status < 400, Message: message, Data: data})
}

func write(w http.ResponseWriter, status int, body Body) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Success sends a 200 with data.
func Success(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, message, data)
}

// Created sends a 201 with data.
func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, message, data)
}

// Error sends a failure envelope with no data.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Body{Message: message})
}

// ValidationError sends a 400 carrying the field-level error map. The first
// message becomes the envelope message so simple clients can show it as is.
func ValidationError(w http.ResponseWriter, message string, errs map[string]string) {
	write(w, http.StatusBadRequest, Body{Message: message, Errors: errs})
}

// Unauthorized sends a 401.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

// Forbidden sends a 403.
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, message)
}

// NotFound sends a 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

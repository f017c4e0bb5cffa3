package keys

import "strings"

// Package keys centralizes Redis key construction.
// It is kept in internal to avoid leaking key formats to public API.

const prefix = "planner:"

func Delayed(q string) string { return prefix + "{" + q + "}:delayed" }
func Pending(q string) string { return prefix + "{" + q + "}:pending" }
func Active(q string) string  { return prefix + "{" + q + "}:active" }

// Queue holds all precomputed keys for a queue name to avoid repeated concatenations.
// The hash tag keeps every key of one queue in the same cluster slot so Lua
// scripts can touch them together.
type Queue struct {
	Delayed string
	Pending string
	Active  string
}

// For returns a set of precomputed keys for the provided queue.
func For(q string) Queue {
	p := prefix + "{" + q + "}:"
	return Queue{
		Delayed: p + "delayed",
		Pending: p + "pending",
		Active:  p + "active",
	}
}

// Task is the hash holding one task record.
func Task(id string) string { return prefix + "task:" + id }

// UserTasks is the set of task IDs owned by a user.
func UserTasks(userID string) string { return prefix + "user:" + userID + ":tasks" }

// User is the hash holding one user record.
func User(id string) string { return prefix + "user:" + id }

// UserEmail maps a lower-cased email address to a user ID.
func UserEmail(email string) string { return prefix + "email:" + strings.ToLower(email) }

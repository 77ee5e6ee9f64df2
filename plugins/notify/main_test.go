package main

import (
	"encoding/json"
	"testing"
)

func TestMessage(t *testing.T) {
	moved := json.RawMessage(`{"title":"Ship it","column":"progress"}`)

	tests := []struct {
		name string
		req  Request
		want string
		ok   bool
	}{
		{"moved", Request{Event: "task_moved", TaskID: "a", Data: moved}, "Ship it moved to In progress", true},
		{"celebrate without data", Request{Event: "celebrate", TaskID: "a"}, "Task a is done 🎉", true},
		{"created", Request{Event: "task_created", Data: json.RawMessage(`{"title":"Write docs"}`)}, "New task: Write docs", true},
		{"deleted is silent", Request{Event: "task_deleted", TaskID: "a"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := message(tt.req)
			if got != tt.want || ok != tt.ok {
				t.Errorf("message() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
